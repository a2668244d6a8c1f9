package timeline

import (
	"strings"
	"testing"
)

func TestDocumentRoundTrip(t *testing.T) {
	tl := New()
	a := newClip(t, tl, 0, sec(5), 0)
	b := newClip(t, tl, sec(5), sec(4), 0)
	tl.SplitClip(b.ID, sec(7))
	tl.AddTransition(TransitionSpec{ClipIDBefore: a.ID, ClipIDAfter: 3, Type: TransitionFade, Duration: sec(1)})
	tl.AddTextOverlay(TextOverlaySpec{Text: "title", StartTime: sec(1), Animation: AnimationSlideInLeft})

	data, err := Marshal(tl.Snapshot(), sec(2.5))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"nextClipId":5`) {
		t.Errorf("expected counters in document, got %s", data)
	}

	snap, playhead, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !snap.Equal(tl.Snapshot()) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", snap, tl.Snapshot())
	}
	if playhead != sec(2.5) {
		t.Errorf("expected playhead 2.5s, got %v", playhead)
	}
}

func TestDocumentRejectsBrokenClip(t *testing.T) {
	data := []byte(`{"clips":[{"id":1,"startTime":0,"inPoint":4,"outPoint":2,"duration":-2}],"nextClipId":2}`)
	if _, _, err := Unmarshal(data); err == nil {
		t.Fatal("expected invariant error")
	}
}

func TestDocumentDerivesMissingCounters(t *testing.T) {
	data := []byte(`{"clips":[{"id":4,"inPoint":0,"outPoint":2,"duration":2}]}`)
	snap, _, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if snap.NextClipID != 5 || snap.NextTextOverlayID != 1 {
		t.Errorf("unexpected counters %d/%d", snap.NextClipID, snap.NextTextOverlayID)
	}
}
