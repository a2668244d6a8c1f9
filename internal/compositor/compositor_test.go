package compositor

import (
	"math"
	"testing"
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

func sec(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// twoClips builds A on [0,5) and B on [5,10) joined by a transition.
func twoClips(t *testing.T, typ timeline.TransitionType, d time.Duration) timeline.Snapshot {
	t.Helper()
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(5), Metadata: timeline.Metadata{Duration: sec(8)}})
	tl.AddClip(timeline.ClipSpec{StartTime: sec(5), InPoint: sec(1), OutPoint: sec(6), Metadata: timeline.Metadata{Duration: sec(8)}})
	if _, ok := tl.AddTransition(timeline.TransitionSpec{ClipIDBefore: 1, ClipIDAfter: 2, Type: typ, Duration: d}); !ok {
		t.Fatal("AddTransition rejected")
	}
	return tl.Snapshot()
}

func layerFor(f Frame, id int) (Layer, bool) {
	for _, l := range f.Layers {
		if l.Clip.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

func TestCrossfadeOpacityBoundary(t *testing.T) {
	d := sec(2)
	snap := twoClips(t, timeline.TransitionCrossfade, d)
	boundary := sec(5)

	start := Resolve(snap, boundary-d/2)
	if l, _ := layerFor(start, 1); l.Opacity != 1 {
		t.Errorf("before opacity at window start: expected 1, got %v", l.Opacity)
	}
	end := Resolve(snap, boundary+d/2)
	if l, _ := layerFor(end, 1); l.Opacity != 0 {
		t.Errorf("before opacity at window end: expected 0, got %v", l.Opacity)
	}

	for at := boundary - d/2; at <= boundary+d/2; at += 50 * time.Millisecond {
		f := Resolve(snap, at)
		b, ok1 := layerFor(f, 1)
		a, ok2 := layerFor(f, 2)
		if !ok1 || !ok2 {
			t.Fatalf("t=%v: both clips must be active in the window", at)
		}
		if !near(b.Opacity+a.Opacity, 1) {
			t.Fatalf("t=%v: opacities sum to %v", at, b.Opacity+a.Opacity)
		}
		if a.Z < b.Z {
			t.Fatalf("t=%v: after clip must draw on top", at)
		}
		if a.Geometry != FullFrame || b.Geometry != FullFrame {
			t.Fatalf("t=%v: transition members must be full frame", at)
		}
	}
}

func TestOpacityCurves(t *testing.T) {
	tests := []struct {
		typ           timeline.TransitionType
		p             float64
		before, after float64
	}{
		{timeline.TransitionFade, 0, 1, 0},
		{timeline.TransitionFade, 0.25, 0.5, 0},
		{timeline.TransitionFade, 0.5, 0, 0},
		{timeline.TransitionFade, 0.75, 0, 0.5},
		{timeline.TransitionFade, 1, 0, 1},
		{timeline.TransitionFadeToBlack, 0.2, 0.5, 0},
		{timeline.TransitionFadeToBlack, 0.4, 0, 0},
		{timeline.TransitionFadeToBlack, 0.5, 0, 0},
		{timeline.TransitionFadeToBlack, 0.8, 0, 0.5},
		{timeline.TransitionDissolve, 0.3, 0.7, 0.3},
		{timeline.TransitionWipeLeft, 0.3, 0.7, 0.3},
		{timeline.TransitionWipeRight, 0.9, 0.1, 0.9},
		{timeline.TransitionType("spiral"), 0.6, 0.4, 0.6},
		{timeline.TransitionCrossfade, 1.7, 0, 1},
	}
	for _, tt := range tests {
		b, a := Opacity(tt.typ, tt.p)
		if !near(b, tt.before) || !near(a, tt.after) {
			t.Errorf("%s@%v: expected (%v,%v), got (%v,%v)", tt.typ, tt.p, tt.before, tt.after, b, a)
		}
	}
}

func TestFadeToBlackReportsBlack(t *testing.T) {
	snap := twoClips(t, timeline.TransitionFadeToBlack, sec(2))
	f := Resolve(snap, sec(5))
	if f.Black != 1 {
		t.Errorf("expected full black at midpoint, got %v", f.Black)
	}
	if f.Transition == nil || !near(f.Transition.Progress, 0.5) {
		t.Errorf("unexpected transition %+v", f.Transition)
	}
}

func TestForcedClipsClampSourceTime(t *testing.T) {
	snap := twoClips(t, timeline.TransitionCrossfade, sec(2))

	// At 4.5s the after clip has not started; it shows its in point.
	f := Resolve(snap, sec(4.5))
	a, ok := layerFor(f, 2)
	if !ok {
		t.Fatal("after clip not forced in")
	}
	if a.SourceTime != sec(1) {
		t.Errorf("expected source time clamped to in point 1s, got %v", a.SourceTime)
	}

	// At 5.5s the before clip has ended; it holds its out point.
	f = Resolve(snap, sec(5.5))
	b, ok := layerFor(f, 1)
	if !ok {
		t.Fatal("before clip not forced in")
	}
	if b.SourceTime != sec(5) {
		t.Errorf("expected source time clamped to out point 5s, got %v", b.SourceTime)
	}
}

func TestDanglingTransitionSkipped(t *testing.T) {
	snap := twoClips(t, timeline.TransitionCrossfade, sec(2))
	snap.Clips = snap.Clips[:1]

	f := Resolve(snap, sec(4.5))
	if f.Transition != nil {
		t.Error("dangling transition should be ignored")
	}
	if len(f.Layers) != 1 || f.Layers[0].Opacity != 1 {
		t.Errorf("unexpected layers %+v", f.Layers)
	}
}

func TestPictureInPicture(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(10)})
	tl.AddClip(timeline.ClipSpec{Track: 1, StartTime: sec(2), Duration: sec(3)})
	tl.AddClip(timeline.ClipSpec{Track: 2, StartTime: sec(1), Duration: sec(6)})

	f := Resolve(tl.Snapshot(), sec(3))
	if len(f.Layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(f.Layers))
	}
	if f.Layers[0].Clip.ID != 1 || f.Layers[0].Geometry != FullFrame {
		t.Errorf("base layer should be clip 1 full frame: %+v", f.Layers[0])
	}
	for _, l := range f.Layers[1:] {
		if l.Geometry != PictureInPicture {
			t.Errorf("clip %d on track %d should be an inset", l.Clip.ID, l.Clip.Track)
		}
	}
	if f.Layers[1].Clip.Track != 1 || f.Layers[2].Clip.Track != 2 {
		t.Error("layers not sorted by track")
	}

	// Before the overlays start only the base clip is visible.
	f = Resolve(tl.Snapshot(), sec(0.5))
	if f.Layers[0].Geometry != FullFrame {
		t.Error("single base layer must be full frame")
	}
}

func TestPiPRect(t *testing.T) {
	r := PiPRect(1280, 720, 1920, 1080)
	if r.Dx() != 320 || r.Dy() != 180 {
		t.Errorf("unexpected inset size %v", r)
	}
	if r.Max.X != 1260 || r.Max.Y != 700 {
		t.Errorf("inset not anchored bottom-right: %v", r)
	}
}

func TestFitRectLetterboxes(t *testing.T) {
	r := FitRect(1280, 720, 720, 1280)
	if r.Dy() != 720 || r.Dx() != 405 || r.Min.X != 437 {
		t.Errorf("unexpected fit %v", r)
	}
}

func TestAudioGain(t *testing.T) {
	c := timeline.Clip{StartTime: sec(10), Duration: sec(10), InPoint: sec(3), OutPoint: sec(13), Volume: 150, FadeIn: sec(2), FadeOut: sec(4)}

	tests := []struct {
		at   time.Duration
		want float64
	}{
		{sec(9), 0},
		{sec(10), 0},
		{sec(11), 0.75},
		{sec(14), 1.5},
		{sec(18), 0.75},
		{sec(20), 0},
	}
	for _, tt := range tests {
		if got := AudioGain(c, tt.at); !near(got, tt.want) {
			t.Errorf("gain at %v: expected %v, got %v", tt.at, tt.want, got)
		}
	}

	c.Muted = true
	if got := AudioGain(c, sec(14)); got != 0 {
		t.Errorf("muted clip should be silent, got %v", got)
	}
}

func TestActiveTextInInsertionOrder(t *testing.T) {
	tl := timeline.New()
	tl.AddTextOverlay(timeline.TextOverlaySpec{Text: "first", Duration: sec(5)})
	tl.AddTextOverlay(timeline.TextOverlaySpec{Text: "second", Duration: sec(5)})
	tl.AddTextOverlay(timeline.TextOverlaySpec{Text: "later", StartTime: sec(6)})

	f := Resolve(tl.Snapshot(), sec(1))
	if len(f.Text) != 2 || f.Text[0].Overlay.Text != "first" || f.Text[1].Overlay.Text != "second" {
		t.Errorf("unexpected text layers %+v", f.Text)
	}
}
