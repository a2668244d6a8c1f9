package render

import (
	"slices"
	"testing"
	"time"
)

func audible(id int, start, length time.Duration) ClipSpec {
	return ClipSpec{ID: id, OutPoint: length, TimelineStart: start, Volume: 100, HasAudio: true}
}

func TestAudibleSpans(t *testing.T) {
	s := time.Second
	silent := audible(4, 20*s, 5*s)
	silent.HasAudio = false
	muted := audible(5, 30*s, 5*s)
	muted.Muted = true

	job := Job{Clips: []ClipSpec{
		audible(1, 8*s, 4*s),
		audible(2, 0, 5*s),
		audible(3, 3*s, 2*s), // inside clip 2
		audible(6, 12*s, time.Second),
		silent,
		muted,
	}}

	want := []Span{{0, 5 * s}, {8 * s, 13 * s}}
	if got := job.AudibleSpans(); !slices.Equal(got, want) {
		t.Errorf("AudibleSpans() = %v, want %v", got, want)
	}
}

func TestAudibleSpansEmpty(t *testing.T) {
	c := audible(1, 0, time.Second)
	c.Volume = 0
	if got := (Job{Clips: []ClipSpec{c}}).AudibleSpans(); len(got) != 0 {
		t.Errorf("a zero-volume clip is not heard, got %v", got)
	}
}

func TestResolutionSize(t *testing.T) {
	tests := []struct {
		res          Resolution
		srcW, srcH   int
		wantW, wantH int
	}{
		{Resolution720p, 1920, 1080, 1280, 720},
		{Resolution1080p, 640, 360, 1920, 1080},
		{ResolutionSource, 1279, 719, 1278, 718},
		{ResolutionSource, 0, 0, FallbackWidth, FallbackHeight},
	}
	for _, tt := range tests {
		w, h := tt.res.Size(tt.srcW, tt.srcH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("%s.Size(%d, %d) = %dx%d, want %dx%d", tt.res, tt.srcW, tt.srcH, w, h, tt.wantW, tt.wantH)
		}
	}

	if _, err := ParseResolution("4k"); err == nil {
		t.Error("ParseResolution(4k) should fail")
	}
}
