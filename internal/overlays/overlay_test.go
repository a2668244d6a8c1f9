package overlays

import (
	"math"
	"testing"
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

func overlay(anim timeline.Animation) timeline.TextOverlay {
	return timeline.TextOverlay{
		StartTime: 2 * time.Second,
		Duration:  4 * time.Second,
		X:         50,
		Y:         10,
		Animation: anim,
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAtOutsideSpan(t *testing.T) {
	o := overlay(timeline.AnimationNone)
	if s := At(o, time.Second); s.Opacity != 0 {
		t.Errorf("expected invisible before start, got %v", s.Opacity)
	}
	if s := At(o, 6*time.Second); s.Opacity != 0 {
		t.Errorf("expected invisible at end, got %v", s.Opacity)
	}
	if s := At(o, 3*time.Second); s.Opacity != 1 {
		t.Errorf("expected fully visible, got %v", s.Opacity)
	}
}

func TestFadeCurves(t *testing.T) {
	in := overlay(timeline.AnimationFadeIn)
	if s := At(in, 2*time.Second+250*time.Millisecond); !near(s.Opacity, 0.5) {
		t.Errorf("fadeIn midpoint: expected 0.5, got %v", s.Opacity)
	}
	if s := At(in, 5*time.Second); s.Opacity != 1 {
		t.Errorf("fadeIn after period: expected 1, got %v", s.Opacity)
	}

	out := overlay(timeline.AnimationFadeOut)
	if s := At(out, 5*time.Second+750*time.Millisecond); !near(s.Opacity, 0.5) {
		t.Errorf("fadeOut: expected 0.5, got %v", s.Opacity)
	}
}

func TestSlideOffsets(t *testing.T) {
	o := overlay(timeline.AnimationSlideInLeft)
	if s := At(o, 2*time.Second); !near(s.DX, -SlideDistance) {
		t.Errorf("expected full slide offset at start, got %v", s.DX)
	}
	if s := At(o, 3*time.Second); s.DX != 0 {
		t.Errorf("expected resting position, got %v", s.DX)
	}
	b := overlay(timeline.AnimationSlideInBottom)
	if s := At(b, 2*time.Second); !near(s.DY, SlideDistance) {
		t.Errorf("expected bottom slide offset, got %v", s.DY)
	}
}

func TestOriginCentresHorizontally(t *testing.T) {
	o := overlay(timeline.AnimationNone)
	x, y := Origin(o, State{Opacity: 1}, 1280, 720, 200)
	if x != 540 || y != 72 {
		t.Errorf("expected (540,72), got (%d,%d)", x, y)
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#FF8000")
	if err != nil {
		t.Fatal(err)
	}
	if c.R != 0xff || c.G != 0x80 || c.B != 0 {
		t.Errorf("unexpected colour %+v", c)
	}
	if _, err := ParseHexColor("#F80"); err != nil {
		t.Errorf("short form rejected: %v", err)
	}
	if _, err := ParseHexColor("red"); err == nil {
		t.Error("expected error for named colour")
	}
}

func TestFFmpegColor(t *testing.T) {
	if got := FFmpegColor("#00ff00", 1); got != "0x00FF00" {
		t.Errorf("unexpected %q", got)
	}
	if got := FFmpegColor("#000000", 0.5); got != "0x000000@0.50" {
		t.Errorf("unexpected %q", got)
	}
	if got := FFmpegColor("bogus", 1); got != "0xFFFFFF" {
		t.Errorf("expected white fallback, got %q", got)
	}
}

func TestFontRegistry(t *testing.T) {
	r := NewFontRegistry()
	r.Register("Arial", "/fonts/arial.ttf")
	if p, ok := r.Lookup("arial"); !ok || p != "/fonts/arial.ttf" {
		t.Errorf("lookup failed: %q %v", p, ok)
	}
	var nilReg *FontRegistry
	if _, ok := nilReg.Lookup("arial"); ok {
		t.Error("nil registry should find nothing")
	}
}
