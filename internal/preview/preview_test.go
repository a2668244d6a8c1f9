package preview

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

// solidSource returns a flat colour per file path.
type solidSource map[string]color.RGBA

func (s solidSource) ExtractFrame(_ context.Context, path string, _ time.Duration, w, h int) (image.Image, error) {
	c, ok := s[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img, nil
}

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

func sec(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

func meta(path string) timeline.Metadata {
	return timeline.Metadata{Path: path, Duration: sec(20), Width: 1920, Height: 1080}
}

func newRenderer() *Renderer {
	src := solidSource{"/a.mp4": red, "/b.mp4": blue, "/c.mp4": green}
	return New(src, nil, 320, 180, zerolog.Nop())
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func TestRenderSingleClip(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(5), Metadata: meta("/a.mp4")})

	img, err := newRenderer().Render(context.Background(), tl.Snapshot(), sec(1))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := img.RGBAAt(160, 90); got != red {
		t.Errorf("expected red, got %v", got)
	}
}

func TestRenderCrossfadeMidpoint(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(5), Metadata: meta("/a.mp4")})
	tl.AddClip(timeline.ClipSpec{StartTime: sec(5), Duration: sec(5), Metadata: meta("/b.mp4")})
	tl.AddTransition(timeline.TransitionSpec{ClipIDBefore: 1, ClipIDAfter: 2, Type: timeline.TransitionCrossfade, Duration: sec(2)})

	img, err := newRenderer().Render(context.Background(), tl.Snapshot(), sec(5))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	got := img.RGBAAt(160, 90)
	if !near(got.R, 128) || !near(got.B, 128) || got.G != 0 {
		t.Errorf("expected an even red/blue mix, got %v", got)
	}
}

func TestRenderFadeToBlackMidpoint(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(5), Metadata: meta("/a.mp4")})
	tl.AddClip(timeline.ClipSpec{StartTime: sec(5), Duration: sec(5), Metadata: meta("/b.mp4")})
	tl.AddTransition(timeline.TransitionSpec{ClipIDBefore: 1, ClipIDAfter: 2, Type: timeline.TransitionFadeToBlack, Duration: sec(2)})

	img, err := newRenderer().Render(context.Background(), tl.Snapshot(), sec(5))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := img.RGBAAt(160, 90); got != (color.RGBA{A: 255}) {
		t.Errorf("expected black, got %v", got)
	}
}

func TestRenderPictureInPicture(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(10), Metadata: meta("/a.mp4")})
	tl.AddClip(timeline.ClipSpec{Track: 1, Duration: sec(10), Metadata: meta("/c.mp4")})

	img, err := newRenderer().Render(context.Background(), tl.Snapshot(), sec(1))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// inset is 80x45 at the bottom-right with a 20px margin
	if got := img.RGBAAt(250, 130); got != green {
		t.Errorf("expected inset green, got %v", got)
	}
	if got := img.RGBAAt(10, 10); got != red {
		t.Errorf("expected base red, got %v", got)
	}
}

func TestRenderMissingFrameLeavesBlack(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(5), Metadata: meta("/missing.mp4")})

	img, err := newRenderer().Render(context.Background(), tl.Snapshot(), sec(1))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := img.RGBAAt(160, 90); got != (color.RGBA{A: 255}) {
		t.Errorf("expected black, got %v", got)
	}
}

func TestRenderText(t *testing.T) {
	tl := timeline.New()
	tl.AddTextOverlay(timeline.TextOverlaySpec{Text: "HELLO", Duration: sec(5), BackgroundOpacity: 1, BackgroundColor: "#0000FF"})

	img, err := newRenderer().Render(context.Background(), tl.Snapshot(), sec(1))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	// Y=80% puts the box top at row 144.
	var white, boxed int
	for y := 140; y < 165; y++ {
		for x := 120; x < 200; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 200 && c.G > 200 {
				white++
			}
			if c.B == 255 && c.R == 0 {
				boxed++
			}
		}
	}
	if white == 0 {
		t.Error("no text pixels drawn")
	}
	if boxed == 0 {
		t.Error("no background box drawn")
	}
}

func TestRenderCancelled(t *testing.T) {
	tl := timeline.New()
	tl.AddClip(timeline.ClipSpec{Duration: sec(5), Metadata: meta("/a.mp4")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newRenderer().Render(ctx, tl.Snapshot(), sec(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
