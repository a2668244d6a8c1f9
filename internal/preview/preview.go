// Package preview draws approximate preview frames on the CPU from the
// compositor's layer list. Export is the reference output; the preview only
// needs to be close and fast enough for scrubbing.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"sync"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/kikiluvv/clipforge/internal/compositor"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/overlays"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// ExportHeight is the frame height font sizes are specified against.
const ExportHeight = 1080

// FrameSource decodes one source frame scaled to fit width x height.
// *ffmpeg.Executor satisfies it through ExtractFrame.
type FrameSource interface {
	ExtractFrame(ctx context.Context, path string, at time.Duration, width, height int) (image.Image, error)
}

type faceKey struct {
	path string
	size int
}

// Renderer composes preview frames.
type Renderer struct {
	src    FrameSource
	fonts  *overlays.FontRegistry
	width  int
	height int
	logger zerolog.Logger

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// New creates a renderer producing width x height frames.
func New(src FrameSource, fonts *overlays.FontRegistry, width, height int, logger zerolog.Logger) *Renderer {
	return &Renderer{
		src:    src,
		fonts:  fonts,
		width:  width,
		height: height,
		logger: logging.Component(logger, "preview"),
		faces:  make(map[faceKey]font.Face),
	}
}

// Size is the frame size.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Render draws the frame at timeline position t. Clips whose frame cannot
// be decoded are skipped.
func (r *Renderer) Render(ctx context.Context, snap timeline.Snapshot, t time.Duration) (*image.RGBA, error) {
	frame := compositor.Resolve(snap, t)
	dst := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, layer := range frame.Layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if layer.Opacity <= 0 {
			continue
		}
		c := layer.Clip
		rect := compositor.FitRect(r.width, r.height, c.Metadata.Width, c.Metadata.Height)
		if layer.Geometry == compositor.PictureInPicture {
			rect = compositor.PiPRect(r.width, r.height, c.Metadata.Width, c.Metadata.Height)
		}
		if rect.Empty() {
			continue
		}

		img, err := r.src.ExtractFrame(ctx, c.Metadata.Path, layer.SourceTime, rect.Dx(), rect.Dy())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Debug().Err(err).Int("clip_id", c.ID).Dur("source_time", layer.SourceTime).Msg("frame unavailable")
			continue
		}
		if b := img.Bounds(); b.Dx() != rect.Dx() || b.Dy() != rect.Dy() {
			img = resize.Resize(uint(rect.Dx()), uint(rect.Dy()), img, resize.Bilinear)
		}

		if layer.InTransition {
			// Both sides of a transition add up to a full frame. The export
			// instead fades the incoming clip over an opaque outgoing one; the
			// two agree over black and differ where lower tracks show through.
			addScaled(dst, rect, img, layer.Opacity)
		} else {
			drawOpacity(dst, rect, img, layer.Opacity)
		}
	}

	for _, tl := range frame.Text {
		r.drawText(dst, tl)
	}
	return dst, nil
}

// drawOpacity composites src over dst inside rect.
func drawOpacity(dst *image.RGBA, rect image.Rectangle, src image.Image, opacity float64) {
	if opacity >= 1 {
		draw.Draw(dst, rect, src, src.Bounds().Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
	draw.DrawMask(dst, rect, src, src.Bounds().Min, mask, image.Point{}, draw.Over)
}

// addScaled adds src*weight onto dst inside rect, saturating at white.
func addScaled(dst *image.RGBA, rect image.Rectangle, src image.Image, weight float64) {
	rect = rect.Intersect(dst.Bounds())
	sb := src.Bounds()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sr, sg, sbl, _ := src.At(sb.Min.X+x-rect.Min.X, sb.Min.Y+y-rect.Min.Y).RGBA()
			i := dst.PixOffset(x, y)
			dst.Pix[i+0] = addChannel(dst.Pix[i+0], sr, weight)
			dst.Pix[i+1] = addChannel(dst.Pix[i+1], sg, weight)
			dst.Pix[i+2] = addChannel(dst.Pix[i+2], sbl, weight)
			dst.Pix[i+3] = 0xff
		}
	}
}

func addChannel(d uint8, s uint32, weight float64) uint8 {
	v := float64(d) + float64(s>>8)*weight
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// drawText draws one overlay with its background box.
func (r *Renderer) drawText(dst *image.RGBA, tl compositor.TextLayer) {
	o := tl.Overlay
	if tl.State.Opacity <= 0 || o.Text == "" {
		return
	}
	face := r.face(o)

	d := &font.Drawer{Dst: dst, Face: face}
	width := d.MeasureString(o.Text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil()

	x, y := overlays.Origin(o, tl.State, r.width, r.height, width)

	if o.BackgroundOpacity > 0 {
		bg, err := overlays.ParseHexColor(o.BackgroundColor)
		if err == nil {
			pad := max(height/6, 2)
			box := image.Rect(x-pad, y-pad, x+width+pad, y+height+pad)
			drawOpacity(dst, box.Intersect(dst.Bounds()), image.NewUniform(bg), o.BackgroundOpacity*tl.State.Opacity)
		}
	}

	fg, err := overlays.ParseHexColor(o.Color)
	if err != nil {
		fg = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	a := tl.State.Opacity
	d.Src = image.NewUniform(color.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: uint8(a * 255)})
	d.Dot = fixed.P(x, y+ascent)
	d.DrawString(o.Text)
}

// face returns a font face for the overlay, scaled from export size to the
// preview height. Unknown or unreadable fonts fall back to a fixed bitmap
// face.
func (r *Renderer) face(o timeline.TextOverlay) font.Face {
	path, ok := r.fonts.Lookup(o.FontFamily)
	if !ok {
		return basicfont.Face7x13
	}
	size := max(o.FontSize*r.height/ExportHeight, 6)
	key := faceKey{path: path, size: size}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f
	}
	f, err := loadFace(path, size)
	if err != nil {
		r.logger.Warn().Err(err).Str("font", path).Msg("using fallback font")
		f = basicfont.Face7x13
	}
	r.faces[key] = f
	return f
}

func loadFace(path string, size int) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
