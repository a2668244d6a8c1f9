// Package overlays computes how timed text overlays look at a given moment:
// animation state, anchor position and colours. Preview and export both use
// it so the two agree.
package overlays

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

const (
	// AnimationPeriod is how long an entrance or exit animation runs.
	AnimationPeriod = 500 * time.Millisecond

	// SlideDistance is how far, in percent of the frame, a slide-in starts
	// from its resting position.
	SlideDistance = 20.0
)

// State is the animated appearance of an overlay. DX and DY are offsets in
// percent of the frame.
type State struct {
	Opacity float64
	DX      float64
	DY      float64
}

// Period returns the animation length for an overlay, never more than half
// its duration.
func Period(o timeline.TextOverlay) time.Duration {
	return min(AnimationPeriod, o.Duration/2)
}

// At returns the overlay state at timeline position t. Outside the overlay's
// span the opacity is zero.
func At(o timeline.TextOverlay, t time.Duration) State {
	if !o.Contains(t) {
		return State{}
	}
	p := Period(o)
	local := t - o.StartTime
	in := 1.0
	if p > 0 && local < p {
		in = float64(local) / float64(p)
	}

	switch o.Animation {
	case timeline.AnimationFadeIn:
		return State{Opacity: in}
	case timeline.AnimationFadeOut:
		remaining := o.Duration - local
		out := 1.0
		if p > 0 && remaining < p {
			out = float64(remaining) / float64(p)
		}
		return State{Opacity: out}
	case timeline.AnimationSlideInLeft:
		return State{Opacity: 1, DX: -SlideDistance * (1 - in)}
	case timeline.AnimationSlideInRight:
		return State{Opacity: 1, DX: SlideDistance * (1 - in)}
	case timeline.AnimationSlideInTop:
		return State{Opacity: 1, DY: -SlideDistance * (1 - in)}
	case timeline.AnimationSlideInBottom:
		return State{Opacity: 1, DY: SlideDistance * (1 - in)}
	}
	return State{Opacity: 1}
}

// Origin returns the top-left pixel of a text box of width textW placed by
// the overlay's anchor (X centres the box, Y is its top edge) in a
// frameW x frameH frame, after applying the animation offsets in s.
func Origin(o timeline.TextOverlay, s State, frameW, frameH, textW int) (x, y int) {
	cx := float64(frameW) * (o.X + s.DX) / 100
	top := float64(frameH) * (o.Y + s.DY) / 100
	return int(cx - float64(textW)/2), int(top)
}

// ParseHexColor parses #RRGGBB or #RGB.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// FFmpegColor renders a colour for drawtext, optionally with alpha.
// Unparseable input falls back to white.
func FFmpegColor(s string, alpha float64) string {
	c, err := ParseHexColor(s)
	if err != nil {
		c = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	out := fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
	if alpha < 1 {
		out += "@" + strconv.FormatFloat(max(alpha, 0), 'f', 2, 64)
	}
	return out
}

// FontRegistry maps font family names to font files.
type FontRegistry struct {
	fonts map[string]string
}

// NewFontRegistry creates an empty registry.
func NewFontRegistry() *FontRegistry {
	return &FontRegistry{
		fonts: make(map[string]string),
	}
}

// Register adds a font file for a family. Names are case-insensitive.
func (r *FontRegistry) Register(family, path string) {
	r.fonts[strings.ToLower(family)] = path
}

// Lookup returns the font file for a family.
func (r *FontRegistry) Lookup(family string) (string, bool) {
	if r == nil {
		return "", false
	}
	path, ok := r.fonts[strings.ToLower(family)]
	return path, ok
}

// Families lists the registered family names in sorted order.
func (r *FontRegistry) Families() []string {
	names := make([]string, 0, len(r.fonts))
	for name := range r.fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
