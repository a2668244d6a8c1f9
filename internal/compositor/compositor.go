// Package compositor decides what is visible and audible at a point on the
// timeline: which clips are active, in what order, at what opacity and
// geometry, which source frame each shows and which text overlays sit on top.
package compositor

import (
	"image"
	"slices"
	"time"

	"github.com/kikiluvv/clipforge/internal/overlays"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// Picture-in-picture inset geometry.
const (
	PiPScale  = 0.25
	PiPMargin = 20
)

type Geometry int

const (
	FullFrame Geometry = iota
	PictureInPicture
)

func (g Geometry) String() string {
	if g == PictureInPicture {
		return "pip"
	}
	return "full"
}

// Layer is one clip as it should be drawn. Layers are ordered bottom to top
// and Z is the index in that order.
type Layer struct {
	Clip         timeline.Clip
	SourceTime   time.Duration
	Opacity      float64
	Gain         float64
	Geometry     Geometry
	InTransition bool
	Z            int
}

// TextLayer is an overlay with its animation state.
type TextLayer struct {
	Overlay timeline.TextOverlay
	State   overlays.State
}

// ActiveTransition describes the transition in effect at the query time.
type ActiveTransition struct {
	Transition timeline.Transition
	Start      time.Duration
	End        time.Duration
	Progress   float64
	Before     float64
	After      float64
}

// Frame is everything needed to draw one output instant.
type Frame struct {
	Time       time.Duration
	Layers     []Layer
	Text       []TextLayer
	Transition *ActiveTransition
	// Black is the share of the frame that is pure black because of a
	// fade-to-black, from 0 to 1.
	Black float64
}

// ActiveClips returns the clips covering t, sorted by track and then by
// start time.
func ActiveClips(snap timeline.Snapshot, t time.Duration) []timeline.Clip {
	var active []timeline.Clip
	for _, c := range snap.Clips {
		if c.Contains(t) {
			active = append(active, c)
		}
	}
	sortLayers(active)
	return active
}

func sortLayers(clips []timeline.Clip) {
	slices.SortStableFunc(clips, func(a, b timeline.Clip) int {
		if a.Track != b.Track {
			return a.Track - b.Track
		}
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		}
		return 0
	})
}

// FindTransition returns the first transition whose window contains t
// (inclusive at both ends) and whose clips both exist. Dangling transitions
// are skipped.
func FindTransition(snap timeline.Snapshot, t time.Duration) (ActiveTransition, bool) {
	for _, tr := range snap.Transitions {
		before, ok := snap.Clip(tr.ClipIDBefore)
		if !ok {
			continue
		}
		if _, ok := snap.Clip(tr.ClipIDAfter); !ok {
			continue
		}
		start, end := tr.Window(before)
		if t < start || t > end {
			continue
		}
		progress := 1.0
		if tr.Duration > 0 {
			progress = clamp01(float64(t-start) / float64(tr.Duration))
		}
		b, a := Opacity(tr.Type, progress)
		return ActiveTransition{
			Transition: tr,
			Start:      start,
			End:        end,
			Progress:   progress,
			Before:     b,
			After:      a,
		}, true
	}
	return ActiveTransition{}, false
}

// Opacity returns the opacity of the outgoing and incoming clip at a given
// transition progress. Wipes are drawn as crossfades, as is any unknown type.
func Opacity(typ timeline.TransitionType, progress float64) (before, after float64) {
	p := clamp01(progress)
	switch typ {
	case timeline.TransitionFade:
		if p < 0.5 {
			return 1 - p/0.5, 0
		}
		return 0, (p - 0.5) / 0.5
	case timeline.TransitionFadeToBlack:
		switch {
		case p <= 0.4:
			return 1 - p/0.4, 0
		case p < 0.6:
			return 0, 0
		default:
			return 0, (p - 0.6) / 0.4
		}
	default:
		return 1 - p, p
	}
}

// SourceTime maps timeline position t into the clip's source media, clamped
// to the clip's trim range.
func SourceTime(c timeline.Clip, t time.Duration) time.Duration {
	st := c.InPoint + (t - c.StartTime)
	return min(max(st, c.InPoint), c.OutPoint)
}

// AudioGain is the linear gain of a clip at timeline position t, including
// fade envelopes measured from the clip's start on the timeline.
func AudioGain(c timeline.Clip, t time.Duration) float64 {
	if c.Muted {
		return 0
	}
	local := t - c.StartTime
	if local < 0 || local >= c.Duration {
		return 0
	}
	gain := float64(c.Volume) / 100
	if c.FadeIn > 0 && local < c.FadeIn {
		gain *= float64(local) / float64(c.FadeIn)
	}
	if c.FadeOut > 0 && local > c.Duration-c.FadeOut {
		gain *= float64(c.Duration-local) / float64(c.FadeOut)
	}
	return gain
}

// ActiveText returns the overlays visible at t in insertion order, so later
// overlays draw on top.
func ActiveText(snap timeline.Snapshot, t time.Duration) []TextLayer {
	var out []TextLayer
	for _, o := range snap.TextOverlays {
		if o.Contains(t) {
			out = append(out, TextLayer{Overlay: o, State: overlays.At(o, t)})
		}
	}
	return out
}

// Resolve computes the frame at timeline position t.
func Resolve(snap timeline.Snapshot, t time.Duration) Frame {
	frame := Frame{Time: t}
	active := ActiveClips(snap, t)

	at, inTransition := FindTransition(snap, t)
	if inTransition {
		frame.Transition = &at
		for _, id := range []int{at.Transition.ClipIDBefore, at.Transition.ClipIDAfter} {
			if !slices.ContainsFunc(active, func(c timeline.Clip) bool { return c.ID == id }) {
				c, _ := snap.Clip(id)
				active = append(active, c)
			}
		}
		sortLayers(active)
		liftAfterClip(active, at.Transition)
		if at.Transition.Type == timeline.TransitionFadeToBlack {
			frame.Black = clamp01(1 - at.Before - at.After)
		}
	}

	for i, c := range active {
		layer := Layer{
			Clip:       c,
			SourceTime: SourceTime(c, t),
			Opacity:    1,
			Gain:       AudioGain(c, t),
			Z:          i,
		}
		switch {
		case inTransition && c.ID == at.Transition.ClipIDBefore:
			layer.Opacity = at.Before
			layer.InTransition = true
		case inTransition && c.ID == at.Transition.ClipIDAfter:
			layer.Opacity = at.After
			layer.InTransition = true
		case i > 0 && c.Track > 0:
			layer.Geometry = PictureInPicture
		}
		frame.Layers = append(frame.Layers, layer)
	}

	frame.Text = ActiveText(snap, t)
	return frame
}

// liftAfterClip moves the incoming clip directly above the outgoing one
// when track order put it underneath.
func liftAfterClip(clips []timeline.Clip, tr timeline.Transition) {
	bi := slices.IndexFunc(clips, func(c timeline.Clip) bool { return c.ID == tr.ClipIDBefore })
	ai := slices.IndexFunc(clips, func(c timeline.Clip) bool { return c.ID == tr.ClipIDAfter })
	if bi < 0 || ai < 0 || ai > bi {
		return
	}
	after := clips[ai]
	copy(clips[ai:bi], clips[ai+1:bi+1])
	clips[bi] = after
}

// PiPRect returns the inset rectangle for a clip of size clipW x clipH on a
// canvas of canvasW x canvasH: a quarter of the canvas width, bottom-right,
// inset by PiPMargin pixels.
func PiPRect(canvasW, canvasH, clipW, clipH int) image.Rectangle {
	w := int(float64(canvasW) * PiPScale)
	if clipW <= 0 || clipH <= 0 {
		clipW, clipH = canvasW, canvasH
	}
	h := w * clipH / clipW
	x := canvasW - w - PiPMargin
	y := canvasH - h - PiPMargin
	return image.Rect(x, y, x+w, y+h)
}

// FitRect returns the letterboxed rectangle a clip of size clipW x clipH
// occupies when scaled to fit the canvas.
func FitRect(canvasW, canvasH, clipW, clipH int) image.Rectangle {
	if clipW <= 0 || clipH <= 0 {
		return image.Rect(0, 0, canvasW, canvasH)
	}
	w, h := canvasW, canvasW*clipH/clipW
	if h > canvasH {
		w, h = canvasH*clipW/clipH, canvasH
	}
	x := (canvasW - w) / 2
	y := (canvasH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
