package timeline

import (
	"time"
)

const (
	// MinClipDuration is the shortest clip a trim may produce.
	MinClipDuration = 100 * time.Millisecond

	// MinTextOverlayDuration keeps overlays visible and grabbable.
	MinTextOverlayDuration = 500 * time.Millisecond

	MinTransitionDuration = 500 * time.Millisecond
	MaxTransitionDuration = 3 * time.Second

	DefaultVolume = 100
	MaxVolume     = 200

	MinFontSize = 12
	MaxFontSize = 120

	DefaultTextDuration = 3 * time.Second
)

// Metadata is the media asset snapshot copied into a clip when it is placed.
type Metadata struct {
	Filename string
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
}

// Clip is a trimmed placement of a media asset on a track.
type Clip struct {
	ID        int
	MediaID   int
	Track     int
	StartTime time.Duration
	InPoint   time.Duration
	OutPoint  time.Duration
	Duration  time.Duration

	// SourceDuration bounds OutPoint. It is Metadata.Duration when known,
	// otherwise the out point the clip was added with.
	SourceDuration time.Duration

	Volume  int
	Muted   bool
	FadeIn  time.Duration
	FadeOut time.Duration

	Metadata Metadata
}

func (c Clip) Start() time.Duration { return c.StartTime }
func (c Clip) End() time.Duration   { return c.StartTime + c.Duration }

// Contains reports whether t falls in [start, end).
func (c Clip) Contains(t time.Duration) bool {
	return c.StartTime <= t && t < c.End()
}

// ClipSpec describes a clip to add. Zero OutPoint means InPoint+Duration.
type ClipSpec struct {
	MediaID   int
	Track     int
	StartTime time.Duration
	Duration  time.Duration
	InPoint   time.Duration
	OutPoint  time.Duration
	Volume    *int
	Muted     bool
	FadeIn    time.Duration
	FadeOut   time.Duration
	Metadata  Metadata
}

// ClipUpdate is a partial update; nil fields are left alone.
type ClipUpdate struct {
	Track     *int
	StartTime *time.Duration
	InPoint   *time.Duration
	OutPoint  *time.Duration
	Volume    *int
	Muted     *bool
	FadeIn    *time.Duration
	FadeOut   *time.Duration
}

type Animation string

const (
	AnimationNone          Animation = "none"
	AnimationFadeIn        Animation = "fadeIn"
	AnimationFadeOut       Animation = "fadeOut"
	AnimationSlideInLeft   Animation = "slideInLeft"
	AnimationSlideInRight  Animation = "slideInRight"
	AnimationSlideInTop    Animation = "slideInTop"
	AnimationSlideInBottom Animation = "slideInBottom"
)

// Valid reports whether a is a known animation.
func (a Animation) Valid() bool {
	switch a {
	case AnimationNone, AnimationFadeIn, AnimationFadeOut,
		AnimationSlideInLeft, AnimationSlideInRight,
		AnimationSlideInTop, AnimationSlideInBottom:
		return true
	}
	return false
}

// TextOverlay is timed text positioned in frame percentages. X is the
// horizontal centre of the text box, Y is the top edge of the box measured
// from the top of the frame.
type TextOverlay struct {
	ID                int
	Text              string
	StartTime         time.Duration
	Duration          time.Duration
	X                 float64
	Y                 float64
	FontFamily        string
	FontSize          int
	Color             string
	BackgroundColor   string
	BackgroundOpacity float64
	Animation         Animation
}

func (o TextOverlay) Start() time.Duration { return o.StartTime }
func (o TextOverlay) End() time.Duration   { return o.StartTime + o.Duration }

func (o TextOverlay) Contains(t time.Duration) bool {
	return o.StartTime <= t && t < o.End()
}

// TextOverlaySpec describes an overlay to add. Zero values take defaults.
type TextOverlaySpec struct {
	Text              string
	StartTime         time.Duration
	Duration          time.Duration
	X                 *float64
	Y                 *float64
	FontFamily        string
	FontSize          int
	Color             string
	BackgroundColor   string
	BackgroundOpacity float64
	Animation         Animation
}

type TextOverlayUpdate struct {
	Text              *string
	StartTime         *time.Duration
	Duration          *time.Duration
	X                 *float64
	Y                 *float64
	FontFamily        *string
	FontSize          *int
	Color             *string
	BackgroundColor   *string
	BackgroundOpacity *float64
	Animation         *Animation
}

type TransitionType string

const (
	TransitionFade        TransitionType = "fade"
	TransitionCrossfade   TransitionType = "crossfade"
	TransitionFadeToBlack TransitionType = "fadeToBlack"
	TransitionWipeLeft    TransitionType = "wipeLeft"
	TransitionWipeRight   TransitionType = "wipeRight"
	TransitionDissolve    TransitionType = "dissolve"
)

// Transition blends the end of one clip into the start of another.
type Transition struct {
	ID           int
	ClipIDBefore int
	ClipIDAfter  int
	Type         TransitionType
	Duration     time.Duration
}

// Window returns the span the transition covers given the clip it leaves.
func (tr Transition) Window(before Clip) (start, end time.Duration) {
	boundary := before.End()
	return boundary - tr.Duration/2, boundary + tr.Duration - tr.Duration/2
}

type TransitionSpec struct {
	ClipIDBefore int
	ClipIDAfter  int
	Type         TransitionType
	Duration     time.Duration
}

type TransitionUpdate struct {
	Type     *TransitionType
	Duration *time.Duration
}
