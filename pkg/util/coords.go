package util

import (
	"math"
	"time"
)

// Timeline canvas geometry. Zoom is expressed in pixels per second.
const (
	DefaultPixelsPerSecond = 100.0
	MinZoom                = 10.0
	MaxZoom                = 500.0
	ZoomStep               = 1.2
	SnapThreshold          = 10.0
	TrackHeight            = 80.0
	RulerHeight            = 40.0
)

// Span is anything occupying a range on the timeline.
type Span interface {
	Start() time.Duration
	End() time.Duration
}

// Tick is a single mark on the time ruler.
type Tick struct {
	Time    time.Duration
	X       float64
	IsMajor bool
	Label   string
}

// TimeToPixels converts a timeline position to a horizontal pixel offset.
func TimeToPixels(t time.Duration, pixelsPerSecond float64) float64 {
	return t.Seconds() * pixelsPerSecond
}

// PixelsToTime converts a horizontal pixel offset back to a timeline position.
func PixelsToTime(px, pixelsPerSecond float64) time.Duration {
	if pixelsPerSecond <= 0 {
		return 0
	}
	return FromSeconds(px / pixelsPerSecond)
}

// SnapToPoints returns the first snap point within threshold of position,
// or position itself when none is close enough.
func SnapToPoints(position float64, points []float64, threshold float64) float64 {
	for _, p := range points {
		if math.Abs(position-p) <= threshold {
			return p
		}
	}
	return position
}

// ClipSnapPoints lists the pixel positions of every span edge plus the
// timeline origin.
func ClipSnapPoints[S Span](spans []S, pixelsPerSecond float64) []float64 {
	points := make([]float64, 0, 1+2*len(spans))
	points = append(points, 0)
	for _, s := range spans {
		points = append(points,
			TimeToPixels(s.Start(), pixelsPerSecond),
			TimeToPixels(s.End(), pixelsPerSecond),
		)
	}
	return points
}

// TrackIndexFromY maps a canvas y coordinate to a track index; -1 means the
// ruler area.
func TrackIndexFromY(y float64) int {
	if y < RulerHeight {
		return -1
	}
	return int(math.Floor((y - RulerHeight) / TrackHeight))
}

// TrackY returns the top y coordinate of a track row.
func TrackY(track int) float64 {
	return RulerHeight + float64(track)*TrackHeight
}

// ApplyZoom steps the zoom level in or out and clamps it.
func ApplyZoom(pixelsPerSecond float64, delta int) float64 {
	zoom := pixelsPerSecond
	switch {
	case delta > 0:
		zoom *= ZoomStep
	case delta < 0:
		zoom /= ZoomStep
	}
	return math.Max(MinZoom, math.Min(MaxZoom, zoom))
}

// RulerTicks computes the ticks visible in a viewport. The tick interval
// depends on the zoom level.
func RulerTicks(viewportWidth, scrollX, pixelsPerSecond float64) []Tick {
	if pixelsPerSecond <= 0 {
		return nil
	}

	var major, minor time.Duration
	switch {
	case pixelsPerSecond >= 200:
		major, minor = time.Second, 200*time.Millisecond
	case pixelsPerSecond >= 50:
		major, minor = 5*time.Second, time.Second
	default:
		major, minor = 10*time.Second, 2*time.Second
	}

	start := PixelsToTime(scrollX, pixelsPerSecond)
	end := PixelsToTime(scrollX+viewportWidth, pixelsPerSecond)
	first := (start / minor) * minor

	var ticks []Tick
	for t := first; t <= end+minor; t += minor {
		tick := Tick{
			Time:    t,
			X:       TimeToPixels(t, pixelsPerSecond),
			IsMajor: t%major == 0,
		}
		if tick.IsMajor {
			tick.Label = FormatClock(t)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

// ClipsOverlap reports whether two half-open spans intersect.
func ClipsOverlap(a, b Span) bool {
	return !(a.End() <= b.Start() || b.End() <= a.Start())
}
