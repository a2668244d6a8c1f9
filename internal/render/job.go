// Package render defines the boundary between the export pipeline and an
// encode backend: the job description, progress reports and the backend
// interface.
package render

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

// Resolution selects the output frame size.
type Resolution string

const (
	ResolutionSource Resolution = "source"
	Resolution720p   Resolution = "720p"
	Resolution1080p  Resolution = "1080p"
)

// Fallback canvas used when the source size is unknown.
const (
	FallbackWidth  = 1920
	FallbackHeight = 1080
)

// ParseResolution accepts the config and API spellings.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case "", ResolutionSource:
		return ResolutionSource, nil
	case Resolution720p:
		return Resolution720p, nil
	case Resolution1080p:
		return Resolution1080p, nil
	}
	return "", fmt.Errorf("unknown resolution %q", s)
}

// Size returns the canvas for this resolution. For ResolutionSource the
// source dimensions are used, rounded down to even numbers for yuv420p.
func (r Resolution) Size(sourceW, sourceH int) (w, h int) {
	switch r {
	case Resolution720p:
		return 1280, 720
	case Resolution1080p:
		return 1920, 1080
	}
	if sourceW <= 0 || sourceH <= 0 {
		return FallbackWidth, FallbackHeight
	}
	return sourceW &^ 1, sourceH &^ 1
}

// ClipSpec is one clip as the backend sees it.
type ClipSpec struct {
	ID            int
	SourcePath    string
	InPoint       time.Duration
	OutPoint      time.Duration
	TimelineStart time.Duration
	Track         int
	Volume        int
	Muted         bool
	FadeIn        time.Duration
	FadeOut       time.Duration
	Width         int
	Height        int
	HasAudio      bool
}

// Duration is the clip's length on the timeline.
func (c ClipSpec) Duration() time.Duration { return c.OutPoint - c.InPoint }

// End is where the clip stops on the timeline.
func (c ClipSpec) End() time.Duration { return c.TimelineStart + c.Duration() }

// Audible reports whether the clip contributes to the mixed audio.
func (c ClipSpec) Audible() bool { return c.HasAudio && !c.Muted && c.Volume > 0 }

// Span is a half-open range of timeline time.
type Span struct {
	Start time.Duration
	End   time.Duration
}

func (s Span) Len() time.Duration { return s.End - s.Start }

// AudibleSpans returns the merged timeline ranges where at least one clip
// is heard, in timeline order. Touching ranges are joined.
func (j Job) AudibleSpans() []Span {
	var spans []Span
	for _, c := range j.Clips {
		if c.Audible() && c.Duration() > 0 {
			spans = append(spans, Span{Start: c.TimelineStart, End: c.End()})
		}
	}
	slices.SortFunc(spans, func(a, b Span) int { return cmp.Compare(a.Start, b.Start) })

	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && s.Start <= merged[n-1].End {
			merged[n-1].End = max(merged[n-1].End, s.End)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

type TransitionSpec struct {
	ClipIDBefore int
	ClipIDAfter  int
	Type         timeline.TransitionType
	Duration     time.Duration
}

type TextSpec struct {
	ID                int
	Text              string
	Start             time.Duration
	Duration          time.Duration
	X                 float64
	Y                 float64
	FontFamily        string
	FontSize          int
	Color             string
	BackgroundColor   string
	BackgroundOpacity float64
	Animation         timeline.Animation
}

// Job is a complete, self-contained description of one export.
type Job struct {
	ID           string
	Clips        []ClipSpec
	Transitions  []TransitionSpec
	TextOverlays []TextSpec
	OutputPath   string
	Resolution   Resolution
	Width        int
	Height       int
	FPS          int
	CRF          int
	Preset       string
	AudioBitrate string
	Duration     time.Duration
}

// Clip looks up a clip in the job by id.
func (j Job) Clip(id int) (ClipSpec, bool) {
	for _, c := range j.Clips {
		if c.ID == id {
			return c, true
		}
	}
	return ClipSpec{}, false
}

// Progress is what a poller sees. ETASeconds is nil until an estimate exists.
type Progress struct {
	Percentage float64  `json:"percentage"`
	Operation  string   `json:"currentOperation"`
	ETASeconds *float64 `json:"etaSeconds"`
}

// ProgressSink receives progress from a backend.
type ProgressSink interface {
	Report(Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Progress)

func (f ProgressFunc) Report(p Progress) { f(p) }

// Backend encodes a job into Job.OutputPath. Implementations must honour ctx
// cancellation and must not leave a partial file at OutputPath.
type Backend interface {
	Render(ctx context.Context, job Job, sink ProgressSink) error
}
