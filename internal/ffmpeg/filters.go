package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/clipforge/pkg/util"
)

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// Fit scales to fit inside width x height and pads the rest with black.
func (fb *FilterBuilder) Fit(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", width, height),
		"setsar=1",
	)
	return fb
}

// ScaleWidth scales to a fixed width keeping the aspect ratio, with an even
// height.
func (fb *FilterBuilder) ScaleWidth(width int) *FilterBuilder {
	if width <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:-2", width), "setsar=1")
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps int) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%d", fps))
	return fb
}

// Format forces a pixel format.
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// Pad extends the stream by cloning its first and last frames.
func (fb *FilterBuilder) Pad(start, stop time.Duration) *FilterBuilder {
	if start <= 0 && stop <= 0 {
		return fb
	}
	var opts []string
	if start > 0 {
		opts = append(opts, "start_mode=clone", "start_duration="+util.FormatSeconds(start))
	}
	if stop > 0 {
		opts = append(opts, "stop_mode=clone", "stop_duration="+util.FormatSeconds(stop))
	}
	fb.filters = append(fb.filters, "tpad="+strings.Join(opts, ":"))
	return fb
}

// Offset rebases timestamps so the stream starts at the given timeline
// position.
func (fb *FilterBuilder) Offset(start time.Duration) *FilterBuilder {
	if start <= 0 {
		fb.filters = append(fb.filters, "setpts=PTS-STARTPTS")
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", util.FormatSeconds(start)))
	return fb
}

// AlphaFadeIn makes the stream fade from transparent to opaque.
func (fb *FilterBuilder) AlphaFadeIn(start, duration time.Duration) *FilterBuilder {
	return fb.fade("in", start, duration, true)
}

// AlphaFadeOut makes the stream fade from opaque to transparent and stay
// transparent.
func (fb *FilterBuilder) AlphaFadeOut(start, duration time.Duration) *FilterBuilder {
	return fb.fade("out", start, duration, true)
}

func (fb *FilterBuilder) fade(dir string, start, duration time.Duration, alpha bool) *FilterBuilder {
	if duration <= 0 {
		return fb
	}
	f := fmt.Sprintf("fade=t=%s:st=%s:d=%s", dir, util.FormatSeconds(start), util.FormatSeconds(duration))
	if alpha {
		f += ":alpha=1"
	}
	fb.filters = append(fb.filters, f)
	return fb
}

// AudioResetPTS rebases audio timestamps to zero.
func (fb *FilterBuilder) AudioResetPTS() *FilterBuilder {
	fb.filters = append(fb.filters, "asetpts=PTS-STARTPTS")
	return fb
}

// AudioTrim cuts the audio to duration.
func (fb *FilterBuilder) AudioTrim(duration time.Duration) *FilterBuilder {
	fb.filters = append(fb.filters, "atrim=duration="+util.FormatSeconds(duration))
	return fb
}

// AudioRange keeps the audio between from and to.
func (fb *FilterBuilder) AudioRange(from, to time.Duration) *FilterBuilder {
	fb.filters = append(fb.filters, "atrim=start="+util.FormatSeconds(from)+":end="+util.FormatSeconds(to))
	return fb
}

// AudioVolume scales audio by a linear factor
func (fb *FilterBuilder) AudioVolume(gain float64) *FilterBuilder {
	if gain == 1 {
		return fb
	}
	fb.filters = append(fb.filters, "volume="+strconv.FormatFloat(gain, 'f', 2, 64))
	return fb
}

// AudioFade adds afade envelopes measured from the start of a stream of the
// given length.
func (fb *FilterBuilder) AudioFade(fadeIn, fadeOut, length time.Duration) *FilterBuilder {
	if fadeIn > 0 {
		fb.filters = append(fb.filters, "afade=t=in:st=0:d="+util.FormatSeconds(min(fadeIn, length)))
	}
	if fadeOut > 0 {
		fadeOut = min(fadeOut, length)
		fb.filters = append(fb.filters, fmt.Sprintf("afade=t=out:st=%s:d=%s",
			util.FormatSeconds(length-fadeOut), util.FormatSeconds(fadeOut)))
	}
	return fb
}

// AudioDelay delays every channel by d.
func (fb *FilterBuilder) AudioDelay(d time.Duration) *FilterBuilder {
	if d <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("adelay=%d:all=1", d.Milliseconds()))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// BuildAll returns all filters as a slice
func (fb *FilterBuilder) BuildAll() []string {
	return fb.filters
}

// Graph is a filter_complex made of labelled chains.
type Graph struct {
	chains []string
}

// Chain appends "[in...]filters[out...]". An empty chain becomes a
// passthrough.
func (g *Graph) Chain(inputs []string, fb *FilterBuilder, outputs ...string) {
	filters := fb.Build()
	if filters == "" {
		if len(inputs) > 0 && strings.HasSuffix(inputs[0], ":a") {
			filters = "anull"
		} else {
			filters = "null"
		}
	}
	var sb strings.Builder
	for _, in := range inputs {
		sb.WriteString("[" + in + "]")
	}
	sb.WriteString(filters)
	for _, out := range outputs {
		sb.WriteString("[" + out + "]")
	}
	g.chains = append(g.chains, sb.String())
}

// Len is the number of chains.
func (g *Graph) Len() int { return len(g.chains) }

// String joins the chains with semicolons.
func (g *Graph) String() string {
	return strings.Join(g.chains, ";")
}

// escapeOption escapes a value for the filter option parser.
func escapeOption(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	return r.Replace(s)
}

// escapeGraph escapes a value for the filtergraph parser, which runs before
// the option parser.
func escapeGraph(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
	return r.Replace(s)
}

// filterValue escapes free text so it reaches a filter option unchanged.
func filterValue(s string) string {
	return escapeGraph(escapeOption(s))
}
