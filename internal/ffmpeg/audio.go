package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// AudioFormat defines audio extraction format options
type AudioFormat struct {
	Codec      string
	SampleRate int
	Channels   int
	Bitrate    string
}

// DefaultWhisperFormat is 16kHz mono PCM, what speech models expect.
func DefaultWhisperFormat() AudioFormat {
	return AudioFormat{
		Codec:      "pcm_s16le",
		SampleRate: 16000,
		Channels:   1,
	}
}

// AudioPlan renders the mixed timeline audio without the gaps where
// nothing is heard. Spans lists the timeline ranges kept, in the order they
// appear in the output.
type AudioPlan struct {
	Inputs   []string
	Filter   string
	Label    string
	Spans    []render.Span
	Duration time.Duration
}

// BuildAudioPlan mixes the job's audio the same way the export does and
// cuts it down to the audible spans.
func BuildAudioPlan(job render.Job) (AudioPlan, error) {
	spans := job.AudibleSpans()
	if len(spans) == 0 {
		return AudioPlan{}, fmt.Errorf("job has no audible clips")
	}
	total := spans[len(spans)-1].End

	// Input 0 is the silent bed, clips follow.
	inputs := []string{
		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", DefaultSampleRate),
	}
	var placements []clipPlacement
	for i, c := range job.Clips {
		if !c.Audible() {
			continue
		}
		placements = append(placements, clipPlacement{clip: c, input: 1 + len(placements), listIndex: i})
		inputs = append(inputs,
			"-ss", util.FormatSeconds(c.InPoint),
			"-t", util.FormatSeconds(c.Duration()),
			"-i", c.SourcePath,
		)
	}

	g := &Graph{}
	mixed := mixAudio(g, 0, placements, total)

	var length time.Duration
	for _, s := range spans {
		length += s.Len()
	}

	if len(spans) == 1 {
		g.Chain([]string{mixed}, NewFilterBuilder().AudioRange(spans[0].Start, spans[0].End).AudioResetPTS(), "aspeech")
	} else {
		parts := make([]string, len(spans))
		cuts := make([]string, len(spans))
		for k := range spans {
			parts[k] = fmt.Sprintf("as%d", k)
			cuts[k] = fmt.Sprintf("at%d", k)
		}
		g.Chain([]string{mixed}, NewFilterBuilder().Custom(fmt.Sprintf("asplit=%d", len(spans))), parts...)
		for k, s := range spans {
			g.Chain([]string{parts[k]}, NewFilterBuilder().AudioRange(s.Start, s.End).AudioResetPTS(), cuts[k])
		}
		g.Chain(cuts, NewFilterBuilder().Custom(fmt.Sprintf("concat=n=%d:v=0:a=1", len(spans))), "aspeech")
	}

	return AudioPlan{
		Inputs:   inputs,
		Filter:   g.String(),
		Label:    "aspeech",
		Spans:    spans,
		Duration: length,
	}, nil
}

// Args returns the ffmpeg argument list writing the audio to output.
func (p AudioPlan) Args(format AudioFormat, output string) []string {
	args := slices.Clone(p.Inputs)
	args = append(args,
		"-filter_complex", p.Filter,
		"-map", "["+p.Label+"]",
		"-vn",
		"-acodec", format.Codec,
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
	)
	if format.Bitrate != "" {
		args = append(args, "-b:a", format.Bitrate)
	}
	return append(args, "-t", util.FormatSeconds(p.Duration), output)
}

// ExtractAudio writes the job's audible audio to output and returns the plan
// it ran, whose Spans map output time back onto the timeline.
func (e *Executor) ExtractAudio(ctx context.Context, job render.Job, output string, format AudioFormat, progressFunc func(Progress)) (AudioPlan, error) {
	plan, err := BuildAudioPlan(job)
	if err != nil {
		return AudioPlan{}, err
	}
	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return AudioPlan{}, fmt.Errorf("create audio directory: %w", err)
	}

	e.logger.Info().
		Str("output", output).
		Str("codec", format.Codec).
		Int("sample_rate", format.SampleRate).
		Str("spans", plan.String()).
		Dur("duration", plan.Duration).
		Msg("extracting audio")

	err = e.Run(ctx, RunOptions{
		Args:            plan.Args(format, output),
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio extraction")
		},
	})
	if err != nil {
		_ = os.Remove(output)
		if IsCancelled(err) {
			return AudioPlan{}, err
		}
		return AudioPlan{}, fmt.Errorf("extract audio: %w", err)
	}
	return plan, nil
}

// String describes the kept spans, for logs.
func (p AudioPlan) String() string {
	parts := make([]string, len(p.Spans))
	for i, s := range p.Spans {
		parts[i] = util.FormatSeconds(s.Start) + "-" + util.FormatSeconds(s.End)
	}
	return strings.Join(parts, ",")
}
