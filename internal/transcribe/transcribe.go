// Package transcribe turns the timeline's audio into timed text. The mixed
// audio is rendered without its silent gaps, sent to a speech-to-text model,
// and the returned segments are mapped back onto timeline time.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// ErrNoAudio is returned when no clip on the timeline is heard.
var ErrNoAudio = errors.New("no audible clips to transcribe")

// Segment is one span of recognised speech.
type Segment struct {
	Text     string
	Start    time.Duration
	Duration time.Duration
}

// Transcript is the timeline's speech, segments in timeline order.
type Transcript struct {
	Segments []Segment
}

// Text joins the segments into plain text, one per line.
func (t Transcript) Text() string {
	lines := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		lines[i] = s.Text
	}
	return strings.Join(lines, "\n")
}

// Timed prefixes each line with its timeline position.
func (t Transcript) Timed() string {
	var sb strings.Builder
	for _, s := range t.Segments {
		fmt.Fprintf(&sb, "[%s] %s\n", util.FormatClock(s.Start), s.Text)
	}
	return sb.String()
}

// Transcriber recognises speech in an audio file. Segment times are
// relative to the start of the file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

// AudioExtractor renders a job's audible audio to a file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, job render.Job, output string, format ffmpeg.AudioFormat, progressFunc func(ffmpeg.Progress)) (ffmpeg.AudioPlan, error)
}

// Service runs extraction and recognition for a timeline.
type Service struct {
	audio   AudioExtractor
	model   Transcriber
	tempDir string
	logger  zerolog.Logger
}

// New creates a Service. Scratch audio goes under tempDir, or the system
// temp directory when empty.
func New(audio AudioExtractor, model Transcriber, tempDir string, logger zerolog.Logger) *Service {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Service{
		audio:   audio,
		model:   model,
		tempDir: tempDir,
		logger:  logging.Component(logger, "transcribe"),
	}
}

// Transcribe recognises the speech in job and returns it in timeline time.
func (s *Service) Transcribe(ctx context.Context, job render.Job) (Transcript, error) {
	if len(job.AudibleSpans()) == 0 {
		return Transcript{}, ErrNoAudio
	}

	path := filepath.Join(s.tempDir, "clipforge-transcribe-"+uuid.NewString()+".wav")
	defer util.CleanupFiles(path)

	started := time.Now()
	plan, err := s.audio.ExtractAudio(ctx, job, path, ffmpeg.DefaultWhisperFormat(), nil)
	if err != nil {
		return Transcript{}, fmt.Errorf("extract timeline audio: %w", err)
	}
	s.logger.Debug().
		Int("spans", len(plan.Spans)).
		Dur("audio", plan.Duration).
		Dur("elapsed", time.Since(started)).
		Msg("timeline audio ready")

	segments, err := s.model.Transcribe(ctx, path)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcribe: %w", err)
	}

	out := Transcript{Segments: ToTimeline(segments, plan.Spans)}
	s.logger.Info().
		Int("segments", len(out.Segments)).
		Dur("elapsed", time.Since(started)).
		Msg("transcription complete")
	return out, nil
}

// ToTimeline maps segments timed against gap-free audio back onto the
// timeline. spans are the timeline ranges the audio was cut from, in order.
// A segment keeps its duration; only its start moves. Segments with no text
// are dropped and starts past the end of the audio continue after the last
// span.
func ToTimeline(segments []Segment, spans []render.Span) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out = append(out, Segment{
			Text:     text,
			Start:    timelineTime(max(seg.Start, 0), spans),
			Duration: max(seg.Duration, 0),
		})
	}
	return out
}

func timelineTime(at time.Duration, spans []render.Span) time.Duration {
	if len(spans) == 0 {
		return at
	}
	var offset time.Duration
	for _, s := range spans {
		if at < offset+s.Len() {
			return s.Start + at - offset
		}
		offset += s.Len()
	}
	return spans[len(spans)-1].End + at - offset
}
