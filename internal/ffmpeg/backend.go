package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/overlays"
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// Progress milestones reported during an export.
const (
	progressGraphBuilt = 5.0
	progressEncodeSpan = 90.0
	progressFinalizing = 98.0
)

// Backend renders export jobs with ffmpeg.
type Backend struct {
	exec   *Executor
	fonts  *overlays.FontRegistry
	logger zerolog.Logger
}

// NewBackend creates an export backend on top of an executor.
func NewBackend(exec *Executor, fonts *overlays.FontRegistry, logger zerolog.Logger) *Backend {
	return &Backend{
		exec:   exec,
		fonts:  fonts,
		logger: logging.Component(logger, "ffmpeg-backend"),
	}
}

// Render encodes job into job.OutputPath. Output is written to a hidden
// sibling and renamed into place only after ffmpeg exits cleanly.
func (b *Backend) Render(ctx context.Context, job render.Job, sink render.ProgressSink) (err error) {
	report := func(pct float64, op string, eta *float64) {
		if sink != nil {
			sink.Report(render.Progress{Percentage: pct, Operation: op, ETASeconds: eta})
		}
	}

	report(0, "Starting export...", nil)

	plan, err := BuildPlan(job, b.fonts)
	if err != nil {
		return fmt.Errorf("build filter graph: %w", err)
	}
	if err := util.EnsureDir(filepath.Dir(job.OutputPath)); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	partial := util.PartialPath(job.OutputPath)
	defer func() {
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	b.logger.Info().
		Str("job", job.ID).
		Str("output", job.OutputPath).
		Int("clips", len(job.Clips)).
		Int("transitions", len(job.Transitions)).
		Int("text_overlays", len(job.TextOverlays)).
		Dur("duration", plan.Duration).
		Msg("starting export")

	report(progressGraphBuilt, "Encoding video...", nil)

	started := time.Now()
	err = b.exec.Run(ctx, RunOptions{
		Args: plan.Args(job, partial),
		ProgressHandler: func(p Progress) {
			if p.Done {
				return
			}
			frac := encodeFraction(p.OutTime, plan.Duration)
			report(progressGraphBuilt+progressEncodeSpan*frac, "Encoding video...", estimateETA(p, plan.Duration, time.Since(started)))
		},
		LogHandler: func(line string) {
			b.logger.Debug().Str("ffmpeg", line).Msg("export")
		},
	})
	if err != nil {
		if IsCancelled(err) {
			return err
		}
		return fmt.Errorf("encode: %w", err)
	}

	report(progressFinalizing, "Finalizing...", nil)
	if err = os.Rename(partial, job.OutputPath); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}

	zero := 0.0
	report(100, "Complete!", &zero)
	b.logger.Info().
		Str("job", job.ID).
		Dur("elapsed", time.Since(started)).
		Msg("export complete")
	return nil
}

func encodeFraction(out, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return min(max(float64(out)/float64(total), 0), 1)
}

// estimateETA prefers ffmpeg's reported speed and falls back to the elapsed
// rate once some output exists.
func estimateETA(p Progress, total, elapsed time.Duration) *float64 {
	remaining := total - p.OutTime
	if remaining < 0 {
		remaining = 0
	}
	var eta float64
	switch {
	case p.Speed > 0:
		eta = remaining.Seconds() / p.Speed
	case p.OutTime > 0:
		eta = elapsed.Seconds() * remaining.Seconds() / p.OutTime.Seconds()
	default:
		return nil
	}
	return &eta
}
