package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// DefaultDismissAfter is how long a finished export stays visible before the
// exporter returns to idle.
const DefaultDismissAfter = 2 * time.Second

// Options configures an Exporter.
type Options struct {
	DismissAfter time.Duration
	// AfterFunc schedules the return to idle. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) Stopper
	Now       func() time.Time
}

// Stopper cancels a scheduled call.
type Stopper interface {
	Stop() bool
}

// Exporter runs one export at a time through a render backend and tracks
// its progress.
type Exporter struct {
	logger  zerolog.Logger
	backend render.Backend
	opts    Options

	mu      sync.Mutex
	status  Status
	cancel  context.CancelFunc
	done    chan struct{}
	dismiss Stopper
}

// New creates an exporter over backend.
func New(logger zerolog.Logger, backend render.Backend, opts Options) *Exporter {
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = DefaultDismissAfter
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{
		logger:  logging.Component(logger, "pipeline"),
		backend: backend,
		opts:    opts,
	}
}

// Start validates snap and starts rendering it on a worker goroutine. The
// snapshot is copied so later edits do not affect the running job.
// Validation failures return a *ValidationError and never reach the backend.
func (e *Exporter) Start(ctx context.Context, snap timeline.Snapshot, settings Settings) (string, error) {
	e.mu.Lock()
	if e.status.State.Active() {
		e.mu.Unlock()
		return "", ErrBusy
	}
	if e.dismiss != nil {
		e.dismiss.Stop()
		e.dismiss = nil
	}
	id := uuid.NewString()
	e.status = Status{
		JobID:      id,
		State:      StateValidating,
		Progress:   render.Progress{Operation: "Validating..."},
		OutputPath: settings.OutputPath,
		StartedAt:  e.opts.Now(),
	}
	e.mu.Unlock()

	snap = snap.Clone()
	if err := Validate(snap, settings); err != nil {
		e.logger.Warn().Err(err).Str("job", id).Msg("export validation failed")
		e.mu.Lock()
		e.status = Status{}
		e.mu.Unlock()
		return "", err
	}

	job := BuildJob(id, snap, settings)

	// The job outlives the request that started it.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	e.mu.Lock()
	e.status.State = StateRendering
	e.status.Progress = render.Progress{Operation: "Starting export..."}
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	e.logger.Info().
		Str("job", id).
		Str("output", job.OutputPath).
		Int("clips", len(job.Clips)).
		Int("width", job.Width).
		Int("height", job.Height).
		Msg("export started")

	go e.run(jobCtx, job, cancel, done)
	return id, nil
}

func (e *Exporter) run(ctx context.Context, job render.Job, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	sink := render.ProgressFunc(func(p render.Progress) { e.report(job.ID, p) })
	err := e.backend.Render(ctx, job, sink)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.JobID != job.ID {
		return
	}

	e.status.Done = true
	e.status.FinishedAt = e.opts.Now()
	e.cancel = nil

	switch {
	case err == nil:
		e.status.State = StateSucceeded
		zero := 0.0
		e.status.Progress = render.Progress{Percentage: 100, Operation: "Complete!", ETASeconds: &zero}
		e.logger.Info().
			Str("job", job.ID).
			Dur("elapsed", e.status.FinishedAt.Sub(e.status.StartedAt)).
			Msg("export succeeded")
	case errors.Is(err, context.Canceled):
		e.fail(ErrCancelled)
		e.logger.Info().Str("job", job.ID).Msg("export cancelled")
	default:
		e.fail(err)
		e.logger.Error().Err(err).Str("job", job.ID).Msg("export failed")
	}

	id := job.ID
	e.dismiss = e.opts.AfterFunc(e.opts.DismissAfter, func() { e.toIdle(id) })
}

// fail records a failure. Callers hold e.mu.
func (e *Exporter) fail(err error) {
	e.status.State = StateFailed
	e.status.Error = err.Error()
	e.status.Progress.Operation = fmt.Sprintf("Export failed: %v", err)
	e.status.Progress.ETASeconds = nil
}

// report stores backend progress for the current job. Percentages never go
// backwards.
func (e *Exporter) report(id string, p render.Progress) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.JobID != id || e.status.State != StateRendering {
		return
	}
	p.Percentage = min(max(p.Percentage, e.status.Progress.Percentage), 100)
	e.status.Progress = p
}

func (e *Exporter) toIdle(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.JobID != id || !e.status.State.Terminal() {
		return
	}
	e.status.State = StateIdle
	e.dismiss = nil
}

// Status returns the current exporter status.
func (e *Exporter) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Progress returns the current job's progress. After completion it keeps
// returning the terminal value.
func (e *Exporter) Progress() render.Progress {
	return e.Status().Progress
}

// Fetch is Status shaped for Poll.
func (e *Exporter) Fetch(context.Context) (Status, error) {
	return e.Status(), nil
}

// Cancel stops a running export. It reports whether there was one.
func (e *Exporter) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil || e.status.State != StateRendering {
		return false
	}
	e.logger.Info().Str("job", e.status.JobID).Msg("cancelling export")
	e.cancel()
	return true
}

// Wait blocks until the running export finishes or ctx is done.
func (e *Exporter) Wait(ctx context.Context) (Status, error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return e.Status(), nil
	}
	select {
	case <-done:
		return e.Status(), nil
	case <-ctx.Done():
		return e.Status(), ctx.Err()
	}
}
