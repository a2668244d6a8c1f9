package project

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

// DefaultAutosaveInterval is how often a dirty timeline is written.
const DefaultAutosaveInterval = 30 * time.Second

// SnapshotFunc returns the current timeline and playhead.
type SnapshotFunc func(ctx context.Context) (timeline.Snapshot, time.Duration, error)

// Autosaver periodically writes a project's timeline when it changed.
type Autosaver struct {
	store     *Store
	projectID int64
	interval  time.Duration
	source    SnapshotFunc
	logger    zerolog.Logger

	mu        sync.Mutex
	saved     timeline.Snapshot
	savedHead time.Duration
	hasSaved  bool
}

// NewAutosaver creates an autosaver. Call Run to start it.
func NewAutosaver(store *Store, projectID int64, interval time.Duration, source SnapshotFunc, logger zerolog.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		store:     store,
		projectID: projectID,
		interval:  interval,
		source:    source,
		logger:    logger.With().Str("component", "autosave").Int64("project_id", projectID).Logger(),
	}
}

// MarkSaved records a state as already persisted, e.g. right after loading.
func (a *Autosaver) MarkSaved(snap timeline.Snapshot, playhead time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = snap.Clone()
	a.savedHead = playhead
	a.hasSaved = true
}

// Save writes the current state if it differs from the last save. It
// reports whether anything was written.
func (a *Autosaver) Save(ctx context.Context) (bool, error) {
	snap, playhead, err := a.source(ctx)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	unchanged := a.hasSaved && a.savedHead == playhead && a.saved.Equal(snap)
	a.mu.Unlock()
	if unchanged {
		return false, nil
	}

	if err := a.store.SaveTimeline(ctx, a.projectID, snap, playhead); err != nil {
		return false, err
	}
	a.MarkSaved(snap, playhead)
	a.logger.Debug().Int("clips", len(snap.Clips)).Msg("project autosaved")
	return true, nil
}

// Run saves every interval until ctx is done, then saves once more.
func (a *Autosaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := a.Save(flushCtx); err != nil {
				a.logger.Warn().Err(err).Msg("final save failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Save(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("autosave failed")
			}
		}
	}
}
