package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/overlays"
	"github.com/kikiluvv/clipforge/internal/project"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// workspace is the opened project database plus the selected project.
type workspace struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   *project.Store
	project project.Project
	exec    *ffmpeg.Executor
}

func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	cfg := config.FromContext(cmd.Context())

	store, err := project.Open(cfg.DBPath(), log.Logger)
	if err != nil {
		return nil, err
	}
	p, err := store.EnsureProject(cmd.Context(), projectName)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &workspace{cfg: cfg, logger: log.Logger, store: store, project: p}, nil
}

func (w *workspace) Close() error {
	return w.store.Close()
}

// executor creates the ffmpeg executor on first use so commands that never
// touch media do not require ffmpeg to be installed.
func (w *workspace) executor() (*ffmpeg.Executor, error) {
	if w.exec != nil {
		return w.exec, nil
	}
	exec, err := ffmpeg.New(w.logger, ffmpeg.Options{
		BinaryPath: w.cfg.FFmpeg.BinaryPath,
		ProbePath:  w.cfg.FFmpeg.ProbePath,
		Threads:    w.cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, err
	}
	w.exec = exec
	return exec, nil
}

// session loads the project's timeline into a new editor session.
func (w *workspace) session(ctx context.Context, opts editor.Options) (*editor.Session, error) {
	snap, playhead, err := w.store.LoadTimeline(ctx, w.project.ID)
	if err != nil {
		return nil, err
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = w.cfg.History.Limit
	}
	s := editor.New(w.logger, opts)
	s.Apply(editor.Restore{Snapshot: snap, Playhead: playhead})
	return s, nil
}

// edit applies one command to the stored timeline and saves it when it
// changed something.
func (w *workspace) edit(ctx context.Context, cmd editor.Command) (editor.Result, error) {
	s, err := w.session(ctx, editor.Options{})
	if err != nil {
		return editor.Result{}, err
	}
	res := s.Apply(cmd)
	if !res.Changed {
		return res, nil
	}
	if err := w.store.SaveTimeline(ctx, w.project.ID, res.View.Snapshot, res.View.Playhead); err != nil {
		return res, fmt.Errorf("save project %q: %w", w.project.Name, err)
	}
	return res, nil
}

// view reads the stored timeline without changing it.
func (w *workspace) view(ctx context.Context) (editor.View, error) {
	s, err := w.session(ctx, editor.Options{})
	if err != nil {
		return editor.View{}, err
	}
	return s.Apply(editor.Query{}).View, nil
}

// fonts registers the font files named in the config.
func (w *workspace) fonts() *overlays.FontRegistry {
	r := overlays.NewFontRegistry()
	for family, path := range w.cfg.Fonts {
		r.Register(family, path)
	}
	if len(w.cfg.Fonts) > 0 {
		w.logger.Debug().Strs("families", r.Families()).Msg("fonts registered")
	}
	return r
}

func (w *workspace) autosaver(s *editor.Session, initial editor.View) *project.Autosaver {
	source := func(ctx context.Context) (timeline.Snapshot, time.Duration, error) {
		v, err := s.Snapshot(ctx)
		if err != nil {
			return timeline.Snapshot{}, 0, err
		}
		return v.Snapshot, v.Playhead, nil
	}
	a := project.NewAutosaver(w.store, w.project.ID, w.cfg.Project.AutosaveInterval, source, w.logger)
	a.MarkSaved(initial.Snapshot, initial.Playhead)
	return a
}
