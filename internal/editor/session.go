// Package editor owns a timeline and its history and applies edits to them
// one at a time.
package editor

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/history"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

var ErrClosed = errors.New("editor session closed")

// Options configures a Session.
type Options struct {
	HistoryLimit int
	// OnChange, if set, is called on the session goroutine after every
	// command that changed timeline content.
	OnChange func(View)
}

type request struct {
	cmd   Command
	reply chan Result
}

// Session is the single writer for a timeline. Commands sent through Do are
// applied in order by Run; Apply may be used directly when no Run loop is
// active.
type Session struct {
	logger   zerolog.Logger
	tl       *timeline.Timeline
	hist     *history.Manager
	onChange func(View)

	requests chan request
	done     chan struct{}
}

// New creates a session over an empty timeline.
func New(logger zerolog.Logger, opts Options) *Session {
	return &Session{
		logger:   logging.Component(logger, "editor"),
		tl:       timeline.New(),
		hist:     history.New(opts.HistoryLimit),
		onChange: opts.OnChange,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
}

// Run processes commands until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.requests:
			req.reply <- s.Apply(req.cmd)
		}
	}
}

// Do sends cmd to the Run loop and waits for its result.
func (s *Session) Do(ctx context.Context, cmd Command) (Result, error) {
	req := request{cmd: cmd, reply: make(chan Result, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Snapshot returns a point-in-time view read through the command queue, so
// it never observes a half-applied edit.
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	res, err := s.Do(ctx, Query{})
	if err != nil {
		return View{}, err
	}
	return res.View, nil
}

// Apply reduces one command against the session state.
func (s *Session) Apply(cmd Command) Result {
	var res Result
	switch c := cmd.(type) {
	case Query:
	case Select:
		s.tl.Select(c.ID)
	case SetPlayhead:
		s.tl.SetPlayhead(c.At)
	case SetPlaying:
		s.tl.SetPlaying(c.Playing)
	case Undo:
		prev, ok := s.hist.Undo(s.tl.Snapshot())
		if ok {
			s.restoreKeepingView(prev)
		}
		res.Changed = ok
	case Redo:
		next, ok := s.hist.Redo(s.tl.Snapshot())
		if ok {
			s.restoreKeepingView(next)
		}
		res.Changed = ok
	case Restore:
		s.tl.Restore(c.Snapshot)
		s.tl.SetPlayhead(c.Playhead)
		s.hist.Clear()
		res.Changed = true
	default:
		res = s.edit(cmd)
	}

	res.View = s.view()
	if res.Changed {
		s.logger.Debug().
			Str("command", cmd.name()).
			Int("id", res.ID).
			Int("clips", len(res.View.Snapshot.Clips)).
			Msg("timeline changed")
		if s.onChange != nil {
			s.onChange(res.View)
		}
	}
	return res
}

// edit applies a content mutation and records the pre-state in history when
// the mutation actually changed something.
func (s *Session) edit(cmd Command) Result {
	pre := s.tl.Snapshot()

	var id int
	var ok bool
	switch c := cmd.(type) {
	case AddClip:
		var clip timeline.Clip
		clip, ok = s.tl.AddClip(c.Spec)
		id = clip.ID
	case UpdateClip:
		ok = s.tl.UpdateClip(c.ID, c.Update)
		id = c.ID
	case RemoveClip:
		ok = s.tl.RemoveClip(c.ID)
		id = c.ID
	case SplitClip:
		ok = s.tl.SplitClip(c.ID, c.At)
		id = s.tl.Selected()
	case TrimLeft:
		ok = s.tl.TrimLeft(c.ID, c.Delta)
		id = c.ID
	case TrimRight:
		ok = s.tl.TrimRight(c.ID, c.Delta)
		id = c.ID
	case AddTextOverlay:
		var o timeline.TextOverlay
		o, ok = s.tl.AddTextOverlay(c.Spec)
		id = o.ID
	case UpdateTextOverlay:
		ok = s.tl.UpdateTextOverlay(c.ID, c.Update)
		id = c.ID
	case RemoveTextOverlay:
		ok = s.tl.RemoveTextOverlay(c.ID)
		id = c.ID
	case AddTransition:
		var tr timeline.Transition
		tr, ok = s.tl.AddTransition(c.Spec)
		id = tr.ID
	case UpdateTransition:
		ok = s.tl.UpdateTransition(c.ID, c.Update)
		id = c.ID
	case RemoveTransition:
		ok = s.tl.RemoveTransition(c.ID)
		id = c.ID
	default:
		s.logger.Warn().Str("command", cmd.name()).Msg("unhandled command")
		return Result{}
	}

	if !ok {
		s.logger.Debug().Str("command", cmd.name()).Msg("edit rejected")
		return Result{}
	}
	if s.tl.Snapshot().Equal(pre) {
		return Result{ID: id}
	}
	s.hist.Record(pre)
	return Result{Changed: true, ID: id}
}

// restoreKeepingView swaps content for undo/redo without touching what the
// user is looking at: playback state and selection survive when possible.
func (s *Session) restoreKeepingView(snap timeline.Snapshot) {
	playing := s.tl.Playing()
	selected := s.tl.Selected()
	s.tl.Restore(snap)
	s.tl.SetPlaying(playing)
	if selected != 0 {
		s.tl.Select(selected)
	}
}

func (s *Session) view() View {
	return View{
		Snapshot: s.tl.Snapshot(),
		Playhead: s.tl.Playhead(),
		Playing:  s.tl.Playing(),
		Selected: s.tl.Selected(),
		CanUndo:  s.hist.CanUndo(),
		CanRedo:  s.hist.CanRedo(),
	}
}
