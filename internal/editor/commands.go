package editor

import (
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

// Command is an edit or query processed by a Session.
type Command interface {
	name() string
}

type (
	AddClip struct{ Spec timeline.ClipSpec }

	UpdateClip struct {
		ID     int
		Update timeline.ClipUpdate
	}

	RemoveClip struct{ ID int }

	SplitClip struct {
		ID int
		At time.Duration
	}

	TrimLeft struct {
		ID    int
		Delta time.Duration
	}

	TrimRight struct {
		ID    int
		Delta time.Duration
	}

	AddTextOverlay struct{ Spec timeline.TextOverlaySpec }

	UpdateTextOverlay struct {
		ID     int
		Update timeline.TextOverlayUpdate
	}

	RemoveTextOverlay struct{ ID int }

	AddTransition struct{ Spec timeline.TransitionSpec }

	UpdateTransition struct {
		ID     int
		Update timeline.TransitionUpdate
	}

	RemoveTransition struct{ ID int }

	Undo struct{}
	Redo struct{}

	// Restore replaces the whole timeline, as when a project is loaded.
	// History is cleared.
	Restore struct {
		Snapshot timeline.Snapshot
		Playhead time.Duration
	}

	Select      struct{ ID int }
	SetPlayhead struct{ At time.Duration }
	SetPlaying  struct{ Playing bool }

	// Query changes nothing and returns the current view.
	Query struct{}
)

func (AddClip) name() string           { return "add_clip" }
func (UpdateClip) name() string        { return "update_clip" }
func (RemoveClip) name() string        { return "remove_clip" }
func (SplitClip) name() string         { return "split_clip" }
func (TrimLeft) name() string          { return "trim_left" }
func (TrimRight) name() string         { return "trim_right" }
func (AddTextOverlay) name() string    { return "add_text_overlay" }
func (UpdateTextOverlay) name() string { return "update_text_overlay" }
func (RemoveTextOverlay) name() string { return "remove_text_overlay" }
func (AddTransition) name() string     { return "add_transition" }
func (UpdateTransition) name() string  { return "update_transition" }
func (RemoveTransition) name() string  { return "remove_transition" }
func (Undo) name() string              { return "undo" }
func (Redo) name() string              { return "redo" }
func (Restore) name() string           { return "restore" }
func (Select) name() string            { return "select" }
func (SetPlayhead) name() string       { return "set_playhead" }
func (SetPlaying) name() string        { return "set_playing" }
func (Query) name() string             { return "query" }

// View is the state visible after a command.
type View struct {
	Snapshot timeline.Snapshot
	Playhead time.Duration
	Playing  bool
	Selected int
	CanUndo  bool
	CanRedo  bool
}

// Result reports what a command did. ID is the id of whatever the command
// created; for a split it is the second half.
type Result struct {
	Changed bool
	ID      int
	View    View
}
