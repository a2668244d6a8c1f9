// Package history keeps bounded undo and redo stacks of timeline snapshots.
package history

import (
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// DefaultLimit is the number of undo steps kept.
const DefaultLimit = 50

// Manager is not safe for concurrent use.
type Manager struct {
	limit int
	undo  []timeline.Snapshot
	redo  []timeline.Snapshot
}

// New creates a manager holding at most limit undo steps.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit}
}

// Record pushes the state captured before an edit and drops any redo
// branch. The oldest entry is evicted once the limit is reached.
func (m *Manager) Record(pre timeline.Snapshot) {
	m.undo = push(m.undo, pre.Clone(), m.limit)
	m.redo = nil
}

// Undo returns the state to restore, saving current for redo. ok is false
// when there is nothing to undo.
func (m *Manager) Undo(current timeline.Snapshot) (timeline.Snapshot, bool) {
	if len(m.undo) == 0 {
		return timeline.Snapshot{}, false
	}
	prev := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = push(m.redo, current.Clone(), m.limit)
	return prev, true
}

// Redo is the mirror of Undo.
func (m *Manager) Redo(current timeline.Snapshot) (timeline.Snapshot, bool) {
	if len(m.redo) == 0 {
		return timeline.Snapshot{}, false
	}
	next := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = push(m.undo, current.Clone(), m.limit)
	return next, true
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Depth returns the sizes of the undo and redo stacks.
func (m *Manager) Depth() (undo, redo int) { return len(m.undo), len(m.redo) }

// Clear drops all history, e.g. after loading a project.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func push(stack []timeline.Snapshot, s timeline.Snapshot, limit int) []timeline.Snapshot {
	if len(stack) >= limit {
		copy(stack, stack[len(stack)-limit+1:])
		stack = stack[:limit-1]
	}
	return append(stack, s)
}
