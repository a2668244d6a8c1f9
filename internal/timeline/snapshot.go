package timeline

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Snapshot is a deep copy of timeline content. Playhead, playing state and
// selection are deliberately absent.
type Snapshot struct {
	Clips             []Clip
	TextOverlays      []TextOverlay
	Transitions       []Transition
	NextClipID        int
	NextTextOverlayID int
	NextTransitionID  int
}

// Snapshot copies the current content.
func (t *Timeline) Snapshot() Snapshot {
	return Snapshot{
		Clips:             slices.Clone(t.clips),
		TextOverlays:      slices.Clone(t.overlays),
		Transitions:       slices.Clone(t.transitions),
		NextClipID:        t.nextClipID,
		NextTextOverlayID: t.nextTextOverlayID,
		NextTransitionID:  t.nextTransitionID,
	}
}

// Restore replaces content and counters wholesale, clears the selection and
// pauses playback. The playhead is kept.
func (t *Timeline) Restore(s Snapshot) {
	t.clips = slices.Clone(s.Clips)
	t.overlays = slices.Clone(s.TextOverlays)
	t.transitions = slices.Clone(s.Transitions)
	t.nextClipID = max(s.NextClipID, 1)
	t.nextTextOverlayID = max(s.NextTextOverlayID, 1)
	t.nextTransitionID = max(s.NextTransitionID, 1)
	t.selected = 0
	t.playing = false
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	s.Clips = slices.Clone(s.Clips)
	s.TextOverlays = slices.Clone(s.TextOverlays)
	s.Transitions = slices.Clone(s.Transitions)
	return s
}

// Equal reports whether two snapshots hold the same content.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.NextClipID == o.NextClipID &&
		s.NextTextOverlayID == o.NextTextOverlayID &&
		s.NextTransitionID == o.NextTransitionID &&
		slices.Equal(s.Clips, o.Clips) &&
		slices.Equal(s.TextOverlays, o.TextOverlays) &&
		slices.Equal(s.Transitions, o.Transitions)
}

// Clip looks up a clip by id.
func (s Snapshot) Clip(id int) (Clip, bool) {
	for _, c := range s.Clips {
		if c.ID == id {
			return c, true
		}
	}
	return Clip{}, false
}

// ClipsByStart returns the clips of every track ordered by start time, then
// track, then id.
func (s Snapshot) ClipsByStart() []Clip {
	clips := slices.Clone(s.Clips)
	slices.SortStableFunc(clips, func(a, b Clip) int {
		return cmp.Or(
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.Track, b.Track),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return clips
}

// TotalDuration is the end of the last clip or overlay.
func (s Snapshot) TotalDuration() time.Duration {
	var total time.Duration
	for _, c := range s.Clips {
		total = max(total, c.End())
	}
	for _, o := range s.TextOverlays {
		total = max(total, o.End())
	}
	return total
}

// TrackEnd is where a clip appended to track would start.
func (s Snapshot) TrackEnd(track int) time.Duration {
	var end time.Duration
	for _, c := range s.Clips {
		if c.Track == track {
			end = max(end, c.End())
		}
	}
	return end
}

// ResolvedTransitions returns the transitions whose clips both exist.
func (s Snapshot) ResolvedTransitions() []Transition {
	var out []Transition
	for _, tr := range s.Transitions {
		_, ok1 := s.Clip(tr.ClipIDBefore)
		_, ok2 := s.Clip(tr.ClipIDAfter)
		if ok1 && ok2 {
			out = append(out, tr)
		}
	}
	return out
}

// CheckInvariants returns an error describing the first broken invariant.
// Edits cannot produce one; it guards documents loaded from disk.
func (s Snapshot) CheckInvariants() error {
	seen := make(map[int]bool, len(s.Clips))
	for _, c := range s.Clips {
		if c.ID <= 0 || seen[c.ID] {
			return fmt.Errorf("clip %d: duplicate or invalid id", c.ID)
		}
		seen[c.ID] = true
		if c.ID >= s.NextClipID {
			return fmt.Errorf("clip %d: id not below counter %d", c.ID, s.NextClipID)
		}
		if c.InPoint < 0 {
			return fmt.Errorf("clip %d: negative in point %v", c.ID, c.InPoint)
		}
		if c.OutPoint <= c.InPoint {
			return fmt.Errorf("clip %d: out point %v not after in point %v", c.ID, c.OutPoint, c.InPoint)
		}
		if c.SourceDuration > 0 && c.OutPoint > c.SourceDuration {
			return fmt.Errorf("clip %d: out point %v beyond source duration %v", c.ID, c.OutPoint, c.SourceDuration)
		}
		if c.Duration != c.OutPoint-c.InPoint {
			return fmt.Errorf("clip %d: duration %v does not match trim %v", c.ID, c.Duration, c.OutPoint-c.InPoint)
		}
		if c.StartTime < 0 || c.Track < 0 {
			return fmt.Errorf("clip %d: negative placement", c.ID)
		}
	}

	seen = make(map[int]bool, len(s.TextOverlays))
	for _, o := range s.TextOverlays {
		if o.ID <= 0 || seen[o.ID] || o.ID >= s.NextTextOverlayID {
			return fmt.Errorf("text overlay %d: duplicate or invalid id", o.ID)
		}
		seen[o.ID] = true
		if o.Duration < MinTextOverlayDuration {
			return fmt.Errorf("text overlay %d: duration %v below minimum", o.ID, o.Duration)
		}
	}

	seen = make(map[int]bool, len(s.Transitions))
	for _, tr := range s.Transitions {
		if tr.ID <= 0 || seen[tr.ID] || tr.ID >= s.NextTransitionID {
			return fmt.Errorf("transition %d: duplicate or invalid id", tr.ID)
		}
		seen[tr.ID] = true
		if tr.Duration <= 0 {
			return fmt.Errorf("transition %d: non-positive duration", tr.ID)
		}
	}
	return nil
}

// TotalDuration is the end of the last clip or overlay.
func (t *Timeline) TotalDuration() time.Duration {
	return Snapshot{Clips: t.clips, TextOverlays: t.overlays}.TotalDuration()
}

// Clips returns a copy of the clips in insertion order.
func (t *Timeline) Clips() []Clip { return slices.Clone(t.clips) }

// TextOverlays returns a copy of the overlays in insertion order.
func (t *Timeline) TextOverlays() []TextOverlay { return slices.Clone(t.overlays) }

// Transitions returns a copy of the transitions.
func (t *Timeline) Transitions() []Transition { return slices.Clone(t.transitions) }

// ClipAt returns the topmost clip on track covering position at.
func (t *Timeline) ClipAt(track int, at time.Duration) (Clip, bool) {
	for i := len(t.clips) - 1; i >= 0; i-- {
		c := t.clips[i]
		if c.Track == track && c.Contains(at) {
			return c, true
		}
	}
	return Clip{}, false
}
