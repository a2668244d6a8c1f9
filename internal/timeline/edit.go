package timeline

import (
	"time"
)

// SplitClipAtTime cuts c at timeline position at without touching any
// timeline. The cut must fall strictly inside the clip. Both halves keep the
// clip's audio settings and metadata; their IDs are left zero.
func SplitClipAtTime(c Clip, at time.Duration) (first, second Clip, ok bool) {
	if at <= c.StartTime || at >= c.End() {
		return Clip{}, Clip{}, false
	}
	offset := at - c.StartTime

	first = c
	first.ID = 0
	first.Duration = offset
	first.OutPoint = c.InPoint + offset

	second = c
	second.ID = 0
	second.StartTime = at
	second.Duration = c.Duration - offset
	second.InPoint = first.OutPoint
	second.OutPoint = c.OutPoint

	return first, second, true
}

// TrimLeft moves the clip's left edge by delta, shifting its in point and
// start time together. A trim that would shrink the clip below
// MinClipDuration is rejected; otherwise the move is clamped so neither the
// in point nor the start time go negative.
func (t *Timeline) TrimLeft(id int, delta time.Duration) bool {
	i := t.indexOfClip(id)
	if i < 0 {
		return false
	}
	c, ok := trimLeft(t.clips[i], delta)
	if !ok {
		return false
	}
	t.clips[i] = c
	t.clampTransitions(id)
	return true
}

// TrimRight moves the clip's right edge by delta. The out point is clamped to
// the source duration.
func (t *Timeline) TrimRight(id int, delta time.Duration) bool {
	i := t.indexOfClip(id)
	if i < 0 {
		return false
	}
	c, ok := trimRight(t.clips[i], delta)
	if !ok {
		return false
	}
	t.clips[i] = c
	t.clampTransitions(id)
	return true
}

func trimLeft(c Clip, delta time.Duration) (Clip, bool) {
	if c.Duration-delta < MinClipDuration {
		return c, false
	}
	delta = max(delta, -c.InPoint, -c.StartTime)
	if delta == 0 {
		return c, false
	}
	c.InPoint += delta
	c.StartTime += delta
	c.Duration = c.OutPoint - c.InPoint
	return c, true
}

func trimRight(c Clip, delta time.Duration) (Clip, bool) {
	out := c.OutPoint + delta
	if out-c.InPoint < MinClipDuration {
		return c, false
	}
	out = min(out, c.SourceDuration)
	if out == c.OutPoint {
		return c, false
	}
	c.OutPoint = out
	c.Duration = c.OutPoint - c.InPoint
	return c, true
}
