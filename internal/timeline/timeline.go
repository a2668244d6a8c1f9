// Package timeline holds the editable sequence of clips, text overlays and
// transitions. Every mutation keeps Duration == OutPoint - InPoint for every
// clip; infeasible edits are rejected by returning false and leave the model
// untouched.
package timeline

import (
	"time"
)

// Timeline is the aggregate root. It is not safe for concurrent use; the
// editor session serializes access.
type Timeline struct {
	clips       []Clip
	overlays    []TextOverlay
	transitions []Transition

	nextClipID        int
	nextTextOverlayID int
	nextTransitionID  int

	playhead time.Duration
	playing  bool
	selected int
}

// New returns an empty timeline with all id counters at 1.
func New() *Timeline {
	return &Timeline{
		nextClipID:        1,
		nextTextOverlayID: 1,
		nextTransitionID:  1,
	}
}

func (t *Timeline) Playhead() time.Duration { return t.playhead }
func (t *Timeline) Playing() bool           { return t.playing }

// Selected returns the selected clip id, or 0.
func (t *Timeline) Selected() int { return t.selected }

func (t *Timeline) SetPlayhead(p time.Duration) {
	if p < 0 {
		p = 0
	}
	t.playhead = p
}

func (t *Timeline) SetPlaying(playing bool) { t.playing = playing }

// Select marks a clip as selected. Selecting an unknown id clears the selection.
func (t *Timeline) Select(id int) {
	if t.indexOfClip(id) < 0 {
		t.selected = 0
		return
	}
	t.selected = id
}

// Clip returns a copy of the clip with id.
func (t *Timeline) Clip(id int) (Clip, bool) {
	i := t.indexOfClip(id)
	if i < 0 {
		return Clip{}, false
	}
	return t.clips[i], true
}

// AddClip places a new clip and selects it.
func (t *Timeline) AddClip(spec ClipSpec) (Clip, bool) {
	in := spec.InPoint
	out := spec.OutPoint
	if out == 0 {
		out = in + spec.Duration
	}
	if in < 0 || out <= in {
		return Clip{}, false
	}

	source := spec.Metadata.Duration
	if source <= 0 {
		source = out
	}
	if out > source {
		return Clip{}, false
	}

	volume := DefaultVolume
	if spec.Volume != nil {
		volume = clampInt(*spec.Volume, 0, MaxVolume)
	}

	c := Clip{
		ID:             t.nextClipID,
		MediaID:        spec.MediaID,
		Track:          max(spec.Track, 0),
		StartTime:      max(spec.StartTime, 0),
		InPoint:        in,
		OutPoint:       out,
		Duration:       out - in,
		SourceDuration: source,
		Volume:         volume,
		Muted:          spec.Muted,
		FadeIn:         max(spec.FadeIn, 0),
		FadeOut:        max(spec.FadeOut, 0),
		Metadata:       spec.Metadata,
	}
	t.nextClipID++
	t.clips = append(t.clips, c)
	t.selected = c.ID
	return c, true
}

// UpdateClip merges the non-nil fields of u into the clip. Unknown ids are a
// no-op. Duration is recomputed from the trim points; an update that would
// break the trim invariants is rejected whole.
func (t *Timeline) UpdateClip(id int, u ClipUpdate) bool {
	i := t.indexOfClip(id)
	if i < 0 {
		return false
	}
	c := t.clips[i]

	if u.Track != nil {
		c.Track = max(*u.Track, 0)
	}
	if u.StartTime != nil {
		c.StartTime = max(*u.StartTime, 0)
	}
	if u.InPoint != nil {
		c.InPoint = *u.InPoint
	}
	if u.OutPoint != nil {
		c.OutPoint = *u.OutPoint
	}
	if u.Volume != nil {
		c.Volume = clampInt(*u.Volume, 0, MaxVolume)
	}
	if u.Muted != nil {
		c.Muted = *u.Muted
	}
	if u.FadeIn != nil {
		c.FadeIn = max(*u.FadeIn, 0)
	}
	if u.FadeOut != nil {
		c.FadeOut = max(*u.FadeOut, 0)
	}

	if c.InPoint < 0 || c.OutPoint > c.SourceDuration || c.OutPoint <= c.InPoint {
		return false
	}
	trimmed := u.InPoint != nil || u.OutPoint != nil
	if trimmed && c.OutPoint-c.InPoint < MinClipDuration {
		return false
	}
	c.Duration = c.OutPoint - c.InPoint

	if c == t.clips[i] {
		return false
	}
	t.clips[i] = c
	t.clampTransitions(id)
	return true
}

// RemoveClip deletes a clip and every transition that references it.
func (t *Timeline) RemoveClip(id int) bool {
	i := t.indexOfClip(id)
	if i < 0 {
		return false
	}
	t.clips = append(t.clips[:i:i], t.clips[i+1:]...)
	if t.selected == id {
		t.selected = 0
	}

	kept := t.transitions[:0:0]
	for _, tr := range t.transitions {
		if tr.ClipIDBefore != id && tr.ClipIDAfter != id {
			kept = append(kept, tr)
		}
	}
	t.transitions = kept
	return true
}

// SplitClip replaces the clip with two halves cut at timeline position at.
// The halves get the next two ids and the second one is selected.
func (t *Timeline) SplitClip(id int, at time.Duration) bool {
	i := t.indexOfClip(id)
	if i < 0 {
		return false
	}
	first, second, ok := SplitClipAtTime(t.clips[i], at)
	if !ok {
		return false
	}

	first.ID = t.nextClipID
	second.ID = t.nextClipID + 1
	t.nextClipID += 2

	clips := make([]Clip, 0, len(t.clips)+1)
	clips = append(clips, t.clips[:i]...)
	clips = append(clips, first, second)
	clips = append(clips, t.clips[i+1:]...)
	t.clips = clips
	t.selected = second.ID

	// Transitions into the original now land on the first half; those
	// leaving it now leave from the second half.
	for j := range t.transitions {
		tr := &t.transitions[j]
		if tr.ClipIDAfter == id {
			tr.ClipIDAfter = first.ID
		}
		if tr.ClipIDBefore == id {
			tr.ClipIDBefore = second.ID
		}
	}
	t.clampTransitions(first.ID)
	t.clampTransitions(second.ID)
	return true
}

// AddTextOverlay appends an overlay, filling in style defaults.
func (t *Timeline) AddTextOverlay(spec TextOverlaySpec) (TextOverlay, bool) {
	o := TextOverlay{
		ID:                t.nextTextOverlayID,
		Text:              spec.Text,
		StartTime:         max(spec.StartTime, 0),
		Duration:          spec.Duration,
		X:                 50,
		Y:                 80,
		FontFamily:        spec.FontFamily,
		FontSize:          spec.FontSize,
		Color:             spec.Color,
		BackgroundColor:   spec.BackgroundColor,
		BackgroundOpacity: clampFloat(spec.BackgroundOpacity, 0, 1),
		Animation:         spec.Animation,
	}
	if spec.X != nil {
		o.X = clampFloat(*spec.X, 0, 100)
	}
	if spec.Y != nil {
		o.Y = clampFloat(*spec.Y, 0, 100)
	}
	if o.Duration == 0 {
		o.Duration = DefaultTextDuration
	}
	if o.Duration < MinTextOverlayDuration {
		o.Duration = MinTextOverlayDuration
	}
	if o.FontFamily == "" {
		o.FontFamily = "Arial"
	}
	if o.FontSize == 0 {
		o.FontSize = 48
	}
	o.FontSize = clampInt(o.FontSize, MinFontSize, MaxFontSize)
	if o.Color == "" {
		o.Color = "#FFFFFF"
	}
	if o.BackgroundColor == "" {
		o.BackgroundColor = "#000000"
	}
	if o.Animation == "" {
		o.Animation = AnimationNone
	}
	if !o.Animation.Valid() {
		return TextOverlay{}, false
	}

	t.nextTextOverlayID++
	t.overlays = append(t.overlays, o)
	return o, true
}

func (t *Timeline) UpdateTextOverlay(id int, u TextOverlayUpdate) bool {
	i := t.indexOfOverlay(id)
	if i < 0 {
		return false
	}
	o := t.overlays[i]

	if u.Text != nil {
		o.Text = *u.Text
	}
	if u.StartTime != nil {
		o.StartTime = max(*u.StartTime, 0)
	}
	if u.Duration != nil {
		o.Duration = max(*u.Duration, MinTextOverlayDuration)
	}
	if u.X != nil {
		o.X = clampFloat(*u.X, 0, 100)
	}
	if u.Y != nil {
		o.Y = clampFloat(*u.Y, 0, 100)
	}
	if u.FontFamily != nil && *u.FontFamily != "" {
		o.FontFamily = *u.FontFamily
	}
	if u.FontSize != nil {
		o.FontSize = clampInt(*u.FontSize, MinFontSize, MaxFontSize)
	}
	if u.Color != nil {
		o.Color = *u.Color
	}
	if u.BackgroundColor != nil {
		o.BackgroundColor = *u.BackgroundColor
	}
	if u.BackgroundOpacity != nil {
		o.BackgroundOpacity = clampFloat(*u.BackgroundOpacity, 0, 1)
	}
	if u.Animation != nil {
		if !u.Animation.Valid() {
			return false
		}
		o.Animation = *u.Animation
	}

	if o == t.overlays[i] {
		return false
	}
	t.overlays[i] = o
	return true
}

func (t *Timeline) RemoveTextOverlay(id int) bool {
	i := t.indexOfOverlay(id)
	if i < 0 {
		return false
	}
	t.overlays = append(t.overlays[:i:i], t.overlays[i+1:]...)
	return true
}

// AddTransition links two clips. A second transition for the same ordered
// pair updates the existing one instead.
func (t *Timeline) AddTransition(spec TransitionSpec) (Transition, bool) {
	if spec.ClipIDBefore == spec.ClipIDAfter {
		return Transition{}, false
	}
	before, ok := t.Clip(spec.ClipIDBefore)
	if !ok {
		return Transition{}, false
	}
	after, ok := t.Clip(spec.ClipIDAfter)
	if !ok {
		return Transition{}, false
	}

	typ := spec.Type
	if typ == "" {
		typ = TransitionCrossfade
	}
	d := clampTransitionDuration(spec.Duration, before, after)

	for i, tr := range t.transitions {
		if tr.ClipIDBefore == spec.ClipIDBefore && tr.ClipIDAfter == spec.ClipIDAfter {
			t.transitions[i].Type = typ
			t.transitions[i].Duration = d
			return t.transitions[i], true
		}
	}

	tr := Transition{
		ID:           t.nextTransitionID,
		ClipIDBefore: spec.ClipIDBefore,
		ClipIDAfter:  spec.ClipIDAfter,
		Type:         typ,
		Duration:     d,
	}
	t.nextTransitionID++
	t.transitions = append(t.transitions, tr)
	return tr, true
}

func (t *Timeline) UpdateTransition(id int, u TransitionUpdate) bool {
	i := t.indexOfTransition(id)
	if i < 0 {
		return false
	}
	tr := t.transitions[i]
	if u.Type != nil && *u.Type != "" {
		tr.Type = *u.Type
	}
	if u.Duration != nil {
		before, ok1 := t.Clip(tr.ClipIDBefore)
		after, ok2 := t.Clip(tr.ClipIDAfter)
		if !ok1 || !ok2 {
			return false
		}
		tr.Duration = clampTransitionDuration(*u.Duration, before, after)
	}
	if tr == t.transitions[i] {
		return false
	}
	t.transitions[i] = tr
	return true
}

func (t *Timeline) RemoveTransition(id int) bool {
	i := t.indexOfTransition(id)
	if i < 0 {
		return false
	}
	t.transitions = append(t.transitions[:i:i], t.transitions[i+1:]...)
	return true
}

// clampTransitions re-applies the duration bound to every transition that
// touches clipID after the clip changed length.
func (t *Timeline) clampTransitions(clipID int) {
	for i, tr := range t.transitions {
		if tr.ClipIDBefore != clipID && tr.ClipIDAfter != clipID {
			continue
		}
		before, ok1 := t.Clip(tr.ClipIDBefore)
		after, ok2 := t.Clip(tr.ClipIDAfter)
		if ok1 && ok2 {
			t.transitions[i].Duration = clampTransitionDuration(tr.Duration, before, after)
		}
	}
}

func clampTransitionDuration(d time.Duration, before, after Clip) time.Duration {
	d = min(max(d, MinTransitionDuration), MaxTransitionDuration)
	return min(d, before.Duration, after.Duration)
}

func (t *Timeline) indexOfClip(id int) int {
	for i := range t.clips {
		if t.clips[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) indexOfOverlay(id int) int {
	for i := range t.overlays {
		if t.overlays[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) indexOfTransition(id int) int {
	for i := range t.transitions {
		if t.transitions[i].ID == id {
			return i
		}
	}
	return -1
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func clampFloat(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
