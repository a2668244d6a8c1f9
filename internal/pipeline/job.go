package pipeline

import (
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

// Validate checks a snapshot and settings before anything is rendered.
func Validate(snap timeline.Snapshot, settings Settings) error {
	if len(snap.Clips) == 0 {
		return ErrNoClips
	}
	if settings.OutputPath == "" {
		return ErrNoOutput
	}

	var problems []ClipProblem
	for _, c := range snap.ClipsByStart() {
		switch {
		case c.Metadata == (timeline.Metadata{}):
			problems = append(problems, ClipProblem{ClipID: c.ID, Reason: "missing metadata"})
		case c.Metadata.Path == "":
			problems = append(problems, ClipProblem{ClipID: c.ID, Reason: "missing file path"})
		case c.Metadata.Duration <= 0 || c.Duration <= 0:
			problems = append(problems, ClipProblem{ClipID: c.ID, Reason: "invalid duration"})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// BuildJob serializes a validated snapshot into a backend job. Clips from
// every track are ordered by start time and transitions whose clips are gone
// are dropped.
func BuildJob(id string, snap timeline.Snapshot, settings Settings) render.Job {
	clips := snap.ClipsByStart()

	job := render.Job{
		ID:           id,
		OutputPath:   settings.OutputPath,
		Resolution:   settings.Resolution,
		FPS:          settings.FPS,
		CRF:          settings.CRF,
		Preset:       settings.Preset,
		AudioBitrate: settings.AudioBitrate,
		Duration:     snap.TotalDuration(),
	}

	// The canvas follows the first base-track clip, or the first clip.
	var srcW, srcH int
	for _, c := range clips {
		if c.Track == 0 {
			srcW, srcH = c.Metadata.Width, c.Metadata.Height
			break
		}
	}
	if srcW == 0 && len(clips) > 0 {
		srcW, srcH = clips[0].Metadata.Width, clips[0].Metadata.Height
	}
	job.Width, job.Height = settings.Resolution.Size(srcW, srcH)

	for _, c := range clips {
		job.Clips = append(job.Clips, render.ClipSpec{
			ID:            c.ID,
			SourcePath:    c.Metadata.Path,
			InPoint:       c.InPoint,
			OutPoint:      c.OutPoint,
			TimelineStart: c.StartTime,
			Track:         c.Track,
			Volume:        c.Volume,
			Muted:         c.Muted,
			FadeIn:        c.FadeIn,
			FadeOut:       c.FadeOut,
			Width:         c.Metadata.Width,
			Height:        c.Metadata.Height,
			HasAudio:      c.Metadata.HasAudio,
		})
	}

	for _, tr := range snap.ResolvedTransitions() {
		job.Transitions = append(job.Transitions, render.TransitionSpec{
			ClipIDBefore: tr.ClipIDBefore,
			ClipIDAfter:  tr.ClipIDAfter,
			Type:         tr.Type,
			Duration:     tr.Duration,
		})
	}

	for _, o := range snap.TextOverlays {
		job.TextOverlays = append(job.TextOverlays, render.TextSpec{
			ID:                o.ID,
			Text:              o.Text,
			Start:             o.StartTime,
			Duration:          o.Duration,
			X:                 o.X,
			Y:                 o.Y,
			FontFamily:        o.FontFamily,
			FontSize:          o.FontSize,
			Color:             o.Color,
			BackgroundColor:   o.BackgroundColor,
			BackgroundOpacity: o.BackgroundOpacity,
			Animation:         o.Animation,
		})
	}
	return job
}
