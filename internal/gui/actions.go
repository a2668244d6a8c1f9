package gui

import (
	"fmt"
	"time"

	"github.com/kikiluvv/clipforge/internal/compositor"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// splitTarget picks the clip a split at the playhead applies to: the
// selected clip if it spans the playhead, otherwise the lowest clip there.
func splitTarget(v editor.View) (int, bool) {
	if c, ok := v.Snapshot.Clip(v.Selected); ok && c.Contains(v.Playhead) {
		return c.ID, true
	}
	active := compositor.ActiveClips(v.Snapshot, v.Playhead)
	if len(active) == 0 {
		return 0, false
	}
	return active[0].ID, true
}

func clipLabel(c timeline.Clip) string {
	name := c.Metadata.Filename
	if name == "" {
		name = fmt.Sprintf("media %d", c.MediaID)
	}
	label := fmt.Sprintf("#%d  %s  %s - %s  (track %d)",
		c.ID, name, util.FormatClock(c.StartTime), util.FormatClock(c.End()), c.Track)
	if c.Muted {
		label += "  muted"
	}
	return label
}

func clockText(at, total time.Duration) string {
	return util.FormatClock(at) + " / " + util.FormatClock(total)
}

func exportStatusText(s pipeline.Status) string {
	switch s.State {
	case pipeline.StateIdle:
		if s.Done && s.Error == "" {
			return "Exported " + s.OutputPath
		}
		if s.Done {
			return "Export failed: " + s.Error
		}
		return "Ready"
	case pipeline.StateFailed:
		return "Export failed: " + s.Error
	case pipeline.StateSucceeded:
		return "Exported " + s.OutputPath
	}
	text := fmt.Sprintf("%s %.0f%%", s.Progress.Operation, s.Progress.Percentage)
	if eta := s.Progress.ETASeconds; eta != nil && *eta > 0 {
		text += fmt.Sprintf(" (%.0fs left)", *eta)
	}
	return text
}
