package gui

import (
	"strings"
	"testing"
	"time"

	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/internal/timeline"
)

func twoTrackTimeline(t *testing.T) timeline.Snapshot {
	t.Helper()
	tl := timeline.New()
	md := timeline.Metadata{Filename: "a.mp4", Path: "/a.mp4", Duration: 20 * time.Second}
	for _, spec := range []timeline.ClipSpec{
		{MediaID: 1, Duration: 5 * time.Second, Metadata: md},
		{MediaID: 1, StartTime: 5 * time.Second, Duration: 5 * time.Second, Metadata: md},
		{MediaID: 1, Track: 1, StartTime: 2 * time.Second, Duration: 4 * time.Second, Metadata: md},
	} {
		if _, ok := tl.AddClip(spec); !ok {
			t.Fatalf("AddClip(%+v) failed", spec)
		}
	}
	return tl.Snapshot()
}

func TestSplitTarget(t *testing.T) {
	snap := twoTrackTimeline(t)

	tests := []struct {
		name     string
		selected int
		playhead time.Duration
		want     int
		ok       bool
	}{
		{"selected clip under playhead", 3, 3 * time.Second, 3, true},
		{"selection elsewhere falls back to base track", 2, 3 * time.Second, 1, true},
		{"no selection", 0, 7 * time.Second, 2, true},
		{"past the end", 0, 12 * time.Second, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := splitTarget(editor.View{Snapshot: snap, Selected: tt.selected, Playhead: tt.playhead})
			if got != tt.want || ok != tt.ok {
				t.Errorf("splitTarget() = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClipLabel(t *testing.T) {
	c := timeline.Clip{ID: 4, MediaID: 9, Track: 1, StartTime: 65 * time.Second, Duration: 10 * time.Second, Muted: true}

	got := clipLabel(c)
	for _, want := range []string{"#4", "media 9", "01:05 - 01:15", "track 1", "muted"} {
		if !strings.Contains(got, want) {
			t.Errorf("clipLabel() = %q, missing %q", got, want)
		}
	}
}

func TestExportStatusText(t *testing.T) {
	eta := 12.0
	tests := []struct {
		status pipeline.Status
		want   string
	}{
		{pipeline.Status{}, "Ready"},
		{pipeline.Status{State: pipeline.StateRendering, Progress: render.Progress{Operation: "Encoding video...", Percentage: 41.6, ETASeconds: &eta}}, "Encoding video... 42% (12s left)"},
		{pipeline.Status{State: pipeline.StateSucceeded, OutputPath: "/tmp/out.mp4", Done: true}, "Exported /tmp/out.mp4"},
		{pipeline.Status{State: pipeline.StateFailed, Error: "boom", Done: true}, "Export failed: boom"},
		{pipeline.Status{State: pipeline.StateIdle, Error: "boom", Done: true}, "Export failed: boom"},
	}
	for _, tt := range tests {
		if got := exportStatusText(tt.status); got != tt.want {
			t.Errorf("exportStatusText(%v) = %q, want %q", tt.status.State, got, tt.want)
		}
	}
}
