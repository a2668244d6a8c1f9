package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/render"
)

var (
	// ErrBusy is returned when an export is already validating or rendering.
	ErrBusy = errors.New("export already in progress")

	// ErrNoClips is returned for an empty timeline.
	ErrNoClips = errors.New("no clips to export")

	// ErrNoOutput is returned when no output path was given.
	ErrNoOutput = errors.New("output path is required")

	// ErrCancelled is the failure recorded for a cancelled export.
	ErrCancelled = errors.New("export cancelled")
)

// State of the exporter.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateRendering
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateRendering:
		return "rendering"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// MarshalText lets State appear as a string in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := StateIdle; st <= StateFailed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown export state %q", b)
}

// Active reports whether a job is validating or rendering.
func (s State) Active() bool {
	return s == StateValidating || s == StateRendering
}

// Terminal reports whether a job has finished.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ClipProblem is one reason a clip cannot be exported.
type ClipProblem struct {
	ClipID int
	Reason string
}

func (p ClipProblem) String() string {
	return fmt.Sprintf("Clip %d has %s", p.ClipID, p.Reason)
}

// ValidationError lists every clip that blocks an export.
type ValidationError struct {
	Problems []ClipProblem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "export validation failed: " + strings.Join(msgs, "; ")
}

// Settings are the user-chosen export options.
type Settings struct {
	OutputPath   string            `json:"outputPath"`
	Resolution   render.Resolution `json:"resolution"`
	FPS          int               `json:"fps"`
	CRF          int               `json:"crf"`
	Preset       string            `json:"preset"`
	AudioBitrate string            `json:"audioBitrate"`
}

// SettingsFromConfig fills export settings from the config file.
func SettingsFromConfig(cfg *config.Config, output string) (Settings, error) {
	res, err := render.ParseResolution(cfg.Export.Resolution)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputPath:   output,
		Resolution:   res,
		FPS:          cfg.Export.FPS,
		CRF:          cfg.Export.CRF,
		Preset:       cfg.FFmpeg.Preset,
		AudioBitrate: cfg.Export.AudioBitrate,
	}, nil
}

// Status is a point-in-time view of the exporter. Done stays true for a
// finished job after the exporter returns to idle.
type Status struct {
	JobID      string          `json:"jobId,omitempty"`
	State      State           `json:"state"`
	Progress   render.Progress `json:"progress"`
	OutputPath string          `json:"outputPath,omitempty"`
	Error      string          `json:"error,omitempty"`
	Done       bool            `json:"done"`
	StartedAt  time.Time       `json:"startedAt,omitzero"`
	FinishedAt time.Time       `json:"finishedAt,omitzero"`
}

// Succeeded reports whether the job finished and produced its output.
func (s Status) Succeeded() bool {
	return s.Done && s.Error == ""
}
