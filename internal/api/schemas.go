package api

import (
	"time"

	"github.com/kikiluvv/clipforge/internal/compositor"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/project"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

type ErrorResponse struct {
	Error    string   `json:"error"`
	Code     string   `json:"code"`
	Problems []string `json:"problems,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

// TimelineResponse is the editor state after a request. Changed is false
// when an edit was rejected and left the timeline as it was.
type TimelineResponse struct {
	Timeline timeline.Document `json:"timeline"`
	Selected int               `json:"selectedClipId,omitempty"`
	Playing  bool              `json:"isPlaying"`
	CanUndo  bool              `json:"canUndo"`
	CanRedo  bool              `json:"canRedo"`
	Changed  bool              `json:"changed"`
	ID       int               `json:"id,omitempty"`
}

func viewToResponse(v editor.View) TimelineResponse {
	return TimelineResponse{
		Timeline: timeline.NewDocument(v.Snapshot, v.Playhead),
		Selected: v.Selected,
		Playing:  v.Playing,
		CanUndo:  v.CanUndo,
		CanRedo:  v.CanRedo,
	}
}

func resultToResponse(res editor.Result) TimelineResponse {
	resp := viewToResponse(res.View)
	resp.Changed = res.Changed
	resp.ID = res.ID
	return resp
}

type MediaResponse struct {
	ID       int     `json:"id"`
	Path     string  `json:"path"`
	Filename string  `json:"filename"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	HasAudio bool    `json:"hasAudio"`
}

func AssetToResponse(a project.Asset) MediaResponse {
	return MediaResponse{
		ID:       a.ID,
		Path:     a.Path,
		Filename: a.Filename,
		Duration: util.Seconds(a.Duration),
		Width:    a.Width,
		Height:   a.Height,
		FPS:      a.FPS,
		HasAudio: a.HasAudio,
	}
}

type AddClipRequest struct {
	MediaID   int     `json:"mediaId"`
	Track     int     `json:"track"`
	StartTime float64 `json:"startTime"`
	InPoint   float64 `json:"inPoint"`
	OutPoint  float64 `json:"outPoint,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Volume    *int    `json:"volume,omitempty"`
	Muted     bool    `json:"isMuted"`
	FadeIn    float64 `json:"fadeInDuration"`
	FadeOut   float64 `json:"fadeOutDuration"`
}

type UpdateClipRequest struct {
	Track     *int     `json:"track,omitempty"`
	StartTime *float64 `json:"startTime,omitempty"`
	InPoint   *float64 `json:"inPoint,omitempty"`
	OutPoint  *float64 `json:"outPoint,omitempty"`
	Volume    *int     `json:"volume,omitempty"`
	Muted     *bool    `json:"isMuted,omitempty"`
	FadeIn    *float64 `json:"fadeInDuration,omitempty"`
	FadeOut   *float64 `json:"fadeOutDuration,omitempty"`
}

func (r UpdateClipRequest) toUpdate() timeline.ClipUpdate {
	return timeline.ClipUpdate{
		Track:     r.Track,
		StartTime: durPtr(r.StartTime),
		InPoint:   durPtr(r.InPoint),
		OutPoint:  durPtr(r.OutPoint),
		Volume:    r.Volume,
		Muted:     r.Muted,
		FadeIn:    durPtr(r.FadeIn),
		FadeOut:   durPtr(r.FadeOut),
	}
}

type SplitRequest struct {
	Time float64 `json:"time"`
}

// TrimRequest moves one edge of a clip. Positive deltas move the edge
// right.
type TrimRequest struct {
	Edge  string  `json:"edge"`
	Delta float64 `json:"delta"`
}

type AddTextOverlayRequest struct {
	Text              string   `json:"text"`
	StartTime         float64  `json:"startTime"`
	Duration          float64  `json:"duration,omitempty"`
	X                 *float64 `json:"x,omitempty"`
	Y                 *float64 `json:"y,omitempty"`
	FontFamily        string   `json:"fontFamily,omitempty"`
	FontSize          int      `json:"fontSize,omitempty"`
	Color             string   `json:"color,omitempty"`
	BackgroundColor   string   `json:"backgroundColor,omitempty"`
	BackgroundOpacity float64  `json:"backgroundOpacity"`
	Animation         string   `json:"animation,omitempty"`
}

func (r AddTextOverlayRequest) toSpec() timeline.TextOverlaySpec {
	return timeline.TextOverlaySpec{
		Text:              r.Text,
		StartTime:         util.FromSeconds(r.StartTime),
		Duration:          util.FromSeconds(r.Duration),
		X:                 r.X,
		Y:                 r.Y,
		FontFamily:        r.FontFamily,
		FontSize:          r.FontSize,
		Color:             r.Color,
		BackgroundColor:   r.BackgroundColor,
		BackgroundOpacity: r.BackgroundOpacity,
		Animation:         timeline.Animation(r.Animation),
	}
}

type AddTransitionRequest struct {
	ClipIDBefore int     `json:"clipIdBefore"`
	ClipIDAfter  int     `json:"clipIdAfter"`
	Type         string  `json:"type"`
	Duration     float64 `json:"duration"`
}

type ResolveResponse struct {
	Time       float64          `json:"time"`
	Layers     []LayerResponse  `json:"layers"`
	Text       []TextResponse   `json:"textOverlays"`
	Transition *TransitionState `json:"transition,omitempty"`
	Black      float64          `json:"black"`
}

type LayerResponse struct {
	ClipID       int     `json:"clipId"`
	Track        int     `json:"track"`
	SourceTime   float64 `json:"sourceTime"`
	Opacity      float64 `json:"opacity"`
	Gain         float64 `json:"gain"`
	Geometry     string  `json:"geometry"`
	InTransition bool    `json:"inTransition"`
	Z            int     `json:"z"`
}

type TextResponse struct {
	ID      int     `json:"id"`
	Text    string  `json:"text"`
	Opacity float64 `json:"opacity"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type TransitionState struct {
	ID       int     `json:"id"`
	Type     string  `json:"type"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Progress float64 `json:"progress"`
	Before   float64 `json:"beforeOpacity"`
	After    float64 `json:"afterOpacity"`
}

func FrameToResponse(f compositor.Frame) ResolveResponse {
	resp := ResolveResponse{
		Time:   util.Seconds(f.Time),
		Layers: make([]LayerResponse, 0, len(f.Layers)),
		Text:   make([]TextResponse, 0, len(f.Text)),
		Black:  f.Black,
	}
	for _, l := range f.Layers {
		resp.Layers = append(resp.Layers, LayerResponse{
			ClipID:       l.Clip.ID,
			Track:        l.Clip.Track,
			SourceTime:   util.Seconds(l.SourceTime),
			Opacity:      l.Opacity,
			Gain:         l.Gain,
			Geometry:     l.Geometry.String(),
			InTransition: l.InTransition,
			Z:            l.Z,
		})
	}
	for _, t := range f.Text {
		resp.Text = append(resp.Text, TextResponse{
			ID:      t.Overlay.ID,
			Text:    t.Overlay.Text,
			Opacity: t.State.Opacity,
			X:       t.Overlay.X + t.State.DX,
			Y:       t.Overlay.Y + t.State.DY,
		})
	}
	if at := f.Transition; at != nil {
		resp.Transition = &TransitionState{
			ID:       at.Transition.ID,
			Type:     string(at.Transition.Type),
			Start:    util.Seconds(at.Start),
			End:      util.Seconds(at.End),
			Progress: at.Progress,
			Before:   at.Before,
			After:    at.After,
		}
	}
	return resp
}

// ExportRequest starts an export. Zero fields fall back to the config file.
type ExportRequest struct {
	OutputPath string `json:"outputPath"`
	Resolution string `json:"resolution,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	CRF        *int   `json:"crf,omitempty"`
}

type ExportResponse struct {
	JobID string `json:"jobId"`
}

func durPtr(s *float64) *time.Duration {
	if s == nil {
		return nil
	}
	d := util.FromSeconds(*s)
	return &d
}
