package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kikiluvv/clipforge/pkg/util"
)

// Document is the persisted and wire shape of a timeline. Times are seconds.
type Document struct {
	Clips             []ClipJSON        `json:"clips"`
	TextOverlays      []TextOverlayJSON `json:"textOverlays"`
	Transitions       []TransitionJSON  `json:"transitions"`
	PlayheadTime      float64           `json:"playheadTime"`
	NextClipID        int               `json:"nextClipId"`
	NextTextOverlayID int               `json:"nextTextOverlayId"`
	NextTransitionID  int               `json:"nextTransitionId"`
}

type MetadataJSON struct {
	Filename string  `json:"filename"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	HasAudio bool    `json:"hasAudio"`
}

type ClipJSON struct {
	ID              int          `json:"id"`
	MediaID         int          `json:"mediaId"`
	Track           int          `json:"track"`
	StartTime       float64      `json:"startTime"`
	InPoint         float64      `json:"inPoint"`
	OutPoint        float64      `json:"outPoint"`
	Duration        float64      `json:"duration"`
	SourceDuration  float64      `json:"sourceDuration,omitempty"`
	Volume          int          `json:"volume"`
	Muted           bool         `json:"isMuted"`
	FadeInDuration  float64      `json:"fadeInDuration"`
	FadeOutDuration float64      `json:"fadeOutDuration"`
	Metadata        MetadataJSON `json:"metadata"`
}

type TextOverlayJSON struct {
	ID                int     `json:"id"`
	Text              string  `json:"text"`
	StartTime         float64 `json:"startTime"`
	Duration          float64 `json:"duration"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	FontFamily        string  `json:"fontFamily"`
	FontSize          int     `json:"fontSize"`
	Color             string  `json:"color"`
	BackgroundColor   string  `json:"backgroundColor"`
	BackgroundOpacity float64 `json:"backgroundOpacity"`
	Animation         string  `json:"animation"`
}

type TransitionJSON struct {
	ID           int     `json:"id"`
	ClipIDBefore int     `json:"clipIdBefore"`
	ClipIDAfter  int     `json:"clipIdAfter"`
	Type         string  `json:"type"`
	Duration     float64 `json:"duration"`
}

func secs(d time.Duration) float64 { return util.Seconds(d) }
func dur(s float64) time.Duration  { return util.FromSeconds(s) }

// ClipToJSON converts a clip to its wire form.
func ClipToJSON(c Clip) ClipJSON {
	return ClipJSON{
		ID:              c.ID,
		MediaID:         c.MediaID,
		Track:           c.Track,
		StartTime:       secs(c.StartTime),
		InPoint:         secs(c.InPoint),
		OutPoint:        secs(c.OutPoint),
		Duration:        secs(c.Duration),
		SourceDuration:  secs(c.SourceDuration),
		Volume:          c.Volume,
		Muted:           c.Muted,
		FadeInDuration:  secs(c.FadeIn),
		FadeOutDuration: secs(c.FadeOut),
		Metadata: MetadataJSON{
			Filename: c.Metadata.Filename,
			Path:     c.Metadata.Path,
			Duration: secs(c.Metadata.Duration),
			Width:    c.Metadata.Width,
			Height:   c.Metadata.Height,
			FPS:      c.Metadata.FPS,
			HasAudio: c.Metadata.HasAudio,
		},
	}
}

func clipFromJSON(j ClipJSON) Clip {
	c := Clip{
		ID:             j.ID,
		MediaID:        j.MediaID,
		Track:          j.Track,
		StartTime:      dur(j.StartTime),
		InPoint:        dur(j.InPoint),
		OutPoint:       dur(j.OutPoint),
		SourceDuration: dur(j.SourceDuration),
		Volume:         j.Volume,
		Muted:          j.Muted,
		FadeIn:         dur(j.FadeInDuration),
		FadeOut:        dur(j.FadeOutDuration),
		Metadata: Metadata{
			Filename: j.Metadata.Filename,
			Path:     j.Metadata.Path,
			Duration: dur(j.Metadata.Duration),
			Width:    j.Metadata.Width,
			Height:   j.Metadata.Height,
			FPS:      j.Metadata.FPS,
			HasAudio: j.Metadata.HasAudio,
		},
	}
	// Duration is always derived so rounding in the document cannot
	// desynchronise it from the trim points.
	c.Duration = c.OutPoint - c.InPoint
	if c.SourceDuration <= 0 {
		c.SourceDuration = c.Metadata.Duration
		if c.SourceDuration <= 0 {
			c.SourceDuration = c.OutPoint
		}
	}
	return c
}

func TextOverlayToJSON(o TextOverlay) TextOverlayJSON {
	return TextOverlayJSON{
		ID:                o.ID,
		Text:              o.Text,
		StartTime:         secs(o.StartTime),
		Duration:          secs(o.Duration),
		X:                 o.X,
		Y:                 o.Y,
		FontFamily:        o.FontFamily,
		FontSize:          o.FontSize,
		Color:             o.Color,
		BackgroundColor:   o.BackgroundColor,
		BackgroundOpacity: o.BackgroundOpacity,
		Animation:         string(o.Animation),
	}
}

func textOverlayFromJSON(j TextOverlayJSON) TextOverlay {
	anim := Animation(j.Animation)
	if !anim.Valid() {
		anim = AnimationNone
	}
	return TextOverlay{
		ID:                j.ID,
		Text:              j.Text,
		StartTime:         dur(j.StartTime),
		Duration:          dur(j.Duration),
		X:                 j.X,
		Y:                 j.Y,
		FontFamily:        j.FontFamily,
		FontSize:          j.FontSize,
		Color:             j.Color,
		BackgroundColor:   j.BackgroundColor,
		BackgroundOpacity: j.BackgroundOpacity,
		Animation:         anim,
	}
}

func TransitionToJSON(tr Transition) TransitionJSON {
	return TransitionJSON{
		ID:           tr.ID,
		ClipIDBefore: tr.ClipIDBefore,
		ClipIDAfter:  tr.ClipIDAfter,
		Type:         string(tr.Type),
		Duration:     secs(tr.Duration),
	}
}

func transitionFromJSON(j TransitionJSON) Transition {
	return Transition{
		ID:           j.ID,
		ClipIDBefore: j.ClipIDBefore,
		ClipIDAfter:  j.ClipIDAfter,
		Type:         TransitionType(j.Type),
		Duration:     dur(j.Duration),
	}
}

// NewDocument builds the document for snap with the given playhead.
func NewDocument(snap Snapshot, playhead time.Duration) Document {
	doc := Document{
		Clips:             make([]ClipJSON, 0, len(snap.Clips)),
		TextOverlays:      make([]TextOverlayJSON, 0, len(snap.TextOverlays)),
		Transitions:       make([]TransitionJSON, 0, len(snap.Transitions)),
		PlayheadTime:      secs(playhead),
		NextClipID:        snap.NextClipID,
		NextTextOverlayID: snap.NextTextOverlayID,
		NextTransitionID:  snap.NextTransitionID,
	}
	for _, c := range snap.Clips {
		doc.Clips = append(doc.Clips, ClipToJSON(c))
	}
	for _, o := range snap.TextOverlays {
		doc.TextOverlays = append(doc.TextOverlays, TextOverlayToJSON(o))
	}
	for _, tr := range snap.Transitions {
		doc.Transitions = append(doc.Transitions, TransitionToJSON(tr))
	}
	return doc
}

// Snapshot converts the document back into model content and checks it.
// Counters missing from older documents are derived from the highest id.
func (d Document) Snapshot() (Snapshot, time.Duration, error) {
	snap := Snapshot{
		NextClipID:        d.NextClipID,
		NextTextOverlayID: d.NextTextOverlayID,
		NextTransitionID:  d.NextTransitionID,
	}
	for _, j := range d.Clips {
		c := clipFromJSON(j)
		snap.Clips = append(snap.Clips, c)
		snap.NextClipID = max(snap.NextClipID, c.ID+1)
	}
	for _, j := range d.TextOverlays {
		o := textOverlayFromJSON(j)
		snap.TextOverlays = append(snap.TextOverlays, o)
		snap.NextTextOverlayID = max(snap.NextTextOverlayID, o.ID+1)
	}
	for _, j := range d.Transitions {
		tr := transitionFromJSON(j)
		snap.Transitions = append(snap.Transitions, tr)
		snap.NextTransitionID = max(snap.NextTransitionID, tr.ID+1)
	}
	snap.NextClipID = max(snap.NextClipID, 1)
	snap.NextTextOverlayID = max(snap.NextTextOverlayID, 1)
	snap.NextTransitionID = max(snap.NextTransitionID, 1)

	if err := snap.CheckInvariants(); err != nil {
		return Snapshot{}, 0, fmt.Errorf("invalid timeline document: %w", err)
	}
	return snap, max(dur(d.PlayheadTime), 0), nil
}

// Marshal encodes snap as a JSON document.
func Marshal(snap Snapshot, playhead time.Duration) ([]byte, error) {
	return json.Marshal(NewDocument(snap, playhead))
}

// Unmarshal decodes a JSON document.
func Unmarshal(data []byte) (Snapshot, time.Duration, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, 0, fmt.Errorf("decode timeline document: %w", err)
	}
	return doc.Snapshot()
}
