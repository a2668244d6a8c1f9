package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kikiluvv/clipforge/internal/compositor"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/project"
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

const version = "0.1.0"

func NewRouter(cfg ServerConfig) *chi.Mux {
	logger := logging.Component(cfg.Logger, "api")
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/media", listMediaHandler(cfg))

	r.Route("/timeline", func(r chi.Router) {
		r.Get("/", getTimelineHandler(cfg))
		r.Get("/resolve", resolveHandler(cfg))
		r.Post("/undo", commandHandler(cfg, editor.Undo{}))
		r.Post("/redo", commandHandler(cfg, editor.Redo{}))

		r.Post("/clips", addClipHandler(cfg))
		r.Patch("/clips/{id}", updateClipHandler(cfg))
		r.Delete("/clips/{id}", removeClipHandler(cfg))
		r.Post("/clips/{id}/split", splitClipHandler(cfg))
		r.Post("/clips/{id}/trim", trimClipHandler(cfg))

		r.Post("/text-overlays", addTextOverlayHandler(cfg))
		r.Delete("/text-overlays/{id}", removeTextOverlayHandler(cfg))
		r.Post("/transitions", addTransitionHandler(cfg))
		r.Delete("/transitions/{id}", removeTransitionHandler(cfg))
	})

	r.Post("/export", startExportHandler(cfg))
	r.Get("/export/progress", exportProgressHandler(cfg))
	r.Post("/export/cancel", cancelExportHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Media == nil {
			WriteError(w, http.StatusServiceUnavailable, "media library not available", "UNAVAILABLE")
			return
		}
		assets, err := cfg.Media.ListMedia(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
			return
		}
		resp := make([]MediaResponse, len(assets))
		for i, a := range assets {
			resp[i] = AssetToResponse(a)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := cfg.Session.Snapshot(r.Context())
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}
		WriteJSON(w, http.StatusOK, viewToResponse(view))
	}
}

func resolveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
		if err != nil || t < 0 {
			WriteError(w, http.StatusBadRequest, "t must be a non-negative number of seconds", "BAD_REQUEST")
			return
		}
		view, err := cfg.Session.Snapshot(r.Context())
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}
		frame := compositor.Resolve(view.Snapshot, util.FromSeconds(t))
		WriteJSON(w, http.StatusOK, FrameToResponse(frame))
	}
}

// commandHandler serves commands without a body, such as undo and redo.
func commandHandler(cfg ServerConfig, cmd editor.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apply(w, r, cfg, cmd, nil)
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddClipRequest
		if !decode(w, r, &req) {
			return
		}
		if cfg.Media == nil {
			WriteError(w, http.StatusServiceUnavailable, "media library not available", "UNAVAILABLE")
			return
		}

		asset, err := cfg.Media.Lookup(r.Context(), req.MediaID)
		if errors.Is(err, project.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "media not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to look up media", "INTERNAL_ERROR")
			return
		}

		spec := timeline.ClipSpec{
			MediaID:   asset.ID,
			Track:     req.Track,
			StartTime: util.FromSeconds(req.StartTime),
			InPoint:   util.FromSeconds(req.InPoint),
			OutPoint:  util.FromSeconds(req.OutPoint),
			Duration:  util.FromSeconds(req.Duration),
			Volume:    req.Volume,
			Muted:     req.Muted,
			FadeIn:    util.FromSeconds(req.FadeIn),
			FadeOut:   util.FromSeconds(req.FadeOut),
			Metadata:  asset.Metadata(),
		}
		if spec.OutPoint == 0 && spec.Duration == 0 {
			spec.OutPoint = asset.Duration
		}
		if spec.Duration == 0 {
			spec.Duration = spec.OutPoint - spec.InPoint
		}

		res, err := cfg.Session.Do(r.Context(), editor.AddClip{Spec: spec})
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}
		if !res.Changed {
			WriteError(w, http.StatusUnprocessableEntity, "clip rejected: invalid trim range or duration", "INVALID_CLIP")
			return
		}
		WriteJSON(w, http.StatusCreated, resultToResponse(res))
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req UpdateClipRequest
		if !decode(w, r, &req) {
			return
		}
		apply(w, r, cfg, editor.UpdateClip{ID: id, Update: req.toUpdate()}, clipExists(id))
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		apply(w, r, cfg, editor.RemoveClip{ID: id}, clipExists(id))
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req SplitRequest
		if !decode(w, r, &req) {
			return
		}
		apply(w, r, cfg, editor.SplitClip{ID: id, At: util.FromSeconds(req.Time)}, clipExists(id))
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req TrimRequest
		if !decode(w, r, &req) {
			return
		}

		delta := util.FromSeconds(req.Delta)
		var cmd editor.Command
		switch req.Edge {
		case "left":
			cmd = editor.TrimLeft{ID: id, Delta: delta}
		case "right":
			cmd = editor.TrimRight{ID: id, Delta: delta}
		default:
			WriteError(w, http.StatusBadRequest, "edge must be left or right", "BAD_REQUEST")
			return
		}
		apply(w, r, cfg, cmd, clipExists(id))
	}
}

func addTextOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddTextOverlayRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Text == "" {
			WriteError(w, http.StatusBadRequest, "text is required", "BAD_REQUEST")
			return
		}

		res, err := cfg.Session.Do(r.Context(), editor.AddTextOverlay{Spec: req.toSpec()})
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}
		if !res.Changed {
			WriteError(w, http.StatusUnprocessableEntity, "text overlay rejected", "INVALID_TEXT_OVERLAY")
			return
		}
		WriteJSON(w, http.StatusCreated, resultToResponse(res))
	}
}

func removeTextOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		exists := func(s timeline.Snapshot) bool {
			for _, o := range s.TextOverlays {
				if o.ID == id {
					return true
				}
			}
			return false
		}
		apply(w, r, cfg, editor.RemoveTextOverlay{ID: id}, exists)
	}
}

func addTransitionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddTransitionRequest
		if !decode(w, r, &req) {
			return
		}

		spec := timeline.TransitionSpec{
			ClipIDBefore: req.ClipIDBefore,
			ClipIDAfter:  req.ClipIDAfter,
			Type:         timeline.TransitionType(req.Type),
			Duration:     util.FromSeconds(req.Duration),
		}
		res, err := cfg.Session.Do(r.Context(), editor.AddTransition{Spec: spec})
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}
		if res.ID == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "transition rejected: both clips must exist and differ", "INVALID_TRANSITION")
			return
		}
		WriteJSON(w, http.StatusCreated, resultToResponse(res))
	}
}

func removeTransitionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		exists := func(s timeline.Snapshot) bool {
			for _, tr := range s.Transitions {
				if tr.ID == id {
					return true
				}
			}
			return false
		}
		apply(w, r, cfg, editor.RemoveTransition{ID: id}, exists)
	}
}

func startExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if !decode(w, r, &req) {
			return
		}

		settings, err := pipeline.SettingsFromConfig(cfg.Config, req.OutputPath)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if req.Resolution != "" {
			res, err := render.ParseResolution(req.Resolution)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			settings.Resolution = res
		}
		if req.FPS > 0 {
			settings.FPS = req.FPS
		}
		if req.CRF != nil {
			settings.CRF = *req.CRF
		}

		view, err := cfg.Session.Snapshot(r.Context())
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
			return
		}

		jobID, err := cfg.Exporter.Start(r.Context(), view.Snapshot, settings)
		var verr *pipeline.ValidationError
		switch {
		case err == nil:
			WriteJSON(w, http.StatusAccepted, ExportResponse{JobID: jobID})
		case errors.Is(err, pipeline.ErrBusy):
			WriteError(w, http.StatusConflict, err.Error(), "EXPORT_BUSY")
		case errors.As(err, &verr):
			problems := make([]string, len(verr.Problems))
			for i, p := range verr.Problems {
				problems[i] = p.String()
			}
			WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:    "export validation failed",
				Code:     "VALIDATION_FAILED",
				Problems: problems,
			})
		case errors.Is(err, pipeline.ErrNoClips), errors.Is(err, pipeline.ErrNoOutput):
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		default:
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		}
	}
}

func exportProgressHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := cfg.Exporter.Fetch(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, status)
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Exporter.Cancel() {
			WriteError(w, http.StatusConflict, "no export in progress", "NOT_RUNNING")
			return
		}
		WriteJSON(w, http.StatusAccepted, cfg.Exporter.Status())
	}
}

// apply runs cmd and writes the resulting timeline. When the command did not
// change anything and exists reports the target is missing, it answers 404.
func apply(w http.ResponseWriter, r *http.Request, cfg ServerConfig, cmd editor.Command, exists func(timeline.Snapshot) bool) {
	res, err := cfg.Session.Do(r.Context(), cmd)
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
		return
	}
	if !res.Changed && exists != nil && !exists(res.View.Snapshot) {
		WriteError(w, http.StatusNotFound, "not found", "NOT_FOUND")
		return
	}
	WriteJSON(w, http.StatusOK, resultToResponse(res))
}

func clipExists(id int) func(timeline.Snapshot) bool {
	return func(s timeline.Snapshot) bool {
		_, ok := s.Clip(id)
		return ok
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid id", "BAD_REQUEST")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}
