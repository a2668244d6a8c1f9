package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/project"
	"github.com/kikiluvv/clipforge/internal/render"
)

type fakeMedia struct {
	assets map[int]project.Asset
}

func (m *fakeMedia) Lookup(ctx context.Context, id int) (project.Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return project.Asset{}, fmt.Errorf("media %d: %w", id, project.ErrNotFound)
	}
	return a, nil
}

func (m *fakeMedia) ListMedia(ctx context.Context) ([]project.Asset, error) {
	var out []project.Asset
	for i := 1; i <= len(m.assets); i++ {
		out = append(out, m.assets[i])
	}
	return out, nil
}

type instantBackend struct {
	jobs chan render.Job
}

func (b *instantBackend) Render(ctx context.Context, job render.Job, sink render.ProgressSink) error {
	sink.Report(render.Progress{Percentage: 100, Operation: "Complete!"})
	b.jobs <- job
	return nil
}

type testEnv struct {
	router   http.Handler
	exporter *pipeline.Exporter
	backend  *instantBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	session := editor.New(logger, editor.Options{HistoryLimit: 50})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go session.Run(ctx)

	backend := &instantBackend{jobs: make(chan render.Job, 1)}
	exporter := pipeline.New(logger, backend, pipeline.Options{DismissAfter: time.Hour})

	media := &fakeMedia{assets: map[int]project.Asset{
		1: {ID: 1, Path: "/media/a.mp4", Filename: "a.mp4", Duration: 10 * time.Second, Width: 1280, Height: 720, FPS: 30, HasAudio: true},
		2: {ID: 2, Path: "/media/b.mp4", Filename: "b.mp4", Duration: 6 * time.Second, Width: 1280, Height: 720, FPS: 30},
	}}

	router := NewRouter(ServerConfig{
		Session:   session,
		Exporter:  exporter,
		Media:     media,
		Config:    config.Default(),
		Logger:    logger,
		StartTime: time.Now(),
	})
	return &testEnv{router: router, exporter: exporter, backend: backend}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeTimeline(t *testing.T, rr *httptest.ResponseRecorder) TimelineResponse {
	t.Helper()
	var resp TimelineResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var body HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
}

func TestListMedia(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/media", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	var body []MediaResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body) != 2 || body[0].Duration != 10 {
		t.Errorf("media = %+v", body)
	}
}

func TestAddClip(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1, InPoint: 2})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body)
	}
	resp := decodeTimeline(t, rr)
	if resp.ID != 1 || len(resp.Timeline.Clips) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	c := resp.Timeline.Clips[0]
	if c.InPoint != 2 || c.OutPoint != 10 || c.Duration != 8 {
		t.Errorf("clip trim = [%v, %v] duration %v", c.InPoint, c.OutPoint, c.Duration)
	}
	if c.Metadata.Path != "/media/a.mp4" {
		t.Errorf("metadata not copied: %+v", c.Metadata)
	}
	if resp.Selected != 1 || !resp.CanUndo {
		t.Errorf("selected=%d canUndo=%v", resp.Selected, resp.CanUndo)
	}

	rr = env.do(t, http.MethodGet, "/timeline", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /timeline status = %d", rr.Code)
	}
	if got := decodeTimeline(t, rr); len(got.Timeline.Clips) != 1 {
		t.Errorf("GET /timeline clips = %d", len(got.Timeline.Clips))
	}
}

func TestAddClip_Errors(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 9}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown media status = %d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1, InPoint: 5, OutPoint: 3}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad trim status = %d, want 422", rr.Code)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/timeline/clips", strings.NewReader("{"))
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rr.Code)
	}
}

func TestSplitTrimRemove(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1})

	rr := env.do(t, http.MethodPost, "/timeline/clips/1/split", SplitRequest{Time: 4})
	if rr.Code != http.StatusOK {
		t.Fatalf("split status = %d", rr.Code)
	}
	resp := decodeTimeline(t, rr)
	if !resp.Changed || len(resp.Timeline.Clips) != 2 || resp.ID != 3 {
		t.Fatalf("split response = %+v", resp)
	}

	// Splitting at an edge is a silent no-op.
	rr = env.do(t, http.MethodPost, "/timeline/clips/3/split", SplitRequest{Time: 4})
	if rr.Code != http.StatusOK || decodeTimeline(t, rr).Changed {
		t.Errorf("edge split should be a no-op, status %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/timeline/clips/3/trim", TrimRequest{Edge: "right", Delta: -1})
	resp = decodeTimeline(t, rr)
	if !resp.Changed {
		t.Fatal("trim right should change the clip")
	}
	for _, c := range resp.Timeline.Clips {
		if c.ID == 3 && c.Duration != 5 {
			t.Errorf("trimmed duration = %v, want 5", c.Duration)
		}
	}

	if rr := env.do(t, http.MethodPost, "/timeline/clips/3/trim", TrimRequest{Edge: "middle"}); rr.Code != http.StatusBadRequest {
		t.Errorf("bad edge status = %d", rr.Code)
	}

	if rr := env.do(t, http.MethodDelete, "/timeline/clips/2", nil); rr.Code != http.StatusOK {
		t.Errorf("remove status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/timeline/clips/2", nil); rr.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/timeline/clips/abc", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rr.Code)
	}
}

func TestUpdateClip(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1})

	volume := 250
	rr := env.do(t, http.MethodPatch, "/timeline/clips/1", UpdateClipRequest{Volume: &volume})
	resp := decodeTimeline(t, rr)
	if resp.Timeline.Clips[0].Volume != 200 {
		t.Errorf("volume = %d, want clamped 200", resp.Timeline.Clips[0].Volume)
	}

	if rr := env.do(t, http.MethodPatch, "/timeline/clips/7", UpdateClipRequest{Volume: &volume}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown clip status = %d, want 404", rr.Code)
	}
}

func TestUndoRedo(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1})
	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 2, StartTime: 10})

	resp := decodeTimeline(t, env.do(t, http.MethodPost, "/timeline/undo", nil))
	if !resp.Changed || len(resp.Timeline.Clips) != 1 || !resp.CanRedo {
		t.Fatalf("undo response = %+v", resp)
	}
	resp = decodeTimeline(t, env.do(t, http.MethodPost, "/timeline/redo", nil))
	if !resp.Changed || len(resp.Timeline.Clips) != 2 {
		t.Fatalf("redo response = %+v", resp)
	}
	resp = decodeTimeline(t, env.do(t, http.MethodPost, "/timeline/redo", nil))
	if resp.Changed {
		t.Error("redo with empty stack should not change anything")
	}
}

func TestTransitionsAndResolve(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1, Duration: 4})
	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 2, StartTime: 4, Duration: 4})

	rr := env.do(t, http.MethodPost, "/timeline/transitions", AddTransitionRequest{ClipIDBefore: 1, ClipIDAfter: 2, Type: "crossfade", Duration: 1})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add transition status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/timeline/transitions", AddTransitionRequest{ClipIDBefore: 1, ClipIDAfter: 9, Type: "fade", Duration: 1}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("dangling transition status = %d, want 422", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/timeline/resolve?t=4", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", rr.Code)
	}
	var frame ResolveResponse
	if err := json.NewDecoder(rr.Body).Decode(&frame); err != nil {
		t.Fatal(err)
	}
	if frame.Transition == nil || len(frame.Layers) != 2 {
		t.Fatalf("frame = %+v", frame)
	}
	if frame.Transition.Progress < 0.49 || frame.Transition.Progress > 0.51 {
		t.Errorf("progress = %v, want 0.5", frame.Transition.Progress)
	}

	if rr := env.do(t, http.MethodGet, "/timeline/resolve?t=-1", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("negative t status = %d", rr.Code)
	}

	if rr := env.do(t, http.MethodDelete, "/timeline/transitions/1", nil); rr.Code != http.StatusOK {
		t.Errorf("remove transition status = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/timeline/transitions/1", nil); rr.Code != http.StatusNotFound {
		t.Errorf("second remove transition status = %d", rr.Code)
	}
}

func TestTextOverlays(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodPost, "/timeline/text-overlays", AddTextOverlayRequest{}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d, want 400", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/timeline/text-overlays", AddTextOverlayRequest{Text: "Title", StartTime: 1})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeTimeline(t, rr)
	o := resp.Timeline.TextOverlays[0]
	if o.Duration != 3 || o.X != 50 || o.Y != 80 {
		t.Errorf("overlay defaults = %+v", o)
	}

	if rr := env.do(t, http.MethodDelete, fmt.Sprintf("/timeline/text-overlays/%d", o.ID), nil); rr.Code != http.StatusOK {
		t.Errorf("remove status = %d", rr.Code)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, http.MethodPost, "/export", ExportRequest{OutputPath: "/tmp/out.mp4"}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty timeline status = %d, want 400", rr.Code)
	}

	env.do(t, http.MethodPost, "/timeline/clips", AddClipRequest{MediaID: 1, Duration: 4})

	if rr := env.do(t, http.MethodPost, "/export", ExportRequest{Resolution: "4k", OutputPath: "/tmp/out.mp4"}); rr.Code != http.StatusBadRequest {
		t.Errorf("bad resolution status = %d, want 400", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/export", ExportRequest{OutputPath: "/tmp/out.mp4", Resolution: "720p"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("export status = %d, body %s", rr.Code, rr.Body)
	}
	var started ExportResponse
	if err := json.NewDecoder(rr.Body).Decode(&started); err != nil {
		t.Fatal(err)
	}

	select {
	case job := <-env.backend.jobs:
		if job.Width != 1280 || job.Height != 720 || len(job.Clips) != 1 {
			t.Errorf("job = %+v", job)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("backend was not called")
	}
	if _, err := env.exporter.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	rr = env.do(t, http.MethodGet, "/export/progress", nil)
	var status pipeline.Status
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.JobID != started.JobID || !status.Done || status.Progress.Percentage != 100 {
		t.Errorf("status = %+v", status)
	}

	if rr := env.do(t, http.MethodPost, "/export/cancel", nil); rr.Code != http.StatusConflict {
		t.Errorf("cancel without job status = %d, want 409", rr.Code)
	}
}
