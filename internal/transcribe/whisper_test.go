package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/config"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "speech.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testClient(url, key string) *WhisperClient {
	return NewWhisperClient(config.TranscriptionConfig{
		Endpoint: url,
		APIKey:   key,
		Model:    "whisper-1",
		Language: "en",
		Timeout:  5 * time.Second,
	}, zerolog.Nop())
}

func TestWhisperClientTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for field, want := range map[string]string{
			"model":                     "whisper-1",
			"language":                  "en",
			"response_format":           "verbose_json",
			"timestamp_granularities[]": "segment",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "speech.wav" || string(data) != "RIFF....WAVE" {
			t.Errorf("unexpected upload %q: %q", hdr.Filename, data)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"hi there","segments":[
			{"id":0,"start":0.0,"end":1.5,"text":" hi"},
			{"id":1,"start":1.5,"end":2.25,"text":" there"}]}`)
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, "sk-test").Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	want := []Segment{
		{Text: " hi", Start: 0, Duration: 1500 * time.Millisecond},
		{Text: " there", Start: 1500 * time.Millisecond, Duration: 750 * time.Millisecond},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d segments, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWhisperClientTextOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"just words"}`)
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, "k").Transcribe(context.Background(), writeAudio(t))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "just words" || got[0].Start != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestWhisperClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, "wrong").Transcribe(context.Background(), writeAudio(t))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.IsRetryable() {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestWhisperClientNeedsKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := testClient("http://127.0.0.1:0", "").Transcribe(context.Background(), writeAudio(t)); err == nil {
		t.Error("expected an error without an API key")
	}
}
