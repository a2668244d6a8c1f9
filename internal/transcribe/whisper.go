package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// APIError is a non-2xx answer from the transcription endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("transcription request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors. Client errors are permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// WhisperClient calls an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperClient struct {
	endpoint   string
	apiKey     string
	model      string
	language   string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewWhisperClient(cfg config.TranscriptionConfig, logger zerolog.Logger) *WhisperClient {
	return &WhisperClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.Key(),
		model:      cfg.Model,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.Component(logger, "whisper"),
	}
}

type whisperResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads audioPath and returns segment-level timings.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("no API key: set transcription.api_key or OPENAI_API_KEY")
	}

	body, contentType, err := c.form(audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Info().
		Str("url", c.endpoint).
		Str("model", c.model).
		Int("body_bytes", body.Len()).
		Msg("uploading audio for transcription")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse transcription response: %w", err)
	}

	segments := make([]Segment, 0, len(result.Segments))
	for _, s := range result.Segments {
		start := util.FromSeconds(s.Start)
		segments = append(segments, Segment{
			Text:     s.Text,
			Start:    start,
			Duration: util.FromSeconds(s.End) - start,
		})
	}
	// Some servers answer with text only.
	if len(segments) == 0 && result.Text != "" {
		segments = append(segments, Segment{Text: result.Text})
	}
	return segments, nil
}

func (c *WhisperClient) form(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}

	fields := [][2]string{
		{"model", c.model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "segment"},
	}
	if c.language != "" {
		fields = append(fields, [2]string{"language", c.language})
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
