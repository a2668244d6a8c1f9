package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Where the project database and scratch files live
	DataDir string `yaml:"data_dir"`

	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Export   ExportConfig   `yaml:"export"`
	History  HistoryConfig  `yaml:"history"`
	Playback PlaybackConfig `yaml:"playback"`
	Project  ProjectConfig  `yaml:"project"`
	API      APIConfig      `yaml:"api"`
	Preview  PreviewConfig  `yaml:"preview"`

	Transcription TranscriptionConfig `yaml:"transcription"`

	// Font family to font file, used by text overlays
	Fonts map[string]string `yaml:"fonts,omitempty"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"ffprobe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
}

type ExportConfig struct {
	Resolution   string        `yaml:"resolution"`
	CRF          int           `yaml:"crf"`
	AudioBitrate string        `yaml:"audio_bitrate"`
	FPS          int           `yaml:"fps"`
	PollInterval time.Duration `yaml:"poll_interval"`
	DismissAfter time.Duration `yaml:"dismiss_after"`
	TempDir      string        `yaml:"temp_dir"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type PlaybackConfig struct {
	FrameRate int `yaml:"frame_rate"`
}

type ProjectConfig struct {
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	DBFile           string        `yaml:"db_file"`
}

type APIConfig struct {
	Port int `yaml:"port"`
}

type PreviewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TranscriptionConfig points at a Whisper-compatible speech-to-text API.
// An empty APIKey falls back to $OPENAI_API_KEY.
type TranscriptionConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Key returns the API key to send.
func (t TranscriptionConfig) Key() string {
	if t.APIKey != "" {
		return t.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	switch c.Export.Resolution {
	case "source", "720p", "1080p":
	default:
		return fmt.Errorf("export.resolution must be source, 720p or 1080p, got %q", c.Export.Resolution)
	}
	if c.Export.CRF < 0 || c.Export.CRF > 51 {
		return fmt.Errorf("export.crf out of range: %d", c.Export.CRF)
	}
	if c.Export.FPS <= 0 {
		return fmt.Errorf("export.fps must be positive")
	}
	if c.Export.PollInterval <= 0 {
		return fmt.Errorf("export.poll_interval must be positive")
	}
	if c.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be positive")
	}
	if c.Playback.FrameRate <= 0 {
		return fmt.Errorf("playback.frame_rate must be positive")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		return fmt.Errorf("preview size must be positive")
	}
	if c.FFmpeg.Threads < 0 {
		return fmt.Errorf("ffmpeg.threads must not be negative")
	}
	if c.Transcription.Endpoint == "" || c.Transcription.Model == "" {
		return fmt.Errorf("transcription.endpoint and transcription.model are required")
	}
	if c.Transcription.Timeout <= 0 {
		return fmt.Errorf("transcription.timeout must be positive")
	}
	return nil
}

// DBPath is the project database location.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Project.DBFile) {
		return c.Project.DBFile
	}
	return filepath.Join(c.DataDir, c.Project.DBFile)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
		},
		Export: ExportConfig{
			Resolution:   "source",
			CRF:          23,
			AudioBitrate: "192k",
			FPS:          30,
			PollInterval: 500 * time.Millisecond,
			DismissAfter: 2 * time.Second,
		},
		History: HistoryConfig{
			Limit: 50,
		},
		Playback: PlaybackConfig{
			FrameRate: 60,
		},
		Project: ProjectConfig{
			AutosaveInterval: 30 * time.Second,
			DBFile:           "clipforge.db",
		},
		API: APIConfig{
			Port: 8787,
		},
		Preview: PreviewConfig{
			Width:  640,
			Height: 360,
		},
		Transcription: TranscriptionConfig{
			Endpoint: "https://api.openai.com/v1/audio/transcriptions",
			Model:    "whisper-1",
			Language: "en",
			Timeout:  2 * time.Minute,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.clipforge"
	}
	return filepath.Join(home, ".clipforge")
}

func findConfigFile() string {
	candidates := []string{
		"./clipforge.yaml",
		"./clipforge.yml",
		filepath.Join(os.Getenv("HOME"), ".clipforge", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
