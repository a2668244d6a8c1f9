package ffmpeg

import "time"

// VideoInfo contains metadata about a media file
type VideoInfo struct {
	FilePath     string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	VideoCodec   string
	HasVideo     bool
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
}

// Progress is one block of ffmpeg -progress output.
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	OutTime time.Duration
	Speed   float64
	Done    bool
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(Progress)
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF          = 23
	DefaultPreset       = "medium"
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "192k"
	DefaultFPS          = 30
	DefaultSampleRate   = 48000
)
