package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/kikiluvv/clipforge/pkg/util"
)

// ProbeVideo reads the metadata the media library stores for a file.
func (e *Executor) ProbeVideo(ctx context.Context, filePath string) (*VideoInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}

	info, err := parseProbe(output)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filePath, err)
	}
	info.FilePath = filePath

	e.logger.Debug().
		Str("path", filePath).
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Bool("audio", info.HasAudio).
		Msg("probed media")
	return info, nil
}

// parseProbe turns ffprobe JSON into VideoInfo. Only the first video and
// first audio stream are considered. Width and height are swapped for
// sources recorded in portrait with a rotation tag.
func parseProbe(data []byte) (*VideoInfo, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse output: %w", err)
	}

	info := &VideoInfo{}
	if secs, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = util.FromSeconds(secs)
	}
	if br, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.VideoCodec = s.CodecName
			info.Width, info.Height = s.Width, s.Height
			if rotated(s) {
				info.Width, info.Height = s.Height, s.Width
			}
			info.FPS = util.ParseFrameRate(s.RFrameRate)
			if info.FPS == 0 {
				info.FPS = util.ParseFrameRate(s.AvgFrameRate)
			}
			if info.Duration == 0 {
				info.Duration = streamDuration(s.Duration)
			}
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.AudioCodec = s.CodecName
			if br, err := strconv.ParseInt(s.BitRate, 10, 64); err == nil {
				info.AudioBitrate = br
			}
			if info.Duration == 0 {
				info.Duration = streamDuration(s.Duration)
			}
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return nil, fmt.Errorf("no audio or video streams")
	}
	return info, nil
}

func streamDuration(s string) time.Duration {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return util.FromSeconds(secs)
}

func rotated(s probeStream) bool {
	r := s.Tags.Rotate
	for _, sd := range s.SideDataList {
		if sd.Rotation != 0 {
			r = strconv.Itoa(sd.Rotation)
		}
	}
	switch r {
	case "90", "-90", "270", "-270":
		return true
	}
	return false
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	BitRate      string `json:"bit_rate"`
	Duration     string `json:"duration"`
	Tags         struct {
		Rotate string `json:"rotate"`
	} `json:"tags"`
	SideDataList []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
}
