package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"time"

	"github.com/kikiluvv/clipforge/pkg/util"
)

// ExtractFrame decodes the frame of input at timestamp, scaled to fit
// width x height. Zero dimensions keep the source size.
func (e *Executor) ExtractFrame(ctx context.Context, input string, timestamp time.Duration, width, height int) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", util.FormatSeconds(timestamp),
		"-i", input,
		"-frames:v", "1",
	}
	if width > 0 && height > 0 {
		args = append(args, "-vf",
			"scale="+strconv.Itoa(width)+":"+strconv.Itoa(height)+":force_original_aspect_ratio=decrease")
	}
	args = append(args, "-f", "image2pipe", "-c:v", "png", "pipe:1")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("extract frame at %s: %w: %s", util.FormatSeconds(timestamp), err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("extract frame at %s: no frame decoded", util.FormatSeconds(timestamp))
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}
