package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/logging"
)

// Options locates the ffmpeg binaries.
type Options struct {
	BinaryPath string
	ProbePath  string
	Threads    int
}

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	if opts.BinaryPath == "" {
		opts.BinaryPath = "ffmpeg"
	}
	if opts.ProbePath == "" {
		opts.ProbePath = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(opts.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := exec.LookPath(opts.ProbePath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logging.Component(logger, "ffmpeg"),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// Run executes ffmpeg with the given arguments and streams progress.
// Cancelling ctx kills the process and returns ctx.Err().
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// Global options go before any input
	args := []string{"-y", "-hide_banner", "-nostats", "-loglevel", "error"}
	if e.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(e.threads))
	}
	args = append(args, "-progress", "pipe:2")
	args = append(args, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := &lineTail{max: 8}
	logLine := func(line string) {
		tail.add(line)
		if opts.LogHandler != nil {
			opts.LogHandler(line)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// stderr carries both -progress blocks and error logs
	go func() {
		defer wg.Done()
		parseProgress(stderr, opts.ProgressHandler, logLine)
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			logLine(scanner.Text())
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if msg := tail.String(); msg != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// progressKeys are the key=value lines ffmpeg writes for -progress.
var progressKeys = map[string]bool{
	"frame": true, "fps": true, "bitrate": true, "total_size": true,
	"out_time_us": true, "out_time_ms": true, "out_time": true,
	"dup_frames": true, "drop_frames": true, "speed": true, "progress": true,
}

// parseProgress splits ffmpeg stderr into progress blocks and plain log
// lines. A block ends with a progress= line.
func parseProgress(r io.Reader, progressHandler func(Progress), logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	var p Progress

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok || !progressKeys[key] || strings.Contains(key, " ") {
			if line != "" && logHandler != nil {
				logHandler(line)
			}
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "frame":
			p.Frame, _ = strconv.Atoi(value)
		case "fps":
			p.FPS, _ = strconv.ParseFloat(value, 64)
		case "bitrate":
			p.Bitrate = value
		case "out_time_us", "out_time_ms":
			// Both keys are in microseconds.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				p.OutTime = time.Duration(us) * time.Microsecond
			}
		case "speed":
			p.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
		case "progress":
			p.Done = value == "end"
			if progressHandler != nil {
				progressHandler(p)
			}
			p = Progress{}
		}
	}
}

// lineTail keeps the last few log lines for error messages.
type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "; ")
}

// IsCancelled reports whether err came from a cancelled run.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
