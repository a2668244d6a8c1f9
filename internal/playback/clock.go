// Package playback drives the preview playhead. The clock accumulates real
// elapsed time between ticks, so it does not drift when frames are late.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

// DefaultFrameRate is the tick rate used when none is configured.
const DefaultFrameRate = 60

// Ticker is the part of *time.Ticker the clock needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

// Options configures a Clock. Nil functions get real-time defaults.
type Options struct {
	FrameRate int
	Now       func() time.Time
	NewTicker func(d time.Duration) Ticker
	// OnUpdate receives every new playhead position.
	OnUpdate func(time.Duration)
	// OnEnd fires once when playback reaches the end.
	OnEnd func()
}

// Clock is a virtual playhead advanced by wall-clock deltas.
type Clock struct {
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	interval  time.Duration
	onUpdate  func(time.Duration)
	onEnd     func()

	mu       sync.Mutex
	current  time.Duration
	total    time.Duration
	playing  bool
	lastTick time.Time
	wake     chan struct{}
}

// New creates a paused clock at zero.
func New(opts Options) *Clock {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = func(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
	}
	return &Clock{
		now:       opts.Now,
		newTicker: opts.NewTicker,
		interval:  time.Second / time.Duration(opts.FrameRate),
		onUpdate:  opts.OnUpdate,
		onEnd:     opts.OnEnd,
		wake:      make(chan struct{}, 1),
	}
}

// Start begins playback from current towards total. It does nothing if the
// clock is already playing. Starting at or past the end rewinds to zero
// first, so pressing play on a finished timeline replays it.
func (c *Clock) Start(current, total time.Duration) {
	c.mu.Lock()
	if c.playing {
		c.mu.Unlock()
		return
	}
	if current >= total || current < 0 {
		current = 0
	}
	c.playing = true
	c.current = current
	c.total = total
	c.lastTick = c.now()
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pause halts playback and keeps the position.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

// Stop halts playback and rewinds to zero.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.playing = false
	c.current = 0
	c.mu.Unlock()
	c.emit(0)
}

// Seek moves the playhead without changing whether the clock is running.
func (c *Clock) Seek(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = max(t, 0)
	c.lastTick = c.now()
}

// Tick advances the playhead by the time since the previous tick. At the end
// it clamps to the total, emits a final update, fires OnEnd and stops.
func (c *Clock) Tick() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	now := c.now()
	c.current += now.Sub(c.lastTick)
	c.lastTick = now

	ended := c.current >= c.total
	if ended {
		c.current = c.total
		c.playing = false
	}
	current := c.current
	c.mu.Unlock()

	c.emit(current)
	if ended && c.onEnd != nil {
		c.onEnd()
	}
}

// Run ticks the clock at the frame rate while it is playing. The ticker only
// exists during playback and is released on pause or when ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	for {
		if !c.Playing() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.wake:
				continue
			}
		}
		if err := c.play(ctx); err != nil {
			return err
		}
	}
}

func (c *Clock) play(ctx context.Context) error {
	ticker := c.newTicker(c.interval)
	defer ticker.Stop()

	for c.Playing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			c.Tick()
		}
	}
	return nil
}

func (c *Clock) emit(t time.Duration) {
	if c.onUpdate != nil {
		c.onUpdate(t)
	}
}

// Current is the playhead position.
func (c *Clock) Current() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Playing reports whether the clock is running.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// SetTotal changes where playback ends, for edits made while playing.
func (c *Clock) SetTotal(total time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
}

// TimelineDuration is how far playback runs: the end of the last clip or
// text overlay.
func TimelineDuration(snap timeline.Snapshot) time.Duration {
	return snap.TotalDuration()
}
