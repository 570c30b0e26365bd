// Package ingest groups realtime captures into complete four-shot sets and
// hands each complete set to the build pipeline.
package ingest

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fourshot/wigglegram/internal/pipeline"
)

// DefaultWindow is how long a partial capture group stays open.
const DefaultWindow = 10 * time.Second

// BuildFunc runs the pipeline over a complete capture set.
type BuildFunc func(inputs [][]byte, cfg pipeline.Config) (*pipeline.Result, error)

// ResultFunc receives the outcome of each triggered build. Exactly one of
// res/err is non-nil.
type ResultFunc func(res *pipeline.Result, err error)

// Collector accepts captures tagged with a device index and triggers a build
// as soon as all four devices have reported within the grouping window.
//
// The first capture of a group opens the window; a capture from a device that
// already reported replaces the previous one; an expired window discards the
// partial group. Build failures are reported through the result callback, not
// retried.
type Collector struct {
	cfg    pipeline.Config
	window time.Duration
	build  BuildFunc
	done   ResultFunc
	logger *slog.Logger

	mu      sync.Mutex
	pending [pipeline.FrameCount][]byte
	have    int
	timer   *time.Timer
	gen     uint64 // distinguishes groups so a stale timer cannot discard a new one
}

// NewCollector wires a collector to a build function and result sink.
// A zero window falls back to DefaultWindow; a nil logger to slog.Default().
func NewCollector(cfg pipeline.Config, window time.Duration, build BuildFunc, done ResultFunc, logger *slog.Logger) *Collector {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cfg:    cfg,
		window: window,
		build:  build,
		done:   done,
		logger: logger,
	}
}

// Offer submits one capture for the given device index (0–3). The data slice
// is owned by the collector after the call.
func (c *Collector) Offer(device int, data []byte) error {
	if device < 0 || device >= pipeline.FrameCount {
		return fmt.Errorf("device index %d out of range [0,%d)", device, pipeline.FrameCount)
	}
	if len(data) == 0 {
		return fmt.Errorf("device %d: empty capture", device)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.have == 0 {
		gen := c.gen
		c.timer = time.AfterFunc(c.window, func() { c.expire(gen) })
	}

	if c.pending[device] == nil {
		c.have++
	} else {
		c.logger.Warn("replacing capture within open window", "device", device)
	}
	c.pending[device] = data

	if c.have < pipeline.FrameCount {
		return nil
	}

	inputs := make([][]byte, pipeline.FrameCount)
	copy(inputs, c.pending[:])
	c.reset()

	go func() {
		res, err := c.build(inputs, c.cfg)
		if err != nil {
			c.logger.Error("build failed", "error", err)
		} else {
			c.logger.Info("build complete",
				"width", res.Width, "height", res.Height, "bytes", len(res.GIF))
		}
		if c.done != nil {
			c.done(res, err)
		}
	}()
	return nil
}

// Pending returns how many devices have reported in the open group.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.have
}

func (c *Collector) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.have == 0 {
		return
	}
	c.logger.Warn("capture window expired, discarding partial group", "have", c.have)
	c.reset()
}

// reset clears the open group. Caller holds c.mu.
func (c *Collector) reset() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = [pipeline.FrameCount][]byte{}
	c.have = 0
	c.gen++
}
