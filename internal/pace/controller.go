// Package pace enforces the visible rhythm of a debate: minimum turn
// durations, inter-turn gaps, bounded jitter, and the incremental reveal of
// turn text. It never shortens anything; it only pads.
package pace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

// SleepFunc waits for d or until ctx is done. Injectable so tests run
// without real time passing.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Controller)

// WithJitterSource replaces the jitter random source. fn must return values
// in [0, 1).
func WithJitterSource(fn func() float64) Option {
	return func(c *Controller) { c.jitter = fn }
}

func WithSleeper(fn SleepFunc) Option {
	return func(c *Controller) { c.sleep = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

// WithRevealChunk sets how many characters each reveal step appends.
func WithRevealChunk(n int) Option {
	return func(c *Controller) { c.revealChunk = n }
}

// Controller is immutable after construction and safe for concurrent use;
// all per-debate accounting lives with the caller.
type Controller struct {
	cfg         domain.PaceConfig
	jitter      func() float64
	sleep       SleepFunc
	now         func() time.Time
	revealChunk int
}

func NewController(cfg domain.PaceConfig, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pace config: %w", err)
	}
	c := &Controller{
		cfg:         cfg,
		jitter:      rand.Float64,
		sleep:       Sleep,
		now:         time.Now,
		revealChunk: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.revealChunk < 1 {
		c.revealChunk = 1
	}
	return c, nil
}

func (c *Controller) Config() domain.PaceConfig {
	return c.cfg
}

// GateTurn pads a finished agent call so the turn stays visible for at
// least MinTurn plus jitter. A call that already ran past the minimum gets
// zero padding; jitter is additive only.
func (c *Controller) GateTurn(ctx context.Context, role domain.Role, startedAt time.Time) (time.Duration, error) {
	latency := c.now().Sub(startedAt)
	padding := c.cfg.MinTurn + c.jitterWait() - latency
	if padding < 0 {
		padding = 0
	}
	if err := c.sleep(ctx, padding); err != nil {
		return 0, fmt.Errorf("gate %s turn: %w", role, err)
	}
	return padding, nil
}

// GateGap waits the inter-turn gap plus jitter before the next speaker.
func (c *Controller) GateGap(ctx context.Context) (time.Duration, error) {
	wait := c.cfg.Gap + c.jitterWait()
	if err := c.sleep(ctx, wait); err != nil {
		return 0, fmt.Errorf("gate gap: %w", err)
	}
	return wait, nil
}

func (c *Controller) jitterWait() time.Duration {
	if c.cfg.JitterBound <= 0 {
		return 0
	}
	return time.Duration(c.jitter() * float64(c.cfg.JitterBound))
}

// Sleep is the default SleepFunc: cancellable, returns ctx.Err() when
// interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Summary aggregates the pacing of a finished debate from its turns.
type Summary struct {
	Turns        int
	AgentLatency time.Duration
	Padding      time.Duration
	Visible      time.Duration
}

func Summarize(turns []domain.Turn) Summary {
	var s Summary
	for _, t := range turns {
		s.Turns++
		s.AgentLatency += t.Timing.AgentLatency
		s.Padding += t.Timing.Padding
		s.Visible += t.VisibleDuration()
	}
	return s
}
