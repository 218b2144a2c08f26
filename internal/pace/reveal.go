package pace

import (
	"context"
	"time"
)

// Reveal walks a turn's text as a finite sequence of growing prefixes, one
// sleep per step, at the controller's reveal rate. It is lazy and
// restartable, and nothing in the protocol engine depends on it being
// consumed: rendering may abandon it at any point.
type Reveal struct {
	runes []rune
	chunk int
	delay time.Duration
	pos   int
	sleep SleepFunc
}

func (c *Controller) Reveal(text string) *Reveal {
	return &Reveal{
		runes: []rune(text),
		chunk: c.revealChunk,
		delay: time.Duration(float64(time.Second) * float64(c.revealChunk) / c.cfg.RevealRate),
		sleep: c.sleep,
	}
}

// Next waits one step and returns the next prefix. ok is false once the
// full text has been produced.
func (r *Reveal) Next(ctx context.Context) (prefix string, ok bool, err error) {
	if r.pos >= len(r.runes) {
		return "", false, nil
	}
	if err := r.sleep(ctx, r.delay); err != nil {
		return "", false, err
	}
	r.pos += r.chunk
	if r.pos > len(r.runes) {
		r.pos = len(r.runes)
	}
	return string(r.runes[:r.pos]), true, nil
}

func (r *Reveal) Reset() {
	r.pos = 0
}

// StepDelay is the pause before each prefix.
func (r *Reveal) StepDelay() time.Duration {
	return r.delay
}

// Prefixes lists every prefix Next would produce, without sleeping. The
// last element is the full text.
func (r *Reveal) Prefixes() []string {
	if len(r.runes) == 0 {
		return nil
	}
	var out []string
	for i := r.chunk; i < len(r.runes); i += r.chunk {
		out = append(out, string(r.runes[:i]))
	}
	return append(out, string(r.runes))
}
