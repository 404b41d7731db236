package main

import (
	"context"
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// pacer decides how long the relay sleeps between drain passes.
type pacer struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	jitter  func(time.Duration) time.Duration
}

func newPacer(base, max time.Duration) *pacer {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max < base {
		max = base
	}
	return &pacer{base: base, max: max, current: base, jitter: addJitter}
}

func (p *pacer) reset() {
	p.current = p.base
}

func (p *pacer) idle() time.Duration {
	p.reset()
	return p.jitter(p.base)
}

// failure doubles the wait up to max.
func (p *pacer) failure() time.Duration {
	p.current *= 2
	if p.current > p.max {
		p.current = p.max
	}
	return p.jitter(p.current)
}

func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
