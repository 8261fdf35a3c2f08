package pipeline

import (
	"context"
	"sync"
	"time"
)

// pacer spaces word flashes so consecutive displays stay readable. Waiters
// are granted slots in call order; pacing delays emission, never reorders it.
type pacer struct {
	mu    sync.Mutex
	every time.Duration
	last  time.Time
}

func newPacer(every time.Duration) *pacer {
	return &pacer{every: every}
}

// wait blocks until the next display slot or ctx is done.
func (p *pacer) wait(ctx context.Context) {
	if p.every <= 0 {
		return
	}
	p.mu.Lock()
	now := time.Now()
	next := p.last.Add(p.every)
	var delay time.Duration
	if now.Before(next) {
		delay = next.Sub(now)
		p.last = next
	} else {
		p.last = now
	}
	p.mu.Unlock()

	if delay <= 0 {
		return
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
