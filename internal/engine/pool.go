package engine

import (
	"context"
	"slices"
	"sync"
)

// pool hands out a fixed number of slots to callers in arrival order.
type pool struct {
	mu      sync.Mutex
	slots   int
	active  int
	waiters []chan struct{}
}

func newPool(slots int) *pool {
	return &pool{slots: max(slots, 1)}
}

// acquire blocks until a slot is free or ctx is done. Waiters are served
// first in, first out.
func (p *pool) acquire(ctx context.Context) error {
	p.mu.Lock()
	if p.active < p.slots && len(p.waiters) == 0 {
		p.active++
		p.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	p.waiters = append(p.waiters, ready)
	p.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	select {
	case <-ready:
		// Handed a slot while giving up; pass it on.
		p.mu.Unlock()
		p.release()
	default:
		p.waiters = slices.DeleteFunc(p.waiters, func(c chan struct{}) bool { return c == ready })
		p.mu.Unlock()
	}
	return context.Cause(ctx)
}

// release frees a slot, handing it straight to the oldest waiter.
func (p *pool) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.waiters) > 0 {
		next := p.waiters[0]
		p.waiters = p.waiters[1:]
		close(next)
		return
	}
	p.active--
}

func (p *pool) stats() (active, queued int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, len(p.waiters)
}
