package memory

import "go.uber.org/atomic"

// KeyGenerator issues strictly increasing primary keys starting at 1
type KeyGenerator struct {
	counter *atomic.Int64
}

// NewKeyGenerator creates a generator whose first key is 1
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{counter: atomic.NewInt64(0)}
}

// Next increments the counter and returns the new value
func (g *KeyGenerator) Next() int64 {
	return g.counter.Inc()
}

// Current returns the last issued key, 0 when none
func (g *KeyGenerator) Current() int64 {
	return g.counter.Load()
}

// Advance raises the counter to k if k is greater, so k is never issued
func (g *KeyGenerator) Advance(k int64) {
	for {
		cur := g.counter.Load()
		if k <= cur || g.counter.CompareAndSwap(cur, k) {
			return
		}
	}
}

// Reset sets the counter back to 0
func (g *KeyGenerator) Reset() {
	g.counter.Store(0)
}
