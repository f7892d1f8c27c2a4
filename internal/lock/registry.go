// Package lock hands out one fair mutual-exclusion primitive per user key.
//
// Each key maps to a weighted semaphore of size one. The semaphore queues
// blocked acquirers and grants them strictly in arrival order, so a hot key
// cannot starve early callers. Primitives are created on first use and kept
// for the life of the registry.
package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

type Registry struct {
	locks sync.Map // int64 -> *semaphore.Weighted
	size  atomic.Int64

	// OnWait, when set, observes how long each Acquire blocked.
	OnWait func(key int64, waited time.Duration)
	// OnNewKey, when set, is called once per key with the new number of
	// tracked keys, outside of any held lock.
	OnNewKey func(total int)

	// beforeBlock runs when Acquire finds the lock taken, right before it queues.
	beforeBlock func(key int64)
}

func NewRegistry() *Registry { return &Registry{} }

// Handle is a held lock. Release must be called exactly once; extra calls are ignored.
type Handle struct {
	sem  *semaphore.Weighted
	once sync.Once
}

func (h *Handle) Release() {
	h.once.Do(func() { h.sem.Release(1) })
}

func (r *Registry) get(key int64) *semaphore.Weighted {
	if v, ok := r.locks.Load(key); ok {
		return v.(*semaphore.Weighted)
	}
	v, loaded := r.locks.LoadOrStore(key, semaphore.NewWeighted(1))
	if !loaded {
		total := r.size.Add(1)
		if r.OnNewKey != nil {
			r.OnNewKey(int(total))
		}
	}
	return v.(*semaphore.Weighted)
}

// Acquire blocks until the lock for key is held by the caller.
// There is no timeout; callers queue in FIFO order.
func (r *Registry) Acquire(key int64) *Handle {
	sem := r.get(key)
	start := time.Now()
	// TryAcquire fails while others are queued, so the fast path keeps FIFO.
	if !sem.TryAcquire(1) {
		if r.beforeBlock != nil {
			r.beforeBlock(key)
		}
		// Background never cancels, so Acquire cannot fail.
		_ = sem.Acquire(context.Background(), 1)
	}
	if r.OnWait != nil {
		r.OnWait(key, time.Since(start))
	}
	return &Handle{sem: sem}
}

// Do runs fn while holding the lock for key and releases it on every exit
// path, including panics.
func (r *Registry) Do(key int64, fn func() error) error {
	h := r.Acquire(key)
	defer h.Release()
	return fn()
}

// Len reports how many distinct keys have a lock.
func (r *Registry) Len() int { return int(r.size.Load()) }
