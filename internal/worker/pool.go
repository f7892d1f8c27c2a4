package worker

import (
	"sync"

	"github.com/baharkarakas/point-ledger/internal/metrics"
)

type task func()

// Pool runs tasks on a fixed set of goroutines. Tasks submitted with the same
// key always land on the same goroutine and run in submission order.
type Pool struct {
	wg     sync.WaitGroup
	shards []chan task

	mu     sync.RWMutex
	closed bool
}

func NewPool(n, buffer int) *Pool {
	if n < 1 {
		n = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	p := &Pool{shards: make([]chan task, n)}
	for i := range p.shards {
		jobs := make(chan task, buffer)
		p.shards[i] = jobs
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range jobs {
				metrics.WorkerQueueDepth.Dec()
				job()
			}
		}()
	}
	return p
}

func (p *Pool) shard(key int64) chan task {
	return p.shards[uint64(key)%uint64(len(p.shards))]
}

// TrySubmit queues f behind earlier tasks for the same key without blocking.
// It reports false when that shard's buffer is full or the pool is stopped.
func (p *Pool) TrySubmit(key int64, f task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	metrics.WorkerQueueDepth.Inc()
	select {
	case p.shard(key) <- f:
		return true
	default:
		metrics.WorkerQueueDepth.Dec()
		return false
	}
}

// Stop drains queued tasks and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, jobs := range p.shards {
		close(jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
