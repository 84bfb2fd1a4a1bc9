package taskpool

import (
	"runtime"
	"sync"

	"github.com/voodooEntity/pathspace/src/system/archivist"
)

// Pool runs immediate tasks on a fixed set of worker goroutines fed
// from an unbounded FIFO queue.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Task
	closed bool
	wg     sync.WaitGroup

	token *Token
	log   *archivist.Archivist
}

// NewPool starts workers goroutines. A non-positive count defaults to
// GOMAXPROCS. Every execution registers against token first, so an
// invalidated token stops the pool from starting queued work.
func NewPool(workers int, token *Token, log *archivist.Archivist) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = archivist.Default()
	}
	p := &Pool{token: token, log: log}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	log.Debug(archivist.DEBUG_LEVEL_INFO, "task pool started with", workers, "workers")
	return p
}

// Enqueue schedules a task. Returns false when the pool has shut down;
// the task is then left unscheduled for a lazy consumer to claim.
func (p *Pool) Enqueue(t *Task) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.queue = append(p.queue, t)
	p.cond.Signal()
	p.mu.Unlock()
	return true
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if t.Dropped() {
			continue
		}
		if !p.token.Register() {
			continue
		}
		if t.Run() {
			if _, err := t.Result(); err != nil {
				p.log.Debug(archivist.DEBUG_LEVEL_INFO, "worker", id, "task failed:", err)
			}
		}
		p.token.Unregister()
	}
}

// Shutdown stops intake and waits for the workers to drain the queue.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
