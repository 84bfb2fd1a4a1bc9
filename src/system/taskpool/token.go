package taskpool

import "sync"

// Token counts in-flight task executions so shutdown can drain them.
// Once invalidated no new execution may register.
type Token struct {
	mu       sync.Mutex
	cond     *sync.Cond
	inFlight int
	invalid  bool
}

func NewToken() *Token {
	t := &Token{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Register claims an execution slot. It fails after Invalidate.
func (t *Token) Register() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.invalid {
		return false
	}
	t.inFlight++
	return true
}

// Unregister releases a slot claimed by Register.
func (t *Token) Unregister() {
	t.mu.Lock()
	t.inFlight--
	if t.inFlight <= 0 {
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

// Invalidate stops further registrations.
func (t *Token) Invalidate() {
	t.mu.Lock()
	t.invalid = true
	if t.inFlight <= 0 {
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

// WaitIdle blocks until no execution is in flight.
func (t *Token) WaitIdle() {
	t.mu.Lock()
	for t.inFlight > 0 {
		t.cond.Wait()
	}
	t.mu.Unlock()
}
