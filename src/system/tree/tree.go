// Package tree holds the hierarchical store: a node arena addressed by
// stable handles, one FIFO slot queue per node.
//
// Locking is two-level. The tree mutex guards structure, meaning the
// arena and every children map; each node's own mutex guards its slot
// queue. Structure walks take the tree lock shared, structural edits
// take it exclusive, and queue operations touch only the node lock, so
// reads and takes on different nodes do not contend.
package tree

import (
	"sort"
	"sync"
	"time"

	"github.com/voodooEntity/pathspace/src/system/taskpool"
)

// NodeID is a stable handle into the arena. Handles are never reused,
// so one held across a prune simply misses instead of aliasing a newer
// node.
type NodeID int

const rootID NodeID = 0

// Slot is one queued value or pending task.
type Slot struct {
	Seq      uint64
	TypeName string
	Payload  []byte
	Task     *taskpool.Task
	// Err marks a task slot whose execution failed; readers get the
	// error instead of a value
	Err error
	// zero ExpiresAt means the slot never expires
	ExpiresAt time.Time
}

func (s Slot) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type node struct {
	mu       sync.Mutex
	name     string
	parent   NodeID
	children map[string]NodeID
	slots    []Slot
	nextSeq  uint64
	dead     bool
}

// Tree is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes []*node
	clock func() time.Time
}

// Option configures a Tree.
type Option func(*Tree)

// WithClock substitutes the expiry clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tree) { t.clock = clock }
}

func New(opts ...Option) *Tree {
	t := &Tree{clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.nodes = []*node{{parent: -1, children: make(map[string]NodeID)}}
	return t
}

// alloc requires t.mu held exclusively.
func (t *Tree) alloc(name string, parent NodeID) NodeID {
	t.nodes = append(t.nodes, &node{name: name, parent: parent, children: make(map[string]NodeID)})
	return NodeID(len(t.nodes) - 1)
}

// Ensure walks components from the root, creating missing nodes, and
// returns the handle of the final one.
func (t *Tree) Ensure(components []string) NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := rootID
	for _, name := range components {
		n := t.nodes[id]
		child, ok := n.children[name]
		if !ok {
			child = t.alloc(name, id)
			n.children[name] = child
		}
		id = child
	}
	return id
}

// Lookup resolves a concrete component chain without creating anything.
func (t *Tree) Lookup(components []string) (NodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id := rootID
	for _, name := range components {
		child, ok := t.nodes[id].children[name]
		if !ok {
			return 0, false
		}
		id = child
	}
	return id, true
}

// Match is one node a glob resolved to.
type Match struct {
	ID   NodeID
	Path []string
}

// Glob fans a pattern out over the existing structure and returns the
// matching nodes in lexicographic path order. match is the
// component-wise matcher, returning matched and supermatch.
func (t *Tree) Glob(pattern []string, match func(pattern, name string) (bool, bool)) []Match {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Match
	t.globWalk(rootID, nil, pattern, match, &out)
	sort.Slice(out, func(i, j int) bool {
		return lessPath(out[i].Path, out[j].Path)
	})
	// several supermatch splits can reach the same node
	dedup := out[:0]
	for i, m := range out {
		if i == 0 || m.ID != out[i-1].ID {
			dedup = append(dedup, m)
		}
	}
	return dedup
}

func lessPath(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// globWalk requires t.mu held shared.
func (t *Tree) globWalk(id NodeID, prefix []string, pattern []string, match func(pattern, name string) (bool, bool), out *[]Match) {
	if len(pattern) == 0 {
		*out = append(*out, Match{ID: id, Path: append([]string(nil), prefix...)})
		return
	}
	n := t.nodes[id]
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		child := n.children[name]
		matched, super := match(pattern[0], name)
		if !matched {
			continue
		}
		next := make([]string, len(prefix)+1)
		copy(next, prefix)
		next[len(prefix)] = name
		t.globWalk(child, next, pattern[1:], match, out)
		if super {
			// the supermatch component may swallow this one and keep going
			t.globWalk(child, next, pattern, match, out)
		}
	}
}

// Children lists the child names under a concrete path, sorted.
func (t *Tree) Children(components []string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id := rootID
	for _, name := range components {
		child, ok := t.nodes[id].children[name]
		if !ok {
			return nil, false
		}
		id = child
	}
	names := make([]string, 0, len(t.nodes[id].children))
	for name := range t.nodes[id].children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, true
}

// Append pushes a slot onto the node's queue and returns its sequence
// number. ttl of zero means no expiry.
func (t *Tree) Append(id NodeID, typeName string, payload []byte, task *taskpool.Task, ttl time.Duration) (uint64, bool) {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return 0, false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dead {
		return 0, false
	}
	n.nextSeq++
	s := Slot{Seq: n.nextSeq, TypeName: typeName, Payload: payload, Task: task}
	if ttl > 0 {
		s.ExpiresAt = t.clock().Add(ttl)
	}
	n.slots = append(n.slots, s)
	return s.Seq, true
}

// purgeExpired requires n.mu held. Dropped tasks of purged slots are
// orphaned.
func (t *Tree) purgeExpired(n *node) {
	now := t.clock()
	kept := n.slots[:0]
	for _, s := range n.slots {
		if s.expired(now) {
			if s.Task != nil {
				s.Task.Drop()
			}
			continue
		}
		kept = append(kept, s)
	}
	n.slots = kept
}

// Peek returns the slot at the given queue position without removing
// it. Position 0 is the front. Expired slots are reclaimed first.
func (t *Tree) Peek(id NodeID, index int) (Slot, bool) {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return Slot{}, false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dead {
		return Slot{}, false
	}
	t.purgeExpired(n)
	if index < 0 || index >= len(n.slots) {
		return Slot{}, false
	}
	return n.slots[index], true
}

// TakeSeq pops the front slot only if it still carries the given
// sequence number. A false return means another consumer won the race
// or the slot expired; the caller re-reads and retries.
func (t *Tree) TakeSeq(id NodeID, seq uint64) (Slot, bool) {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return Slot{}, false
	}

	n.mu.Lock()
	if n.dead {
		n.mu.Unlock()
		return Slot{}, false
	}
	t.purgeExpired(n)
	if len(n.slots) == 0 || n.slots[0].Seq != seq {
		n.mu.Unlock()
		return Slot{}, false
	}
	s := n.slots[0]
	n.slots = n.slots[1:]
	drained := len(n.slots) == 0
	n.mu.Unlock()

	if drained {
		t.prune(id)
	}
	return s, true
}

// Realize replaces a pending task slot with the value it produced. The
// slot keeps its queue position and sequence number. Returns false when
// the slot was taken or expired in the meantime.
func (t *Tree) Realize(id NodeID, seq uint64, typeName string, payload []byte) bool {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dead {
		return false
	}
	for i := range n.slots {
		if n.slots[i].Seq == seq {
			n.slots[i].TypeName = typeName
			n.slots[i].Payload = payload
			n.slots[i].Task = nil
			return true
		}
	}
	return false
}

// FailSeq marks a pending task slot as failed. The slot keeps its
// queue position; readers observe err instead of a value. Returns
// false when the slot was taken or expired in the meantime.
func (t *Tree) FailSeq(id NodeID, seq uint64, err error) bool {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dead {
		return false
	}
	for i := range n.slots {
		if n.slots[i].Seq == seq {
			n.slots[i].Task = nil
			n.slots[i].Err = err
			return true
		}
	}
	return false
}

// RemoveSeq drops the slot with the given sequence number wherever it
// sits in the queue. Used to discard a task slot whose execution
// failed.
func (t *Tree) RemoveSeq(id NodeID, seq uint64) bool {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return false
	}

	n.mu.Lock()
	removed := false
	if !n.dead {
		for i := range n.slots {
			if n.slots[i].Seq == seq {
				if n.slots[i].Task != nil {
					n.slots[i].Task.Drop()
				}
				n.slots = append(n.slots[:i], n.slots[i+1:]...)
				removed = true
				break
			}
		}
	}
	drained := removed && len(n.slots) == 0
	n.mu.Unlock()

	if drained {
		t.prune(id)
	}
	return removed
}

// QueueLen reports the number of live slots queued at the node.
func (t *Tree) QueueLen(id NodeID) int {
	t.mu.RLock()
	n := t.nodes[id]
	t.mu.RUnlock()
	if n == nil {
		return 0
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dead {
		return 0
	}
	t.purgeExpired(n)
	return len(n.slots)
}

// Sweep reclaims expired slots across the whole tree and prunes the
// branches that drained. Returns the number of slots reclaimed.
func (t *Tree) Sweep() int {
	reclaimed := 0
	var drained []NodeID

	t.mu.RLock()
	for id := 1; id < len(t.nodes); id++ {
		n := t.nodes[id]
		if n == nil {
			continue
		}
		n.mu.Lock()
		if !n.dead {
			before := len(n.slots)
			t.purgeExpired(n)
			if removed := before - len(n.slots); removed > 0 {
				reclaimed += removed
				if len(n.slots) == 0 {
					drained = append(drained, NodeID(id))
				}
			}
		}
		n.mu.Unlock()
	}
	t.mu.RUnlock()

	for _, id := range drained {
		t.prune(id)
	}
	return reclaimed
}

// prune removes the node if it is still empty, then walks up releasing
// any parents that emptied out with it. The root always stays.
func (t *Tree) prune(id NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id != rootID {
		n := t.nodes[id]
		if n == nil || n.dead {
			return
		}
		n.mu.Lock()
		removable := len(n.slots) == 0 && len(n.children) == 0
		if removable {
			n.dead = true
		}
		n.mu.Unlock()
		if !removable {
			return
		}
		parent := n.parent
		delete(t.nodes[parent].children, n.name)
		t.nodes[id] = nil
		id = parent
	}
}

// Clear drops the whole subtree under a concrete path, including the
// named node itself. Pending tasks in dropped slots are orphaned.
func (t *Tree) Clear(components []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(components) == 0 {
		root := t.nodes[rootID]
		root.mu.Lock()
		for _, s := range root.slots {
			if s.Task != nil {
				s.Task.Drop()
			}
		}
		root.slots = nil
		root.mu.Unlock()
		for _, child := range root.children {
			t.clearSubtree(child)
		}
		root.children = make(map[string]NodeID)
		return true
	}

	id := rootID
	for _, name := range components {
		child, ok := t.nodes[id].children[name]
		if !ok {
			return false
		}
		id = child
	}
	parent := t.nodes[id].parent
	delete(t.nodes[parent].children, t.nodes[id].name)
	t.clearSubtree(id)
	return true
}

// clearSubtree requires t.mu held exclusively.
func (t *Tree) clearSubtree(id NodeID) {
	n := t.nodes[id]
	n.mu.Lock()
	n.dead = true
	for _, s := range n.slots {
		if s.Task != nil {
			s.Task.Drop()
		}
	}
	n.slots = nil
	children := n.children
	n.children = nil
	n.mu.Unlock()

	for _, child := range children {
		t.clearSubtree(child)
	}
	t.nodes[id] = nil
}
