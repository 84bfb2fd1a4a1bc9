package tree

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voodooEntity/pathspace/src/system/glob"
	"github.com/voodooEntity/pathspace/src/system/taskpool"

	"github.com/voodooEntity/pathspace/src/system/core"
)

func TestEnsureAndLookup(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"a", "b", "c"})

	got, ok := tr.Lookup([]string{"a", "b", "c"})
	require.True(t, ok)
	assert.Equal(t, id, got)

	again := tr.Ensure([]string{"a", "b", "c"})
	assert.Equal(t, id, again)

	_, ok = tr.Lookup([]string{"a", "x"})
	assert.False(t, ok)
}

func TestQueueFIFO(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"q"})

	seq1, ok := tr.Append(id, "int", []byte{1}, nil, 0)
	require.True(t, ok)
	seq2, ok := tr.Append(id, "int", []byte{2}, nil, 0)
	require.True(t, ok)
	assert.Less(t, seq1, seq2)

	front, ok := tr.Peek(id, 0)
	require.True(t, ok)
	assert.Equal(t, seq1, front.Seq)

	second, ok := tr.Peek(id, 1)
	require.True(t, ok)
	assert.Equal(t, seq2, second.Seq)

	s, ok := tr.TakeSeq(id, seq1)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, s.Payload)

	front, ok = tr.Peek(id, 0)
	require.True(t, ok)
	assert.Equal(t, seq2, front.Seq)
}

func TestTakeSeqSingleWinner(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"q"})
	seq, ok := tr.Append(id, "int", []byte{1}, nil, 0)
	require.True(t, ok)

	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := tr.TakeSeq(id, seq); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestTakeSeqMismatchedFront(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"q"})
	seq1, _ := tr.Append(id, "int", []byte{1}, nil, 0)
	seq2, _ := tr.Append(id, "int", []byte{2}, nil, 0)

	_, ok := tr.TakeSeq(id, seq2)
	assert.False(t, ok)

	_, ok = tr.TakeSeq(id, seq1)
	assert.True(t, ok)
}

func TestGlobFanOut(t *testing.T) {
	tr := New()
	tr.Ensure([]string{"sensors", "temp"})
	tr.Ensure([]string{"sensors", "humidity"})
	tr.Ensure([]string{"other", "temp"})

	matches := tr.Glob([]string{"sensors", "*"}, glob.Match)
	require.Len(t, matches, 2)
	// lexicographic order
	assert.Equal(t, []string{"sensors", "humidity"}, matches[0].Path)
	assert.Equal(t, []string{"sensors", "temp"}, matches[1].Path)
}

func TestGlobSupermatch(t *testing.T) {
	tr := New()
	tr.Ensure([]string{"a", "b", "leaf"})
	tr.Ensure([]string{"a", "leaf"})
	tr.Ensure([]string{"a", "b", "other"})

	matches := tr.Glob([]string{"**", "leaf"}, glob.Match)
	require.Len(t, matches, 2)
	assert.Equal(t, []string{"a", "b", "leaf"}, matches[0].Path)
	assert.Equal(t, []string{"a", "leaf"}, matches[1].Path)
}

func TestChildren(t *testing.T) {
	tr := New()
	tr.Ensure([]string{"a", "z"})
	tr.Ensure([]string{"a", "b"})

	names, ok := tr.Children([]string{"a"})
	require.True(t, ok)
	assert.Equal(t, []string{"b", "z"}, names)

	_, ok = tr.Children([]string{"missing"})
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	tr := New(WithClock(clock))
	id := tr.Ensure([]string{"cache"})

	tr.Append(id, "int", []byte{1}, nil, 100*time.Millisecond)
	tr.Append(id, "int", []byte{2}, nil, 0)

	assert.Equal(t, 2, tr.QueueLen(id))

	mu.Lock()
	now = now.Add(150 * time.Millisecond)
	mu.Unlock()

	front, ok := tr.Peek(id, 0)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, front.Payload)
	assert.Equal(t, 1, tr.QueueLen(id))
}

func TestExpiredTaskSlotIsDropped(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	tr := New(WithClock(clock))
	id := tr.Ensure([]string{"jobs"})

	task := taskpool.NewTask(func() (any, error) { return nil, nil }, core.ExecutionLazy, nil)
	tr.Append(id, "", nil, task, time.Millisecond)

	mu.Lock()
	now = now.Add(time.Second)
	mu.Unlock()

	_, ok := tr.Peek(id, 0)
	assert.False(t, ok)
	assert.True(t, task.Dropped())
}

func TestPruneRemovesDrainedBranch(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"a", "b", "c"})
	seq, _ := tr.Append(id, "int", []byte{1}, nil, 0)

	_, ok := tr.TakeSeq(id, seq)
	require.True(t, ok)

	_, ok = tr.Lookup([]string{"a", "b", "c"})
	assert.False(t, ok)
	_, ok = tr.Lookup([]string{"a"})
	assert.False(t, ok)
}

func TestPruneStopsAtOccupiedAncestor(t *testing.T) {
	tr := New()
	parent := tr.Ensure([]string{"a"})
	tr.Append(parent, "int", []byte{9}, nil, 0)

	child := tr.Ensure([]string{"a", "b"})
	seq, _ := tr.Append(child, "int", []byte{1}, nil, 0)
	tr.TakeSeq(child, seq)

	_, ok := tr.Lookup([]string{"a", "b"})
	assert.False(t, ok)
	_, ok = tr.Lookup([]string{"a"})
	assert.True(t, ok)
}

func TestRealize(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"jobs"})
	task := taskpool.NewTask(func() (any, error) { return 7, nil }, core.ExecutionLazy, nil)
	seq, _ := tr.Append(id, "", nil, task, 0)

	assert.True(t, tr.Realize(id, seq, "int", []byte{7}))

	front, ok := tr.Peek(id, 0)
	require.True(t, ok)
	assert.Equal(t, seq, front.Seq)
	assert.Equal(t, "int", front.TypeName)
	assert.Nil(t, front.Task)

	assert.False(t, tr.Realize(id, 999, "int", nil))
}

func TestFailSeq(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"jobs"})
	task := taskpool.NewTask(func() (any, error) { return nil, nil }, core.ExecutionLazy, nil)
	seq, _ := tr.Append(id, "int", nil, task, 0)

	failure := core.NewError(core.UnknownError, "exploded")
	assert.True(t, tr.FailSeq(id, seq, failure))

	front, ok := tr.Peek(id, 0)
	require.True(t, ok)
	assert.Nil(t, front.Task)
	assert.Equal(t, failure, front.Err)

	assert.False(t, tr.FailSeq(id, 999, failure))
}

func TestRemoveSeq(t *testing.T) {
	tr := New()
	id := tr.Ensure([]string{"jobs"})
	seq1, _ := tr.Append(id, "int", []byte{1}, nil, 0)
	seq2, _ := tr.Append(id, "int", []byte{2}, nil, 0)

	assert.True(t, tr.RemoveSeq(id, seq1))
	assert.False(t, tr.RemoveSeq(id, seq1))

	front, ok := tr.Peek(id, 0)
	require.True(t, ok)
	assert.Equal(t, seq2, front.Seq)
}

func TestClearSubtree(t *testing.T) {
	tr := New()
	tr.Ensure([]string{"a", "b"})
	id := tr.Ensure([]string{"a", "c"})
	task := taskpool.NewTask(func() (any, error) { return nil, nil }, core.ExecutionLazy, nil)
	tr.Append(id, "", nil, task, 0)

	assert.True(t, tr.Clear([]string{"a"}))
	assert.True(t, task.Dropped())

	_, ok := tr.Lookup([]string{"a"})
	assert.False(t, ok)
	assert.False(t, tr.Clear([]string{"a"}))
}

func TestClearRoot(t *testing.T) {
	tr := New()
	tr.Ensure([]string{"x", "y"})
	rootSeq, _ := tr.Append(rootID, "int", []byte{1}, nil, 0)
	_ = rootSeq

	assert.True(t, tr.Clear(nil))
	_, ok := tr.Lookup([]string{"x"})
	assert.False(t, ok)
	assert.Equal(t, 0, tr.QueueLen(rootID))
}
