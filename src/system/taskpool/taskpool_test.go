package taskpool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/voodooEntity/pathspace/src/system/core"
)

func TestTaskRunsAtMostOnce(t *testing.T) {
	var calls atomic.Int32
	task := NewTask(func() (any, error) {
		calls.Add(1)
		return 42, nil
	}, core.ExecutionLazy, nil)

	var winners atomic.Int32
	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error {
			if task.Run() {
				winners.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), winners.Load())

	<-task.Done()
	result, err := task.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestTaskPanicBecomesError(t *testing.T) {
	task := NewTask(func() (any, error) {
		panic("boom")
	}, core.ExecutionImmediate, nil)

	assert.True(t, task.Run())
	_, err := task.Result()
	assert.True(t, core.IsCode(err, core.UnknownError))
	assert.Contains(t, err.Error(), "boom")
}

func TestTaskOnDone(t *testing.T) {
	var published atomic.Bool
	task := NewTask(func() (any, error) { return "x", nil }, core.ExecutionImmediate, func(tk *Task) {
		r, err := tk.Result()
		assert.NoError(t, err)
		assert.Equal(t, "x", r)
		published.Store(true)
	})

	task.Run()
	assert.True(t, published.Load())
}

func TestDroppedTaskSkipsOnDone(t *testing.T) {
	task := NewTask(func() (any, error) { return "x", nil }, core.ExecutionImmediate, func(tk *Task) {
		t.Fatal("dropped task must not publish")
	})
	task.Drop()
	task.Run()
	assert.True(t, task.IsDone())
}

func TestReentrancyDetection(t *testing.T) {
	var task *Task
	task = NewTask(func() (any, error) {
		assert.True(t, task.RunningInCurrentGoroutine())
		done := make(chan bool, 1)
		go func() { done <- task.RunningInCurrentGoroutine() }()
		assert.False(t, <-done)
		return nil, nil
	}, core.ExecutionLazy, nil)

	task.Run()
	assert.False(t, task.RunningInCurrentGoroutine())
}

func TestPoolExecutesQueuedTasks(t *testing.T) {
	token := NewToken()
	pool := NewPool(4, token, nil)
	defer pool.Shutdown()

	var calls atomic.Int32
	tasks := make([]*Task, 16)
	for i := range tasks {
		tasks[i] = NewTask(func() (any, error) {
			calls.Add(1)
			return nil, nil
		}, core.ExecutionImmediate, nil)
		require.True(t, pool.Enqueue(tasks[i]))
	}

	for _, task := range tasks {
		<-task.Done()
	}
	assert.Equal(t, int32(16), calls.Load())
}

func TestPoolShutdownDrains(t *testing.T) {
	token := NewToken()
	pool := NewPool(2, token, nil)

	var calls atomic.Int32
	for i := 0; i < 8; i++ {
		pool.Enqueue(NewTask(func() (any, error) {
			time.Sleep(5 * time.Millisecond)
			calls.Add(1)
			return nil, nil
		}, core.ExecutionImmediate, nil))
	}

	pool.Shutdown()
	assert.Equal(t, int32(8), calls.Load())
	assert.False(t, pool.Enqueue(NewTask(func() (any, error) { return nil, nil }, core.ExecutionImmediate, nil)))
}

func TestInvalidatedTokenBlocksQueuedWork(t *testing.T) {
	token := NewToken()
	token.Invalidate()
	pool := NewPool(2, token, nil)

	task := NewTask(func() (any, error) {
		t.Error("must not run after invalidation")
		return nil, nil
	}, core.ExecutionImmediate, nil)
	pool.Enqueue(task)
	pool.Shutdown()
	assert.False(t, task.Started())
}

func TestTokenWaitIdle(t *testing.T) {
	token := NewToken()
	require.True(t, token.Register())

	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		close(released)
		token.Unregister()
	}()

	token.WaitIdle()
	select {
	case <-released:
	default:
		t.Fatal("WaitIdle returned before the in-flight execution finished")
	}
}
