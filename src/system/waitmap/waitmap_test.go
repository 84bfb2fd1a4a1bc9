package waitmap

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/voodooEntity/pathspace/src/system/glob"
)

func TestWaitUntilImmediatePredicate(t *testing.T) {
	w := New()
	g := w.Wait("/a/b", []string{"a", "b"})
	defer g.Release()

	ok := g.WaitUntil(time.Now().Add(time.Second), func() bool { return true })
	assert.True(t, ok)
}

func TestWaitUntilTimeout(t *testing.T) {
	w := New()
	g := w.Wait("/a/b", []string{"a", "b"})
	defer g.Release()

	start := time.Now()
	ok := g.WaitUntil(time.Now().Add(50*time.Millisecond), func() bool { return false })
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestNotifyWakesMatchingWaiter(t *testing.T) {
	w := New()
	var ready atomic.Bool

	var eg errgroup.Group
	eg.Go(func() error {
		g := w.Wait("/a/b", []string{"a", "b"})
		defer g.Release()
		ok := g.WaitUntil(time.Now().Add(2*time.Second), ready.Load)
		assert.True(t, ok)
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	ready.Store(true)
	w.Notify([]string{"a", "b"}, glob.MatchPath)
	assert.NoError(t, eg.Wait())
}

func TestNotifyCrossGlob(t *testing.T) {
	cases := []struct {
		name       string
		registered []string
		notified   []string
	}{
		{"glob waiter concrete notify", []string{"a", "*"}, []string{"a", "b"}},
		{"concrete waiter glob notify", []string{"a", "b"}, []string{"a", "*"}},
		{"supermatch waiter", []string{"**"}, []string{"deep", "nested", "path"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := New()
			var ready atomic.Bool

			done := make(chan bool, 1)
			go func() {
				g := w.Wait("x", tc.registered)
				defer g.Release()
				done <- g.WaitUntil(time.Now().Add(2*time.Second), ready.Load)
			}()

			time.Sleep(20 * time.Millisecond)
			ready.Store(true)
			w.Notify(tc.notified, glob.MatchPath)
			assert.True(t, <-done)
		})
	}
}

func TestNotifyUnrelatedPathDoesNotWake(t *testing.T) {
	w := New()
	g := w.Wait("/a/b", []string{"a", "b"})
	defer g.Release()

	// an unrelated notification mid-wait must not satisfy the waiter
	go func() {
		time.Sleep(20 * time.Millisecond)
		w.Notify([]string{"other"}, glob.MatchPath)
	}()

	var polls atomic.Int32
	ok := g.WaitUntil(time.Now().Add(80*time.Millisecond), func() bool {
		polls.Add(1)
		return false
	})
	assert.False(t, ok)
	// pred ran at registration and at the deadline, not for /other
	assert.LessOrEqual(t, polls.Load(), int32(2))
}

func TestNotifyAll(t *testing.T) {
	w := New()
	var eg errgroup.Group
	var ready atomic.Bool

	for _, p := range []string{"/a", "/b", "/c/*"} {
		p := p
		comps := []string{p[1:]}
		eg.Go(func() error {
			g := w.Wait(p, comps)
			defer g.Release()
			assert.True(t, g.WaitUntil(time.Now().Add(2*time.Second), ready.Load))
			return nil
		})
	}

	time.Sleep(20 * time.Millisecond)
	ready.Store(true)
	w.NotifyAll()
	assert.NoError(t, eg.Wait())
}

func TestReleaseDropsEntry(t *testing.T) {
	w := New()
	g1 := w.Wait("/a", []string{"a"})
	g2 := w.Wait("/a", []string{"a"})

	g1.Release()
	w.mu.Lock()
	_, present := w.entries["/a"]
	w.mu.Unlock()
	assert.True(t, present)

	g2.Release()
	w.mu.Lock()
	_, present = w.entries["/a"]
	w.mu.Unlock()
	assert.False(t, present)
}
