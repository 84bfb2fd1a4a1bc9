package pathspace

import (
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voodooEntity/pathspace/src/system/capability"
	"github.com/voodooEntity/pathspace/src/system/core"
	"github.com/voodooEntity/pathspace/src/system/glob"
	"github.com/voodooEntity/pathspace/src/system/metrics"
	"github.com/voodooEntity/pathspace/src/system/path"
	"github.com/voodooEntity/pathspace/src/system/tree"
)

// Read returns the front value at pathStr without removing it. With a
// glob path the candidates are visited in lexicographic order and the
// first deliverable value wins.
func Read[T any](s *Space, pathStr string, opts ...OutOption) (T, error) {
	v, err := retrieve[T](s, pathStr, false, opts)
	countOut(s.met.ReadsTotal, err)
	return v, err
}

// Take pops the front value at pathStr. Concurrent takers of the same
// slot resolve to a single winner; the losers move on to the next
// value or candidate.
func Take[T any](s *Space, pathStr string, opts ...OutOption) (T, error) {
	v, err := retrieve[T](s, pathStr, true, opts)
	countOut(s.met.TakesTotal, err)
	return v, err
}

// Grab is Take without blocking: Block options are ignored and a miss
// reports immediately.
func Grab[T any](s *Space, pathStr string, opts ...OutOption) (T, error) {
	opts = append(opts, func(c *outConfig) {
		c.block = false
	})
	v, err := retrieve[T](s, pathStr, true, opts)
	countOut(s.met.TakesTotal, err)
	return v, err
}

func countOut(vec *prometheus.CounterVec, err error) {
	switch {
	case err == nil:
		vec.WithLabelValues(metrics.OutcomeOK).Inc()
	case core.IsCode(err, core.Timeout):
		vec.WithLabelValues(metrics.OutcomeTimeout).Inc()
	default:
		vec.WithLabelValues(metrics.OutcomeError).Inc()
	}
}

// candidate outcome flags collected over one resolution pass
type passState struct {
	typeMismatch bool
	missing      bool
	denied       bool
}

func (ps passState) err(pathStr string) error {
	switch {
	case ps.typeMismatch:
		return core.NewError(core.InvalidType, "no value of the requested type at "+pathStr)
	case ps.missing:
		return core.NewError(core.NoObjectFound, "no value at "+pathStr)
	case ps.denied:
		return core.NewError(core.CapabilityMismatch, "operation not permitted on "+pathStr)
	default:
		return core.NewError(core.NoSuchPath, "no node at "+pathStr)
	}
}

func retryable(err error) bool {
	return core.IsCode(err, core.NoSuchPath) ||
		core.IsCode(err, core.NoObjectFound) ||
		core.IsCode(err, core.InvalidType)
}

func retrieve[T any](s *Space, pathStr string, take bool, opts []OutOption) (T, error) {
	var zero T
	if s.isClosed() {
		return zero, core.NewError(core.UnknownError, "space is shut down")
	}

	cfg := outConfig{validation: core.ValidationFull}
	for _, opt := range opts {
		opt(&cfg)
	}

	var p path.Path
	var err error
	switch cfg.validation {
	case core.ValidationNone:
		p, err = path.ParseUnchecked(pathStr)
	case core.ValidationBasic:
		p, err = path.ParseBasic(pathStr)
	default:
		p, err = path.Parse(pathStr)
	}
	if err != nil {
		return zero, err
	}
	index, hasIndex := p.Index()
	if !hasIndex {
		index = 0
	}
	if hasIndex && p.IsGlob() {
		return zero, core.NewError(core.InvalidPath, "cannot combine a glob with an index")
	}
	if take && index != 0 {
		return zero, core.NewError(core.MalformedInput, "cannot take at an index")
	}

	wantType := reflect.TypeOf((*T)(nil)).Elem().String()

	v, err := attemptOut[T](s, p, &cfg, take, index, wantType)
	if err == nil || !cfg.block || !retryable(err) {
		return v, err
	}

	deadline := cfg.deadline
	if deadline.IsZero() {
		// effectively unbounded
		deadline = time.Now().Add(time.Duration(1<<62 - 1))
	}

	guard := s.wait.Wait(pathStr, p.Components())
	defer guard.Release()
	s.met.BlockedWaiters.Inc()
	defer s.met.BlockedWaiters.Dec()

	var val T
	var lastErr error
	satisfied := guard.WaitUntil(deadline, func() bool {
		if s.isClosed() {
			lastErr = core.NewError(core.Timeout, "space shut down while blocked on "+pathStr)
			return true
		}
		got, attErr := attemptOut[T](s, p, &cfg, take, index, wantType)
		if attErr == nil {
			val, lastErr = got, nil
			return true
		}
		lastErr = attErr
		return !retryable(attErr)
	})

	if !satisfied {
		return zero, core.NewError(core.Timeout, "timed out waiting on "+pathStr)
	}
	return val, lastErr
}

// attemptOut is one non-blocking resolution pass over the candidates.
func attemptOut[T any](s *Space, p path.Path, cfg *outConfig, take bool, index int, wantType string) (T, error) {
	var zero T
	var candidates []tree.Match
	if p.IsGlob() {
		candidates = s.tree.Glob(p.Components(), glob.Match)
	} else if id, ok := s.tree.Lookup(p.Components()); ok {
		candidates = []tree.Match{{ID: id, Path: p.Components()}}
	}

	var ps passState
	for _, c := range candidates {
		if !s.allowed(capability.Read, cfg.caps, c.Path) {
			ps.denied = true
			continue
		}

		for {
			slot, ok := s.tree.Peek(c.ID, index)
			if !ok {
				ps.missing = true
				break
			}

			if slot.Err != nil {
				// a failed execution surfaces its error to every
				// reader; a take consumes the failed slot
				if take {
					s.tree.TakeSeq(c.ID, slot.Seq)
				}
				return zero, slot.Err
			}

			if slot.TypeName != wantType {
				ps.typeMismatch = true
				break
			}

			if slot.Task != nil {
				proceed, err := s.driveTask(c, slot, cfg)
				if err != nil {
					return zero, err
				}
				if proceed {
					continue
				}
				ps.missing = true
				break
			}

			if !take {
				var out T
				if err := s.codecs.Decode(slot.TypeName, slot.Payload, &out); err != nil {
					return zero, err
				}
				return out, nil
			}
			taken, won := s.tree.TakeSeq(c.ID, slot.Seq)
			if !won {
				// another consumer got there first, look again
				continue
			}
			var out T
			if err := s.codecs.Decode(taken.TypeName, taken.Payload, &out); err != nil {
				return zero, err
			}
			return out, nil
		}
	}
	return zero, ps.err(p.String())
}

// driveTask advances a pending task slot. It returns proceed=true when
// the slot should be peeked again because the result may now be in
// place, and false when the caller should treat the slot as not yet
// available.
func (s *Space) driveTask(c tree.Match, slot tree.Slot, cfg *outConfig) (bool, error) {
	task := slot.Task
	if task.RunningInCurrentGoroutine() {
		return false, core.NewError(core.UnknownError, "task at "+path.Join(c.Path)+" read its own pending result")
	}
	if task.IsDone() {
		// completion already published, re-peek sees the outcome
		return true, nil
	}

	if task.Category() == core.ExecutionLazy && !task.Started() {
		if !s.allowed(capability.Execute, cfg.caps, c.Path) {
			return false, core.NewError(core.CapabilityMismatch, "no execute capability for "+path.Join(c.Path))
		}
		if !s.token.Register() {
			return false, nil
		}
		ran := task.Run()
		s.token.Unregister()
		if ran {
			return true, nil
		}
	}

	// queued or running elsewhere; a blocked caller retries on notify
	return false, nil
}
