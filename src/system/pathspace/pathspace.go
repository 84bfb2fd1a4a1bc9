// Package pathspace is the public surface of the store: a hierarchical
// path-addressed space of FIFO value queues with glob addressing,
// blocking reads and stored executions.
package pathspace

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voodooEntity/pathspace/src/system/archivist"
	"github.com/voodooEntity/pathspace/src/system/capability"
	"github.com/voodooEntity/pathspace/src/system/codec"
	"github.com/voodooEntity/pathspace/src/system/core"
	"github.com/voodooEntity/pathspace/src/system/glob"
	"github.com/voodooEntity/pathspace/src/system/metrics"
	"github.com/voodooEntity/pathspace/src/system/path"
	"github.com/voodooEntity/pathspace/src/system/sweeper"
	"github.com/voodooEntity/pathspace/src/system/taskpool"
	"github.com/voodooEntity/pathspace/src/system/tree"
	"github.com/voodooEntity/pathspace/src/system/waitmap"
)

type subscription struct {
	pattern    string
	components []string
	cb         func(path string)
}

// Space is an in-process path-addressed store. All methods are safe
// for concurrent use.
type Space struct {
	tree   *tree.Tree
	wait   *waitmap.WaitMap
	pool   *taskpool.Pool
	token  *taskpool.Token
	codecs *codec.Registry
	caps   capability.Capabilities
	log    *archivist.Archivist
	met    *metrics.Metrics

	subMu sync.RWMutex
	subs  map[uuid.UUID]*subscription

	closeMu sync.Mutex
	closed  bool

	// taskCtx is handed to context-taking stored functions and
	// cancelled at shutdown
	taskCtx    context.Context
	cancelTask context.CancelFunc

	sweep *sweeper.Sweeper

	// construction knobs
	workers       int
	registerer    prometheus.Registerer
	sweepInterval time.Duration
}

// New builds a ready Space. Call Shutdown when done with it.
func New(opts ...Option) *Space {
	s := &Space{
		tree: tree.New(),
		wait: waitmap.New(),
		subs: make(map[uuid.UUID]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = archivist.Default()
	}
	if s.codecs == nil {
		s.codecs = codec.NewRegistry()
	}
	s.taskCtx, s.cancelTask = context.WithCancel(context.Background())
	s.met = metrics.New(s.registerer)
	s.token = taskpool.NewToken()
	s.pool = taskpool.NewPool(s.workers, s.token, s.log)
	if s.sweepInterval > 0 {
		s.sweep = sweeper.New(s.tree, s.sweepInterval, s.log)
		s.sweep.Start()
	}
	return s
}

func (s *Space) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// Shutdown stops the Space: no new operations are accepted, queued
// immediate tasks are discarded, running executions drain and every
// blocked reader wakes with a timeout.
func (s *Space) Shutdown() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	s.closeMu.Unlock()

	if s.sweep != nil {
		s.sweep.Stop()
	}
	s.cancelTask()
	s.token.Invalidate()
	s.pool.Shutdown()
	s.token.WaitIdle()
	s.wait.NotifyAll()
	s.wait.Clear()
	s.log.Debug(archivist.DEBUG_LEVEL_INFO, "space shut down")
}

// allowed layers a per-operation capability set over the Space's own.
func (s *Space) allowed(perm capability.Perm, override *capability.Capabilities, components []string) bool {
	if !s.caps.Allows(perm, components) {
		return false
	}
	if override != nil && !override.Allows(perm, components) {
		return false
	}
	return true
}

// capCheck is allowed with the denial turned into its error.
func (s *Space) capCheck(perm capability.Perm, override *capability.Capabilities, components []string, pathStr string) error {
	if err := s.caps.Check(perm, components, pathStr); err != nil {
		return err
	}
	if override != nil {
		return override.Check(perm, components, pathStr)
	}
	return nil
}

// notify wakes waiters and fires subscriptions for a concrete path.
func (s *Space) notify(components []string) {
	s.wait.Notify(components, glob.MatchPath)

	s.subMu.RLock()
	var fired []*subscription
	for _, sub := range s.subs {
		if glob.MatchPath(sub.components, components) || glob.MatchPath(components, sub.components) {
			fired = append(fired, sub)
		}
	}
	s.subMu.RUnlock()

	// callbacks run on the notifying goroutine and must not block
	concrete := path.Join(components)
	for _, sub := range fired {
		sub.cb(concrete)
	}
}

// Subscribe registers cb to run whenever data arrives at a path the
// pattern covers. The returned id cancels it through Unsubscribe.
func (s *Space) Subscribe(pattern string, cb func(path string), opts ...SubOption) (uuid.UUID, error) {
	if s.isClosed() {
		return uuid.Nil, core.NewError(core.UnknownError, "space is shut down")
	}
	var cfg subConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	p, err := path.Parse(pattern)
	if err != nil {
		return uuid.Nil, err
	}
	if _, ok := p.Index(); ok {
		return uuid.Nil, core.NewError(core.MalformedInput, "subscription patterns cannot carry an index")
	}
	if err := s.capCheck(capability.Read, cfg.caps, p.Components(), pattern); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	s.subMu.Lock()
	s.subs[id] = &subscription{pattern: pattern, components: p.Components(), cb: cb}
	s.subMu.Unlock()
	s.met.Subscriptions.Inc()
	return id, nil
}

// Unsubscribe cancels a subscription. Unknown ids are ignored.
func (s *Space) Unsubscribe(id uuid.UUID) {
	s.subMu.Lock()
	if _, ok := s.subs[id]; ok {
		delete(s.subs, id)
		s.met.Subscriptions.Dec()
	}
	s.subMu.Unlock()
}

// ListChildren returns the sorted child names directly under a
// concrete path.
func (s *Space) ListChildren(pathStr string) ([]string, error) {
	if s.isClosed() {
		return nil, core.NewError(core.UnknownError, "space is shut down")
	}
	p, err := path.Parse(pathStr)
	if err != nil {
		return nil, err
	}
	if p.IsGlob() {
		return nil, core.NewError(core.MalformedInput, "cannot list children of a glob path")
	}
	if err := s.capCheck(capability.Read, nil, p.Components(), pathStr); err != nil {
		return nil, err
	}
	names, ok := s.tree.Children(p.Components())
	if !ok {
		return nil, core.NewError(core.NoSuchPath, "no node at "+pathStr)
	}
	return names, nil
}

// Clear drops everything under a concrete path, the named node
// included. Pending tasks in the subtree are orphaned.
func (s *Space) Clear(pathStr string) error {
	if s.isClosed() {
		return core.NewError(core.UnknownError, "space is shut down")
	}
	p, err := path.Parse(pathStr)
	if err != nil {
		return err
	}
	if p.IsGlob() {
		return core.NewError(core.MalformedInput, "cannot clear a glob path")
	}
	if err := s.capCheck(capability.Write, nil, p.Components(), pathStr); err != nil {
		return err
	}
	if !s.tree.Clear(p.Components()) {
		return core.NewError(core.NoSuchPath, "no node at "+pathStr)
	}
	return nil
}

// Insert appends value to the queue at pathStr. A concrete path is
// created on demand; a glob path fans out over the nodes that already
// match it and partial failures are reported per node. A function
// value becomes a stored task instead of data.
func (s *Space) Insert(pathStr string, value any, opts ...InOption) core.InsertReturn {
	var ret core.InsertReturn
	if s.isClosed() {
		ret.AddError(core.NewError(core.UnknownError, "space is shut down"))
		return ret
	}

	var cfg insertConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := path.Parse(pathStr)
	if err != nil {
		ret.AddError(err)
		s.met.InsertsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return ret
	}
	if _, ok := p.Index(); ok {
		ret.AddError(core.NewError(core.MalformedInput, "cannot insert at an indexed path"))
		s.met.InsertsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return ret
	}
	if len(p.Components()) == 0 {
		ret.AddError(core.NewError(core.InvalidPath, "cannot insert at the root"))
		s.met.InsertsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return ret
	}

	fn, resultType, fnErr := s.wrapFunc(value)
	isTask := fn != nil
	if fnErr != nil {
		ret.AddError(fnErr)
		s.met.InsertsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return ret
	}

	var typeName string
	var payload []byte
	if isTask {
		typeName = resultType.String()
	} else {
		typeName, payload, err = s.codecs.Encode(value)
		if err != nil {
			ret.AddError(err)
			s.met.InsertsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return ret
		}
	}

	if p.IsGlob() {
		matches := s.tree.Glob(p.Components(), glob.Match)
		if len(matches) == 0 {
			ret.AddError(core.NewError(core.NoSuchPath, "no node matches "+pathStr))
			s.met.InsertsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return ret
		}
		for _, m := range matches {
			if cfg.maxInsertions > 0 && ret.NbrInserted() >= cfg.maxInsertions {
				ret.AddError(core.NewError(core.CapacityExceeded, "insert limit reached before "+path.Join(m.Path)))
				break
			}
			ret.Merge(s.insertOne(&cfg, m.ID, m.Path, typeName, payload, fn))
		}
	} else if err := s.capCheck(capability.Write, cfg.caps, p.Components(), pathStr); err != nil {
		// checked before Ensure so a denied insert creates nothing
		ret.AddError(err)
	} else {
		id := s.tree.Ensure(p.Components())
		ret.Merge(s.insertOne(&cfg, id, p.Components(), typeName, payload, fn))
	}

	outcome := metrics.OutcomeOK
	if ret.NbrInserted() == 0 {
		outcome = metrics.OutcomeError
	}
	s.met.InsertsTotal.WithLabelValues(outcome).Inc()
	return ret
}

// insertOne appends one slot at a resolved node and notifies. Its
// result is merged into the Insert's aggregate.
func (s *Space) insertOne(cfg *insertConfig, id tree.NodeID, components []string, typeName string, payload []byte, fn func() (any, error)) core.InsertReturn {
	var ret core.InsertReturn
	pathStr := path.Join(components)
	if err := s.capCheck(capability.Write, cfg.caps, components, pathStr); err != nil {
		ret.AddError(err)
		return ret
	}

	if fn == nil {
		if _, ok := s.tree.Append(id, typeName, payload, nil, cfg.ttl); !ok {
			ret.AddError(core.NewError(core.NoSuchPath, "node vanished at "+pathStr))
			return ret
		}
		ret.NbrValuesInserted++
		ret.Paths = append(ret.Paths, pathStr)
		s.notify(components)
		return ret
	}

	category := cfg.exec.Category
	if category == core.ExecutionUnknown {
		category = core.ExecutionImmediate
	}

	// The completion callback needs the slot location, which only
	// exists after the append. The binding channel closes once the
	// location is known, so an execution that finishes first waits
	// for it.
	bind := &taskBinding{ready: make(chan struct{}), components: components}
	task := taskpool.NewTask(fn, category, func(tk *taskpool.Task) {
		s.completeTask(bind, tk)
	})
	seq, ok := s.tree.Append(id, typeName, nil, task, cfg.ttl)
	if !ok {
		close(bind.ready)
		task.Drop()
		ret.AddError(core.NewError(core.NoSuchPath, "node vanished at "+pathStr))
		return ret
	}
	bind.id = id
	bind.seq = seq
	close(bind.ready)

	if category == core.ExecutionImmediate {
		s.pool.Enqueue(task)
	}
	ret.NbrTasksInserted++
	ret.Paths = append(ret.Paths, pathStr)
	s.notify(components)
	return ret
}

type taskBinding struct {
	ready      chan struct{}
	id         tree.NodeID
	seq        uint64
	components []string
}

// completeTask publishes a finished execution back into its slot.
func (s *Space) completeTask(bind *taskBinding, tk *taskpool.Task) {
	<-bind.ready
	result, err := tk.Result()
	if err == nil {
		var typeName string
		var payload []byte
		typeName, payload, err = s.codecs.Encode(result)
		if err == nil {
			if s.tree.Realize(bind.id, bind.seq, typeName, payload) {
				s.met.TasksExecuted.Inc()
				s.notify(bind.components)
			}
			return
		}
	}
	s.met.TaskFailures.Inc()
	s.log.Debug(archivist.DEBUG_LEVEL_INFO, "task at", path.Join(bind.components), "failed:", err)
	// the slot stays and carries the error so every reader sees it;
	// blocked readers wake immediately instead of timing out
	s.tree.FailSeq(bind.id, bind.seq, err)
	s.notify(bind.components)
}

// wrapFunc turns a function value into a task body. Supported shapes
// are func() T and func() (T, error), optionally taking a
// context.Context that is cancelled at shutdown. A nil return means
// value is not a function and should be stored as data.
func (s *Space) wrapFunc(value any) (func() (any, error), reflect.Type, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, nil, nil
	}
	t := v.Type()
	errType := reflect.TypeOf((*error)(nil)).Elem()
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()

	takesCtx := t.NumIn() == 1 && t.In(0) == ctxType
	if !takesCtx && t.NumIn() != 0 {
		return nil, nil, core.NewError(core.MalformedInput, "stored functions must be func([ctx]) T or func([ctx]) (T, error)")
	}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errType:
	case t.NumOut() == 2 && t.Out(1) == errType && t.Out(0) != errType:
	default:
		return nil, nil, core.NewError(core.MalformedInput, "stored functions must be func([ctx]) T or func([ctx]) (T, error)")
	}

	fn := func() (any, error) {
		var args []reflect.Value
		if takesCtx {
			args = []reflect.Value{reflect.ValueOf(s.taskCtx)}
		}
		out := v.Call(args)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return fn, t.Out(0), nil
}
