// Package sweeper runs the background reclamation loop. Expired slots
// are otherwise only collected when their node is touched; the sweeper
// walks the whole tree on an interval so idle branches free up too.
package sweeper

import (
	"time"

	"github.com/voodooEntity/pathspace/src/system/archivist"
	"github.com/voodooEntity/pathspace/src/system/tree"
)

type Sweeper struct {
	tree         *tree.Tree
	interval     time.Duration
	log          *archivist.Archivist
	tickFunction func(reclaimed int, log *archivist.Archivist)
	stop         chan struct{}
	done         chan struct{}
}

func New(t *tree.Tree, interval time.Duration, logger *archivist.Archivist) *Sweeper {
	logger.Debug(archivist.DEBUG_LEVEL_INFO, "creating sweeper with interval", interval)
	return &Sweeper{
		tree:     t,
		interval: interval,
		log:      logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RegisterTickFunction installs a hook that runs after every sweep
// with the number of reclaimed slots.
func (s *Sweeper) RegisterTickFunction(tickFn func(reclaimed int, log *archivist.Archivist)) {
	s.tickFunction = tickFn
}

// Start launches the loop. It runs until Stop is called.
func (s *Sweeper) Start() {
	go s.loop()
}

func (s *Sweeper) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			s.log.Debug(archivist.DEBUG_LEVEL_INFO, "sweeper exiting")
			return
		case <-ticker.C:
			reclaimed := s.tree.Sweep()
			s.log.Debug(archivist.DEBUG_LEVEL_MAX, "sweeper looping: reclaimed", reclaimed, "slots")
			if nil != s.tickFunction {
				s.tickFunction(reclaimed, s.log)
			}
		}
	}
}

// Stop ends the loop and waits for it to exit. Safe to call once.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
