// Package spacebuilder assembles a configured Space through a
// chainable builder, including capability rules and seed content.
package spacebuilder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voodooEntity/pathspace/src/system/archivist"
	"github.com/voodooEntity/pathspace/src/system/capability"
	"github.com/voodooEntity/pathspace/src/system/core"
	"github.com/voodooEntity/pathspace/src/system/pathspace"
)

type seed struct {
	path  string
	value any
	opts  []pathspace.InOption
}

type SpaceBuilder struct {
	workers       int
	logLevel      int
	debugLevel    int
	printer       archivist.Printer
	rules         []capability.Rule
	sweepInterval time.Duration
	registerer    prometheus.Registerer
	seeds         []seed
}

func NewSpace() *SpaceBuilder {
	return &SpaceBuilder{
		logLevel: archivist.LEVEL_WARNING,
	}
}

func (builder *SpaceBuilder) SetWorkers(workers int) *SpaceBuilder {
	builder.workers = workers
	return builder
}

func (builder *SpaceBuilder) SetLogLevel(level int) *SpaceBuilder {
	builder.logLevel = level
	return builder
}

func (builder *SpaceBuilder) SetDebugLevel(level int) *SpaceBuilder {
	builder.debugLevel = level
	return builder
}

func (builder *SpaceBuilder) SetPrinter(printer archivist.Printer) *SpaceBuilder {
	builder.printer = printer
	return builder
}

func (builder *SpaceBuilder) SetSweepInterval(interval time.Duration) *SpaceBuilder {
	builder.sweepInterval = interval
	return builder
}

func (builder *SpaceBuilder) SetRegisterer(reg prometheus.Registerer) *SpaceBuilder {
	builder.registerer = reg
	return builder
}

// AddCapability grants perms on every path the pattern covers. Adding
// any rule makes the Space restricted to the granted set.
func (builder *SpaceBuilder) AddCapability(pattern string, perms capability.Perm) *SpaceBuilder {
	builder.rules = append(builder.rules, capability.Rule{Pattern: pattern, Perms: perms})
	return builder
}

// AddValue seeds the Space with an insert executed during Build, in
// the order added. Function values become stored tasks as usual.
func (builder *SpaceBuilder) AddValue(path string, value any, opts ...pathspace.InOption) *SpaceBuilder {
	builder.seeds = append(builder.seeds, seed{path: path, value: value, opts: opts})
	return builder
}

// Build assembles the Space. Seed inserts that fail shut the Space
// down again and surface the first error.
func (builder *SpaceBuilder) Build() (*pathspace.Space, error) {
	log := archivist.New(&archivist.Config{
		Printer:    builder.printer,
		LogLevel:   builder.logLevel,
		DebugLevel: builder.debugLevel,
	})

	opts := []pathspace.Option{
		pathspace.WithWorkers(builder.workers),
		pathspace.WithLogger(log),
	}
	if len(builder.rules) > 0 {
		caps, err := capability.New(builder.rules...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pathspace.WithCapabilities(caps))
	}
	if builder.sweepInterval > 0 {
		opts = append(opts, pathspace.WithSweepInterval(builder.sweepInterval))
	}
	if builder.registerer != nil {
		opts = append(opts, pathspace.WithRegisterer(builder.registerer))
	}

	space := pathspace.New(opts...)
	for _, sd := range builder.seeds {
		ret := space.Insert(sd.path, sd.value, sd.opts...)
		if ret.NbrErrors() > 0 {
			space.Shutdown()
			return nil, core.NewError(ret.Errors[0].Code, "seeding "+sd.path+": "+ret.Errors[0].Message)
		}
	}
	return space, nil
}
