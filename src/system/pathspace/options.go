package pathspace

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voodooEntity/pathspace/src/system/archivist"
	"github.com/voodooEntity/pathspace/src/system/capability"
	"github.com/voodooEntity/pathspace/src/system/codec"
	"github.com/voodooEntity/pathspace/src/system/core"
)

// Option configures a Space at construction.
type Option func(*Space)

// WithWorkers sets the worker count of the immediate-task pool.
func WithWorkers(n int) Option {
	return func(s *Space) { s.workers = n }
}

// WithLogger replaces the default logger.
func WithLogger(log *archivist.Archivist) Option {
	return func(s *Space) { s.log = log }
}

// WithCapabilities restricts every operation on the Space to what the
// rules grant. Per-operation capabilities tighten this further.
func WithCapabilities(caps capability.Capabilities) Option {
	return func(s *Space) { s.caps = caps }
}

// WithCodecs replaces the default gob-backed codec registry.
func WithCodecs(r *codec.Registry) Option {
	return func(s *Space) { s.codecs = r }
}

// WithRegisterer registers the Space's collectors with reg. Without
// this option the collectors stay unregistered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Space) { s.registerer = reg }
}

// WithSweepInterval runs a background sweep over the tree every d,
// reclaiming expired slots on idle branches. Without this option
// expiry is only applied when a node is touched.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Space) { s.sweepInterval = d }
}

type insertConfig struct {
	caps          *capability.Capabilities
	ttl           time.Duration
	exec          core.ExecutionOptions
	maxInsertions int
}

// InOption configures a single Insert.
type InOption func(*insertConfig)

// WithInCapabilities checks the insert against these capabilities in
// addition to the Space's own.
func WithInCapabilities(caps capability.Capabilities) InOption {
	return func(c *insertConfig) { c.caps = &caps }
}

// WithTTL expires the inserted slots after d. Zero means no expiry.
func WithTTL(d time.Duration) InOption {
	return func(c *insertConfig) { c.ttl = d }
}

// WithMaxInsertions caps how many nodes a glob insert fans out to.
func WithMaxInsertions(n int) InOption {
	return func(c *insertConfig) { c.maxInsertions = n }
}

// WithExecution sets how an inserted function value is run.
func WithExecution(opts core.ExecutionOptions) InOption {
	return func(c *insertConfig) { c.exec = opts }
}

type subConfig struct {
	caps *capability.Capabilities
}

// SubOption configures a single Subscribe.
type SubOption func(*subConfig)

// WithSubCapabilities checks the registration against these
// capabilities in addition to the Space's own.
func WithSubCapabilities(caps capability.Capabilities) SubOption {
	return func(c *subConfig) { c.caps = &caps }
}

type outConfig struct {
	block      bool
	deadline   time.Time
	validation core.ValidationLevel
	caps       *capability.Capabilities
}

// OutOption configures a single Read, Take or Grab.
type OutOption func(*outConfig)

// Block parks the caller until a matching value arrives.
func Block() OutOption {
	return func(c *outConfig) {
		c.block = true
		c.deadline = time.Time{}
	}
}

// BlockFor parks the caller for at most d.
func BlockFor(d time.Duration) OutOption {
	return func(c *outConfig) {
		c.block = true
		c.deadline = time.Now().Add(d)
	}
}

// WithValidation selects how strictly the path string is checked.
// The default is full validation.
func WithValidation(level core.ValidationLevel) OutOption {
	return func(c *outConfig) { c.validation = level }
}

// WithOutCapabilities checks the operation against these capabilities
// in addition to the Space's own.
func WithOutCapabilities(caps capability.Capabilities) OutOption {
	return func(c *outConfig) { c.caps = &caps }
}
