package core

import "time"

// ExecutionCategory decides when a stored task runs.
type ExecutionCategory int

const (
	ExecutionUnknown ExecutionCategory = iota
	// ExecutionImmediate hands the task to the worker pool at insert time.
	ExecutionImmediate
	// ExecutionLazy defers execution to the first consumer of the slot.
	ExecutionLazy
)

func (c ExecutionCategory) String() string {
	switch c {
	case ExecutionImmediate:
		return "Immediate"
	case ExecutionLazy:
		return "Lazy"
	default:
		return "Unknown"
	}
}

// ExecutionOptions parameterize a stored task.
type ExecutionOptions struct {
	Category ExecutionCategory
	Priority int
	Interval time.Duration
}

// ValidationLevel selects how strictly a path string is checked
// before an operation runs.
type ValidationLevel int

const (
	// ValidationNone skips all syntax checks.
	ValidationNone ValidationLevel = iota
	// ValidationBasic checks the leading slash and component shape.
	ValidationBasic
	// ValidationFull additionally checks glob classes, escapes and quoting.
	ValidationFull
)
