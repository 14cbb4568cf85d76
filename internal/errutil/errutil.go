// Package errutil provides the two error-handling idioms used throughout
// the pipeline (spec §7): aggregated cleanup errors via go.uber.org/multierr,
// and panic-with-diagnostic-context for invariant violations that indicate a
// programming error rather than a recoverable condition.
package errutil

import (
	"fmt"

	"go.uber.org/multierr"
)

// Collector accumulates errors from a sequence of cleanup operations (e.g.
// closing several run files) without short-circuiting on the first failure.
type Collector struct {
	err error
}

// Add appends err to the collector, if non-nil.
func (c *Collector) Add(err error) {
	c.err = multierr.Append(c.err, err)
}

// Err returns the combined error, or nil if nothing was added.
func (c *Collector) Err() error { return c.err }

// InvariantError marks a panic raised by Invariant so main's recover can
// distinguish it from an unrelated runtime panic.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Msg }

// Invariant panics with diagnostic context if cond is false. It exists for
// conditions the pipeline's own concurrency protocol guarantees can never
// occur (a loser-tree winner slot is the MAX sentinel mid-merge); tripping
// one means the
// protocol itself is broken, not that the input was bad.
func Invariant(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
