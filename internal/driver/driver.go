// Package driver defines the capability every leaf Component consumes
// from its peripheral (§4.1 "Driver contract"). The concrete adapters
// under driver/powersupply, driver/remoteshell and driver/serialline are
// external collaborators in the spec's sense: the core only ever talks
// to the Driver interface.
package driver

import "context"

// Driver is the uniform adapter a leaf Component owns. Implementations
// must make Open idempotent if the transport is already established, and
// Close must not return until any background task it owns has observed a
// stop signal and exited.
type Driver interface {
	// Open establishes the transport using the given params, a leaf
	// Component's type-specific connection config.
	Open(ctx context.Context, params map[string]interface{}) error

	// Close releases the transport. Idempotent.
	Close(ctx context.Context) error

	// ReadState returns the driver-defined state to be projected into
	// telemetry channels. Must complete within the cycle budget or be
	// skipped by the caller.
	ReadState(ctx context.Context) (map[string]interface{}, error)

	// Invoke executes a driver-level verb. The core never interprets
	// verb; the leaf Component maps inbound command options to a verb
	// and argument.
	Invoke(ctx context.Context, verb string, arg interface{}) error
}

// Severity classifies a Driver error for the cycle engine (§4.1, §7).
type Severity int

const (
	// SeverityWarning: recoverable problem. Logged; the cycle continues
	// and the triggering command is dropped.
	SeverityWarning Severity = iota
	// SeverityFatal: unexpected programming error. Propagates up and
	// aborts the current cycle's command step; never healed by the
	// cycle engine.
	SeverityFatal
)

// Error wraps a driver failure with its classification.
type Error struct {
	Severity Severity
	Err      error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Warning wraps err as a recoverable CommandWarning.
func Warning(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Severity: SeverityWarning, Err: err}
}

// Fatal wraps err as a CommandError that aborts the current cycle step.
func Fatal(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Severity: SeverityFatal, Err: err}
}

// IsFatal reports whether err (possibly wrapped) is a fatal Driver error.
// A plain, non-*Error err (a programming fault that never went through
// Warning/Fatal) is treated as fatal too, matching §7: anything that
// isn't an explicit CommandWarning unwinds to the cycle engine.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var de *Error
	if ok := asDriverError(err, &de); ok {
		return de.Severity == SeverityFatal
	}
	return true
}

func asDriverError(err error, target **Error) bool {
	for err != nil {
		if de, ok := err.(*Error); ok {
			*target = de
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
