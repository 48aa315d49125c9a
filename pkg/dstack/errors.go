package dstack

import(
	"fmt"
)

// ConfigError is fatal and never retried: bad parameters, missing
// airmass, degenerate regions, a flat fit with too few points.
type ConfigError struct {
	Msg string
}

func (e *ConfigError)Error() string { return "config: " + e.Msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ResourceError means an artifact could not be opened or read. It
// aborts the current iteration; no partial frame set is ever combined.
type ResourceError struct {
	Name string
	Err  error
}

func (e *ResourceError)Error() string { return fmt.Sprintf("artifact %q: %v", e.Name, e.Err) }
func (e *ResourceError)Unwrap() error { return e.Err }

// PhaseError identifies which frame failed in which phase. A single
// failing frame fails the whole phase - silently dropping a frame
// would change the statistics of every later phase.
type PhaseError struct {
	Frame string
	Phase Phase
	Err   error
}

func (e *PhaseError)Error() string {
	return fmt.Sprintf("frame %s, phase %s: %v", e.Frame, e.Phase, e.Err)
}

func (e *PhaseError)Unwrap() error { return e.Err }
