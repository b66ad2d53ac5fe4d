package inference

import (
	"errors"
	"fmt"
)

var (
	ErrContextExhausted = errors.New("context window exhausted")
	ErrLoopDetected     = errors.New("degenerate loop detected")
	ErrEngineFailure    = errors.New("inference engine failure")
	ErrOutputFailure    = errors.New("output failure")
	ErrConfiguration    = errors.New("invalid configuration")
)

// FatalError reports an abnormal terminal state together with the number of
// positions in use when it was reached.
type FatalError struct {
	State     State
	Positions int
	Err       error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at position %d", e.State, e.Positions)
	}
	return fmt.Sprintf("%s at position %d: %v", e.State, e.Positions, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ConfigError is returned by NewSession and SessionConfig.Validate. Nothing
// has been sent to the engine when it is returned.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StateOf extracts the terminal state carried by err, if any.
func StateOf(err error) (State, bool) {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.State, true
	}
	return 0, false
}
