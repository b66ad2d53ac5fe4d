package inference

import "fmt"

// State is the position of a session in its lifecycle. The last six values
// are terminal.
type State int

const (
	StateInit State = iota
	StateIngesting
	StateGenerating
	StateContextExhausted
	StateLoopDetected
	StateMaxTokensReached
	StateOperatorStopped
	StateEngineFailed
	StateOutputFailed
)

var stateNames = [...]string{
	StateInit:             "init",
	StateIngesting:        "ingesting",
	StateGenerating:       "generating",
	StateContextExhausted: "context_exhausted",
	StateLoopDetected:     "loop_detected",
	StateMaxTokensReached: "max_tokens_reached",
	StateOperatorStopped:  "operator_stopped",
	StateEngineFailed:     "engine_failed",
	StateOutputFailed:     "output_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name in JSON reports and API payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the session can no longer make progress.
func (s State) Terminal() bool {
	return s >= StateContextExhausted && int(s) < len(stateNames)
}

// Fatal reports whether the state is an abnormal termination.
func (s State) Fatal() bool {
	switch s {
	case StateContextExhausted, StateLoopDetected, StateEngineFailed, StateOutputFailed:
		return true
	}
	return false
}

// Exit codes returned by the CLI for each outcome.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitConfiguration    = 2
	ExitContextExhausted = 3
	ExitLoopDetected     = 4
	ExitEngineFailure    = 5
	ExitOutputFailure    = 6
)

// ExitCode maps a terminal state to a process exit status.
func (s State) ExitCode() int {
	switch s {
	case StateMaxTokensReached, StateOperatorStopped:
		return ExitOK
	case StateContextExhausted:
		return ExitContextExhausted
	case StateLoopDetected:
		return ExitLoopDetected
	case StateEngineFailed:
		return ExitEngineFailure
	case StateOutputFailed:
		return ExitOutputFailure
	default:
		return ExitFailure
	}
}

// Diagnostic is the message shown to the operator when a session ends in s.
// Normal terminations have none.
func (s State) Diagnostic() string {
	switch s {
	case StateContextExhausted:
		return "WARNING: Context window exhausted!\nThe torment nexus has consumed all available memory."
	case StateLoopDetected:
		return "FATAL: Degenerate repetition detected. The torment nexus is stuck in a loop."
	case StateEngineFailed:
		return "FATAL: The inference engine failed to produce logits."
	case StateOutputFailed:
		return "FATAL: Output stream failed."
	}
	return ""
}
