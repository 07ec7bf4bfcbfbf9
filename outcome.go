package overseer

import (
	"fmt"
	"time"
)

// OutcomeKind classifies how a worker run ended.
type OutcomeKind int

const (
	// OutcomeSuccess is a zero exit status.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeFailure is a non-zero exit status, see Outcome.Code.
	OutcomeFailure
	// OutcomeKilled is a process ended by a signal, see Outcome.Signal.
	OutcomeKilled
	// OutcomeTimedOut is a process killed because it outlived WorkerSpec.Timeout.
	OutcomeTimedOut
	// OutcomeLaunchError is a process that could not be started at all.
	OutcomeLaunchError
)

// String returns the string representation of an OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "Success"
	case OutcomeFailure:
		return "Failure"
	case OutcomeKilled:
		return "Killed"
	case OutcomeTimedOut:
		return "TimedOut"
	case OutcomeLaunchError:
		return "LaunchError"
	default:
		return "Unknown"
	}
}

// Outcome is the termination status of one worker run.
type Outcome struct {
	Kind OutcomeKind
	// Code is the exit status for OutcomeSuccess and OutcomeFailure, -1 otherwise.
	Code int
	// Signal names the terminating signal for OutcomeKilled.
	Signal string
	// Err carries the reason for OutcomeLaunchError, and for an
	// OutcomeFailure without an exit status.
	Err error
	// Runtime is how long the process was alive.
	Runtime time.Duration
}

// Success reports whether the run exited with status zero.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "exit 0"
	case OutcomeFailure:
		if o.Err != nil {
			return "failed: " + o.Err.Error()
		}
		return fmt.Sprintf("exit %d", o.Code)
	case OutcomeKilled:
		return "killed by " + o.Signal
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeLaunchError:
		if o.Err == nil {
			return "launch error"
		}
		return "launch error: " + o.Err.Error()
	default:
		return "unknown"
	}
}

func exitOutcome(code int, runtime time.Duration) Outcome {
	if code == 0 {
		return Outcome{Kind: OutcomeSuccess, Runtime: runtime}
	}
	return Outcome{Kind: OutcomeFailure, Code: code, Runtime: runtime}
}

func launchOutcome(err error) Outcome {
	return Outcome{Kind: OutcomeLaunchError, Code: -1, Err: err}
}
