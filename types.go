package overseer

import (
	"fmt"
	"time"
)

// WorkerSpec describes an external worker program and how it should be restarted.
// A spec is immutable once the supervisor has started.
//
// Example:
//
//	overseer.WorkerSpec{
//	    Name:        "weather-display",
//	    Program:     "python3",
//	    Script:      "weather_display.py",
//	    MaxRestarts: 5,
//	}
type WorkerSpec struct {
	// Name is the unique identifier for this worker.
	// It's used for logging, events and status snapshots.
	Name string

	// Program is the interpreter or binary to execute. Bare names are
	// resolved through PATH.
	Program string

	// Script is the optional program path handed to Program as its first argument.
	Script string

	// Args are appended after Script.
	Args []string

	// Dir is the working directory of the process. Empty means the
	// supervisor's working directory.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string

	// MaxRestarts is the number of run attempts after which the worker is given up.
	MaxRestarts int

	// Restart determines when this worker should be restarted after exit.
	Restart RestartType

	// Timeout bounds a single run. Zero means the worker may run forever.
	Timeout time.Duration
}

// Command returns the full argument vector used to start the worker.
func (s WorkerSpec) Command() []string {
	cmd := make([]string, 0, 2+len(s.Args))
	cmd = append(cmd, s.Program)
	if s.Script != "" {
		cmd = append(cmd, s.Script)
	}
	return append(cmd, s.Args...)
}

func (s WorkerSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: worker name is empty", ErrInvalidSpec)
	}
	if s.Program == "" {
		return fmt.Errorf("%w: worker %s has no program", ErrInvalidSpec, s.Name)
	}
	if s.MaxRestarts < 1 {
		return fmt.Errorf("%w: worker %s: max restarts must be positive, got %d", ErrInvalidSpec, s.Name, s.MaxRestarts)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: worker %s: negative timeout", ErrInvalidSpec, s.Name)
	}
	return nil
}

// WorkerStatus is the lifecycle state of a supervised worker.
type WorkerStatus int

const (
	// StatusIdle is a worker that has not been started yet.
	StatusIdle WorkerStatus = iota
	// StatusRunning is a worker whose process is alive.
	StatusRunning
	// StatusBackoff is a worker waiting out its restart delay.
	StatusBackoff
	// StatusGivenUp is a worker that exhausted its restart budget.
	StatusGivenUp
	// StatusStopped is a worker that ended because of shutdown or its restart type.
	StatusStopped
)

// String returns the string representation of a WorkerStatus.
func (ws WorkerStatus) String() string {
	switch ws {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusBackoff:
		return "Backoff"
	case StatusGivenUp:
		return "GivenUp"
	case StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further run attempt can follow this state.
func (ws WorkerStatus) Terminal() bool {
	return ws == StatusGivenUp || ws == StatusStopped
}

// WorkerInfo is a point-in-time snapshot of one worker.
type WorkerInfo struct {
	Name      string
	Status    WorkerStatus
	PID       int
	Restarts  int
	StartedAt time.Time
	// LastOutcome is nil until the first run has ended.
	LastOutcome *Outcome
	// Err is set once the worker has given up.
	Err error
}
