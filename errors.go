package overseer

import (
	"errors"
	"strings"
)

var (
	// ErrSupervisorStopped is returned when operations are attempted on a stopped supervisor.
	ErrSupervisorStopped = errors.New("supervisor is stopped")

	// ErrAlreadyStarted is returned by Start when it is called more than once.
	ErrAlreadyStarted = errors.New("supervisor already started")

	// ErrNoWorkers is returned by Start when no worker has been registered.
	ErrNoWorkers = errors.New("no workers configured")

	// ErrWorkerNotFound is returned when a worker with the given name doesn't exist.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrDuplicateWorker is returned when two workers share a name.
	ErrDuplicateWorker = errors.New("worker already exists")

	// ErrInvalidSpec is returned for a WorkerSpec that cannot be supervised.
	ErrInvalidSpec = errors.New("invalid worker spec")

	// ErrLaunch wraps failures to start a worker process.
	ErrLaunch = errors.New("worker launch failed")

	// ErrRestartsExhausted is recorded on a worker that used its whole restart budget.
	ErrRestartsExhausted = errors.New("restarts exhausted")
)

// WorkerError wraps an error with the name of the worker it belongs to.
type WorkerError struct {
	Worker string
	Err    error
}

func (e *WorkerError) Error() string {
	return "worker " + e.Worker + ": " + e.Err.Error()
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// MissingCommandsError is returned by the startup check when worker programs
// or scripts are absent or not accessible.
type MissingCommandsError struct {
	// Missing maps each offending worker to the path that failed.
	Missing []MissingCommand
}

// MissingCommand is one failed preflight check.
type MissingCommand struct {
	Worker string
	Path   string
	Err    error
}

func (e *MissingCommandsError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, m.Worker+" ("+m.Path+": "+m.Err.Error()+")")
	}
	return "missing worker commands: " + strings.Join(parts, ", ")
}

// Paths returns the missing paths in check order.
func (e *MissingCommandsError) Paths() []string {
	paths := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		paths = append(paths, m.Path)
	}
	return paths
}
