package overseer

import "time"

// EventType represents the type of supervisor event.
type EventType int

const (
	// SupervisorStarted is emitted once all worker tasks have been launched.
	SupervisorStarted EventType = iota
	// WorkerStarted is emitted when a worker process has been spawned.
	WorkerStarted
	// WorkerLaunchFailed is emitted when a worker process could not be spawned.
	WorkerLaunchFailed
	// WorkerExited is emitted when a worker process ends on its own.
	WorkerExited
	// WorkerBackoff is emitted before a worker waits out its restart delay.
	WorkerBackoff
	// WorkerRestarting is emitted when the delay is over and the worker is started again.
	WorkerRestarting
	// WorkerGaveUp is emitted when a worker exhausted its restart budget.
	WorkerGaveUp
	// WorkerTerminating is emitted when a running worker is asked to exit during shutdown.
	WorkerTerminating
	// WorkerKilled is emitted when a worker outlived the grace period and is force-killed.
	WorkerKilled
	// WorkerStopped is emitted when a worker's supervision task ends without giving up.
	WorkerStopped
	// SupervisorStopping is emitted exactly once when shutdown is requested.
	SupervisorStopping
	// SupervisorStopped is emitted when every worker task has ended.
	SupervisorStopped
	// HealthChecked is emitted after each liveness pass.
	HealthChecked
	// HealthInconsistent is emitted when a worker claims to run without a process.
	HealthInconsistent
)

// String returns the string representation of an EventType.
func (et EventType) String() string {
	switch et {
	case SupervisorStarted:
		return "SupervisorStarted"
	case WorkerStarted:
		return "WorkerStarted"
	case WorkerLaunchFailed:
		return "WorkerLaunchFailed"
	case WorkerExited:
		return "WorkerExited"
	case WorkerBackoff:
		return "WorkerBackoff"
	case WorkerRestarting:
		return "WorkerRestarting"
	case WorkerGaveUp:
		return "WorkerGaveUp"
	case WorkerTerminating:
		return "WorkerTerminating"
	case WorkerKilled:
		return "WorkerKilled"
	case WorkerStopped:
		return "WorkerStopped"
	case SupervisorStopping:
		return "SupervisorStopping"
	case SupervisorStopped:
		return "SupervisorStopped"
	case HealthChecked:
		return "HealthChecked"
	case HealthInconsistent:
		return "HealthInconsistent"
	default:
		return "Unknown"
	}
}

// Event represents a supervisor lifecycle event.
// Every event is logged before it is passed to the registered handlers.
type Event struct {
	// Time is when the event occurred.
	Time time.Time
	// Type is the type of event.
	Type EventType
	// Worker is the name of the worker involved (empty for supervisor events).
	Worker string
	// RunID identifies a single run of a worker process.
	RunID string
	// Attempt is the 1-based run number of the worker.
	Attempt int
	// PID of the worker process, when one exists.
	PID int
	// Outcome is set for WorkerExited, WorkerLaunchFailed and WorkerStopped after termination.
	Outcome *Outcome
	// Delay is the restart delay for WorkerBackoff.
	Delay time.Duration
	// Reason explains SupervisorStopping and WorkerStopped.
	Reason string
	// Running counts live workers for HealthChecked.
	Running int
	// Err is any error associated with the event.
	Err error
}

// EventHandler is a function that processes supervisor events.
// Handlers are called inline from worker goroutines and should return quickly.
type EventHandler func(e Event)

// emitEvent logs the event and passes it to all registered handlers.
func (s *Supervisor) emitEvent(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	s.logEvent(e)

	for _, handler := range s.eventHandlers {
		handler(e)
	}
}
