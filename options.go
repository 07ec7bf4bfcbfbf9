package overseer

import (
	"context"
	"log/slog"
	"time"
)

// Option configures a Supervisor during creation.
type Option func(*Supervisor)

// WithName sets the supervisor's name for logging.
func WithName(name string) Option {
	return func(s *Supervisor) {
		s.name = name
	}
}

// WithLogger sets the structured logger used for every event.
// The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackoff sets the restart delay policy. The default is DefaultBackoff().
//
// Example:
//
//	sup := overseer.New(
//	    overseer.WithBackoff(overseer.JitterBackoff(overseer.DefaultBackoff(), 0.1)),
//	)
func WithBackoff(policy BackoffPolicy) Option {
	return func(s *Supervisor) {
		if policy != nil {
			s.backoff = policy
		}
	}
}

// WithGracePeriod sets how long a worker may take to exit after SIGTERM
// before it is killed. The default is 5 seconds. If d <= 0, the default is used.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		if d <= 0 {
			d = defaultGracePeriod
		}
		s.gracePeriod = d
	}
}

// WithHealthInterval sets the liveness monitor interval. The default is
// 10 seconds. If d <= 0, the default is used.
func WithHealthInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d <= 0 {
			d = defaultHealthInterval
		}
		s.healthInterval = d
	}
}

// WithEventHandler adds an event handler to receive supervisor events.
// Multiple handlers can be registered by calling this option multiple times.
//
// Example:
//
//	sup := overseer.New(
//	    overseer.WithEventHandler(func(e overseer.Event) {
//	        if e.Type == overseer.WorkerGaveUp {
//	            alert(e.Worker)
//	        }
//	    }),
//	)
func WithEventHandler(handler EventHandler) Option {
	return func(s *Supervisor) {
		s.eventHandlers = append(s.eventHandlers, handler)
	}
}

// WithWorkers registers worker specs. Workers are not started until Start.
//
// Example:
//
//	sup := overseer.New(
//	    overseer.WithWorkers(
//	        overseer.WorkerSpec{Name: "weather", Program: "python3", Script: "weather_display.py", MaxRestarts: 5},
//	        overseer.WorkerSpec{Name: "led", Program: "python3", Script: "led_controller.py", MaxRestarts: 5},
//	    ),
//	)
func WithWorkers(specs ...WorkerSpec) Option {
	return func(s *Supervisor) {
		s.specs = append(s.specs, specs...)
	}
}

// WithRunner replaces the process runner. The default is an ExecRunner
// inheriting the supervisor's stdout and stderr.
func WithRunner(r Runner) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithContext ties the supervisor to ctx: cancelling it requests shutdown.
func WithContext(ctx context.Context) Option {
	return func(s *Supervisor) {
		s.parent = ctx
	}
}

// WithoutPreflight skips the check that worker programs and scripts exist.
func WithoutPreflight() Option {
	return func(s *Supervisor) {
		s.preflight = false
	}
}
