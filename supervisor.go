// Package overseer supervises long-running external worker programs.
// Each worker runs as a separate OS process and gets its own supervision
// goroutine that restarts it with linear back-off until its restart budget
// is used up. One worker giving up never affects the others.
//
// Basic usage:
//
//	sup := overseer.New(
//	    overseer.WithName("station"),
//	    overseer.WithWorkers(
//	        overseer.WorkerSpec{Name: "weather", Program: "python3", Script: "weather_display.py", MaxRestarts: 5},
//	    ),
//	)
//	stop := sup.WatchSignals()
//	defer stop()
//	if err := sup.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	sup.Wait()
package overseer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultGracePeriod    = 5 * time.Second
	defaultHealthInterval = 10 * time.Second
)

// Supervisor runs a fixed set of workers, restarts them when they exit and
// stops them all on shutdown.
//
// All methods are safe for concurrent use. Each worker's state is owned by
// its own goroutine; the only state shared between goroutines is the
// shutdown flag.
type Supervisor struct {
	// Configuration
	name           string
	logger         *slog.Logger
	backoff        BackoffPolicy
	gracePeriod    time.Duration
	healthInterval time.Duration
	eventHandlers  []EventHandler
	runner         Runner
	preflight      bool
	specs          []WorkerSpec
	parent         context.Context

	// State
	mu      sync.RWMutex
	workers map[string]*workerState
	order   []*workerState
	started bool

	shutdownRequested atomic.Bool
	shutdown          chan struct{}
	wg                sync.WaitGroup
	done              chan struct{}
	doneOnce          sync.Once
}

// New creates a Supervisor with the given options.
// The supervisor must be started with Start before it runs any worker.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		name:           "overseer",
		logger:         slog.Default(),
		backoff:        DefaultBackoff(),
		gracePeriod:    defaultGracePeriod,
		healthInterval: defaultHealthInterval,
		runner:         &ExecRunner{},
		preflight:      true,
		workers:        make(map[string]*workerState),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates the worker specs, checks that their commands exist and
// launches one supervision goroutine per worker plus the liveness monitor.
//
// Nothing is started when validation or the command check fails; a missing
// program or script is reported as *MissingCommandsError.
func (s *Supervisor) Start() error {
	if err := s.launch(); err != nil {
		return err
	}
	s.emitEvent(Event{Type: SupervisorStarted})
	return nil
}

func (s *Supervisor) launch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdownRequested.Load() {
		return ErrSupervisorStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	if len(s.specs) == 0 {
		return ErrNoWorkers
	}

	seen := make(map[string]bool, len(s.specs))
	for _, spec := range s.specs {
		if err := spec.validate(); err != nil {
			return err
		}
		if seen[spec.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateWorker, spec.Name)
		}
		seen[spec.Name] = true
	}

	if s.preflight {
		if err := CheckCommands(s.specs); err != nil {
			return err
		}
	}

	for _, spec := range s.specs {
		w := newWorkerState(spec)
		s.workers[spec.Name] = w
		s.order = append(s.order, w)
	}
	s.started = true

	for _, w := range s.order {
		s.wg.Add(1)
		go s.supervise(w)
	}
	s.wg.Add(1)
	go s.monitor()

	if s.parent != nil {
		go s.watchContext(s.parent)
	}
	go s.awaitTermination()
	return nil
}

// RequestShutdown starts the shutdown sequence. It returns true for the call
// that initiated shutdown; every later call is a no-op returning false.
//
// Running workers receive SIGTERM and are killed if they are still alive
// after the grace period. Workers waiting to restart stop immediately.
func (s *Supervisor) RequestShutdown(reason string) bool {
	if !s.shutdownRequested.CompareAndSwap(false, true) {
		return false
	}

	s.emitEvent(Event{Type: SupervisorStopping, Reason: reason})
	close(s.shutdown)

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		s.finish()
	}
	return true
}

// ShutdownRequested reports whether shutdown has begun.
func (s *Supervisor) ShutdownRequested() bool {
	return s.shutdownRequested.Load()
}

// Stop requests shutdown and blocks until every worker process is gone.
func (s *Supervisor) Stop() {
	s.RequestShutdown("stop requested")
	<-s.done
}

// Shutdown is like Stop but gives up waiting when ctx is done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.RequestShutdown("stop requested")
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until shutdown has completed.
// Workers giving up do not end the wait; only shutdown does.
func (s *Supervisor) Wait() {
	<-s.done
}

// Done is closed once shutdown has completed.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Status returns a snapshot of every worker in registration order.
func (s *Supervisor) Status() []WorkerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]WorkerInfo, 0, len(s.order))
	for _, w := range s.order {
		infos = append(infos, w.snapshot())
	}
	return infos
}

// Worker returns a snapshot of a single worker.
func (s *Supervisor) Worker(name string) (WorkerInfo, error) {
	s.mu.RLock()
	w, ok := s.workers[name]
	s.mu.RUnlock()
	if !ok {
		return WorkerInfo{}, &WorkerError{Worker: name, Err: ErrWorkerNotFound}
	}
	return w.snapshot(), nil
}

func (s *Supervisor) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.RequestShutdown(fmt.Sprintf("context done: %v", context.Cause(ctx)))
	case <-s.shutdown:
	}
}

// awaitTermination closes done once shutdown was requested and every
// goroutine has returned.
func (s *Supervisor) awaitTermination() {
	<-s.shutdown
	s.wg.Wait()
	s.emitEvent(Event{Type: SupervisorStopped})
	s.finish()
}

func (s *Supervisor) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// sleep waits for d or until shutdown is requested. It returns false on shutdown.
func (s *Supervisor) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return !s.shutdownRequested.Load()
	case <-s.shutdown:
		return false
	}
}
