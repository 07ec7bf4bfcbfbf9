package overseer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// workerState is the runtime record of one worker. It is written only by
// the worker's supervision goroutine; mu guards snapshot reads from others.
type workerState struct {
	spec WorkerSpec

	mu          sync.Mutex
	status      WorkerStatus
	process     Process
	startedAt   time.Time
	restarts    int
	lastOutcome *Outcome
	err         error
}

func newWorkerState(spec WorkerSpec) *workerState {
	return &workerState{spec: spec, status: StatusIdle}
}

func (w *workerState) snapshot() WorkerInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	info := WorkerInfo{
		Name:      w.spec.Name,
		Status:    w.status,
		Restarts:  w.restarts,
		StartedAt: w.startedAt,
		Err:       w.err,
	}
	if w.process != nil {
		info.PID = w.process.Pid()
	}
	if w.lastOutcome != nil {
		o := *w.lastOutcome
		info.LastOutcome = &o
	}
	return info
}

// consistent reports false for a worker that claims to run without a process.
func (w *workerState) consistent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status != StatusRunning || w.process != nil
}

func (w *workerState) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

func (w *workerState) setRunning(p Process) {
	w.mu.Lock()
	w.process = p
	w.status = StatusRunning
	w.startedAt = time.Now()
	w.mu.Unlock()
}

// clearProcess drops the process handle, stores how the run ended and moves
// the worker to next in one step. counted is false for runs cut short by
// shutdown, which do not use up restart budget. It returns the restart count
// after the update.
func (w *workerState) clearProcess(o Outcome, counted bool, next WorkerStatus) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.process = nil
	w.status = next
	w.lastOutcome = &o
	if counted {
		w.restarts++
	}
	return w.restarts
}

func (w *workerState) giveUp(err error) {
	w.mu.Lock()
	w.status = StatusGivenUp
	w.err = err
	w.mu.Unlock()
}

// run is a single start of a worker process.
type run struct {
	id      string
	attempt int
	pid     int
	outcome Outcome
	// interrupted is set when shutdown arrived while the process was alive.
	interrupted bool
}

// supervise is the per-worker task: run the worker, and on exit either
// wait out the back-off and run it again, give up, or stop.
func (s *Supervisor) supervise(w *workerState) {
	defer s.wg.Done()

	name := w.spec.Name
	for {
		if s.shutdownRequested.Load() {
			s.stopWorker(w, "shutdown")
			return
		}

		r := s.runOnce(w)
		if r.interrupted {
			s.stopWorker(w, "shutdown")
			return
		}

		attempt := w.clearProcess(r.outcome, true, StatusBackoff)
		if r.outcome.Kind != OutcomeLaunchError {
			s.emitEvent(Event{
				Type:    WorkerExited,
				Worker:  name,
				RunID:   r.id,
				Attempt: r.attempt,
				PID:     r.pid,
				Outcome: &r.outcome,
			})
		}

		if s.shutdownRequested.Load() {
			s.stopWorker(w, "shutdown")
			return
		}
		if !w.spec.Restart.wantsRestart(r.outcome) {
			s.stopWorker(w, "restart type "+w.spec.Restart.String())
			return
		}
		if ShouldGiveUp(attempt, w.spec.MaxRestarts) {
			err := &WorkerError{Worker: name, Err: ErrRestartsExhausted}
			w.giveUp(err)
			s.emitEvent(Event{
				Type:    WorkerGaveUp,
				Worker:  name,
				Attempt: attempt,
				Outcome: &r.outcome,
				Err:     err,
			})
			return
		}

		delay := s.backoff.ComputeDelay(attempt)
		s.emitEvent(Event{Type: WorkerBackoff, Worker: name, Attempt: attempt, Delay: delay})
		if !s.sleep(delay) {
			s.stopWorker(w, "shutdown during back-off")
			return
		}
		s.emitEvent(Event{Type: WorkerRestarting, Worker: name, Attempt: attempt + 1})
	}
}

// runOnce starts the worker and blocks until it exits or shutdown is requested.
func (s *Supervisor) runOnce(w *workerState) run {
	r := run{id: uuid.NewString()}

	w.mu.Lock()
	r.attempt = w.restarts + 1
	w.mu.Unlock()

	p, err := s.runner.Start(w.spec)
	if err != nil {
		r.outcome = launchOutcome(err)
		s.emitEvent(Event{
			Type:    WorkerLaunchFailed,
			Worker:  w.spec.Name,
			RunID:   r.id,
			Attempt: r.attempt,
			Outcome: &r.outcome,
			Err:     err,
		})
		return r
	}

	r.pid = p.Pid()
	w.setRunning(p)
	s.emitEvent(Event{Type: WorkerStarted, Worker: w.spec.Name, RunID: r.id, Attempt: r.attempt, PID: r.pid})

	select {
	case <-p.Done():
		r.outcome = p.Outcome()
	case <-s.shutdown:
		r.outcome = s.terminate(w, p, r)
		r.interrupted = true
		w.clearProcess(r.outcome, false, StatusStopped)
	}
	return r
}

// terminate sends SIGTERM, waits up to the grace period and then kills the
// process. It returns once the process has been reaped.
func (s *Supervisor) terminate(w *workerState, p Process, r run) Outcome {
	s.emitEvent(Event{Type: WorkerTerminating, Worker: w.spec.Name, RunID: r.id, PID: r.pid})
	if err := p.Terminate(); err != nil {
		s.logger.Warn("terminate failed", "worker", w.spec.Name, "pid", r.pid, "error", err)
	}

	grace := time.NewTimer(s.gracePeriod)
	defer grace.Stop()

	select {
	case <-p.Done():
	case <-grace.C:
		s.emitEvent(Event{Type: WorkerKilled, Worker: w.spec.Name, RunID: r.id, PID: r.pid})
		if err := p.Kill(); err != nil {
			s.logger.Error("kill failed", "worker", w.spec.Name, "pid", r.pid, "error", err)
		}
		<-p.Done()
	}

	return p.Outcome()
}

func (s *Supervisor) stopWorker(w *workerState, reason string) {
	w.setStatus(StatusStopped)
	info := w.snapshot()
	s.emitEvent(Event{
		Type:    WorkerStopped,
		Worker:  w.spec.Name,
		Attempt: info.Restarts,
		Outcome: info.LastOutcome,
		Reason:  reason,
	})
}
