package overseer

import "time"

// monitor runs the liveness check every health interval until shutdown.
//
// Restarts are owned by each worker's supervision goroutine. The monitor
// only cross-checks worker state and reports; it never starts a process,
// so a worker held in back-off is not restarted early.
func (s *Supervisor) monitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.checkHealth()
		}
	}
}

// checkHealth returns the number of workers with a live process.
func (s *Supervisor) checkHealth() int {
	s.mu.RLock()
	workers := make([]*workerState, len(s.order))
	copy(workers, s.order)
	s.mu.RUnlock()

	running := 0
	for _, w := range workers {
		if !w.consistent() {
			s.emitEvent(Event{Type: HealthInconsistent, Worker: w.spec.Name})
			continue
		}
		if info := w.snapshot(); info.Status == StatusRunning {
			running++
		}
	}

	s.emitEvent(Event{Type: HealthChecked, Running: running})
	return running
}
