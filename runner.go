package overseer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Process is a live worker process started by a Runner.
type Process interface {
	// Pid returns the operating system process ID.
	Pid() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// Outcome returns the termination status. Only valid after Done is closed.
	Outcome() Outcome
	// Terminate asks the process to exit (SIGTERM).
	Terminate() error
	// Kill forces the process to exit (SIGKILL).
	Kill() error
}

// Runner starts worker processes.
// A failed Start is reported by the supervisor as an OutcomeLaunchError.
type Runner interface {
	Start(spec WorkerSpec) (Process, error)
}

// Run starts spec with r and blocks until the process exits.
func Run(r Runner, spec WorkerSpec) Outcome {
	p, err := r.Start(spec)
	if err != nil {
		return launchOutcome(err)
	}
	<-p.Done()
	return p.Outcome()
}

// pipeDrainTimeout bounds how long Wait keeps copying output after the
// worker has exited but something it spawned still holds the pipes.
const pipeDrainTimeout = 2 * time.Second

// ExecRunner runs workers as child processes of the supervisor.
// Each worker gets its own process group. Terminate and Kill signal the
// whole group, and whatever is left in the group once the worker itself
// has exited is killed before Done is closed.
type ExecRunner struct {
	// Stdout and Stderr receive the worker's output. Nil means the
	// supervisor's own stdout and stderr. Every worker started by the
	// runner writes to the same writers, so they must be safe for
	// concurrent use.
	Stdout io.Writer
	Stderr io.Writer
}

// Start launches the worker. The process gets no stdin.
func (r *ExecRunner) Start(spec WorkerSpec) (Process, error) {
	argv := spec.Command()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stdin = nil
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = pipeDrainTimeout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, argv[0], err)
	}

	p := &execProcess{
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	if spec.Timeout > 0 {
		p.timer = time.AfterFunc(spec.Timeout, p.expire)
	}
	go p.wait()
	return p, nil
}

// execProcess is a Process backed by os/exec.
type execProcess struct {
	cmd     *exec.Cmd
	pid     int
	started time.Time
	timer   *time.Timer

	done chan struct{}

	mu       sync.Mutex
	reaped   bool
	timedOut bool
	outcome  Outcome
}

func (p *execProcess) Pid() int              { return p.pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Outcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

func (p *execProcess) Terminate() error { return p.signal(unix.SIGTERM) }
func (p *execProcess) Kill() error      { return p.signal(unix.SIGKILL) }

// signal delivers sig to the worker's process group.
func (p *execProcess) signal(sig syscall.Signal) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	err := unix.Kill(-p.pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("signal %s to pid %d: %w", unix.SignalName(sig), p.pid, err)
	}
	return nil
}

// expire kills a worker that ran past its timeout. It does nothing once the
// worker has been reaped.
func (p *execProcess) expire() {
	p.mu.Lock()
	if p.reaped {
		p.mu.Unlock()
		return
	}
	p.timedOut = true
	p.mu.Unlock()
	_ = p.Kill()
}

func (p *execProcess) wait() {
	err := p.cmd.Wait()
	if p.timer != nil {
		p.timer.Stop()
	}

	p.mu.Lock()
	p.reaped = true
	timedOut := p.timedOut
	p.mu.Unlock()

	p.sweep()
	outcome := classify(err, timedOut, time.Since(p.started))

	p.mu.Lock()
	p.outcome = outcome
	p.mu.Unlock()
	close(p.done)
}

// sweep kills anything still running in the worker's process group after
// the worker itself has exited.
func (p *execProcess) sweep() {
	err := unix.Kill(-p.pid, unix.SIGKILL)
	if err != nil && !errors.Is(err, unix.ESRCH) && !errors.Is(err, unix.EPERM) {
		slog.Default().Warn("cannot clean up worker process group", "pgid", p.pid, "error", err)
	}
}

// classify turns the result of Wait into an Outcome. A timeout only counts
// when the worker actually died from the SIGKILL the timeout sent.
func classify(err error, timedOut bool, runtime time.Duration) Outcome {
	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		return exitOutcome(0, runtime)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// Output copying failed after the process had exited.
		return Outcome{Kind: OutcomeFailure, Code: -1, Err: err, Runtime: runtime}
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		if timedOut && ws.Signal() == unix.SIGKILL {
			return Outcome{Kind: OutcomeTimedOut, Code: -1, Runtime: runtime}
		}
		return Outcome{Kind: OutcomeKilled, Code: -1, Signal: unix.SignalName(ws.Signal()), Runtime: runtime}
	}
	return exitOutcome(exitErr.ExitCode(), runtime)
}
