package overseer

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// behavior scripts one run of a fake worker.
type behavior struct {
	exitCode   int
	after      time.Duration
	launchErr  error
	block      bool // run until signalled
	ignoreTerm bool // survive SIGTERM
}

// fakeRunner hands out fakeProcesses according to a per-worker script.
type fakeRunner struct {
	mu      sync.Mutex
	script  map[string]func(attempt int) behavior
	starts  map[string]int
	procs   map[string][]*fakeProcess
	nextPID atomic.Int64
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		script: make(map[string]func(int) behavior),
		starts: make(map[string]int),
		procs:  make(map[string][]*fakeProcess),
	}
}

func (r *fakeRunner) on(name string, fn func(attempt int) behavior) *fakeRunner {
	r.mu.Lock()
	r.script[name] = fn
	r.mu.Unlock()
	return r
}

func (r *fakeRunner) always(name string, b behavior) *fakeRunner {
	return r.on(name, func(int) behavior { return b })
}

func (r *fakeRunner) Start(spec WorkerSpec) (Process, error) {
	r.mu.Lock()
	r.starts[spec.Name]++
	attempt := r.starts[spec.Name]
	fn := r.script[spec.Name]
	r.mu.Unlock()

	b := behavior{block: true}
	if fn != nil {
		b = fn(attempt)
	}
	if b.launchErr != nil {
		return nil, b.launchErr
	}

	p := &fakeProcess{
		pid:        int(r.nextPID.Add(1)) + 1000,
		ignoreTerm: b.ignoreTerm,
		done:       make(chan struct{}),
	}
	if !b.block {
		go func() {
			time.Sleep(b.after)
			p.finish(exitOutcome(b.exitCode, b.after))
		}()
	}

	r.mu.Lock()
	r.procs[spec.Name] = append(r.procs[spec.Name], p)
	r.mu.Unlock()
	return p, nil
}

func (r *fakeRunner) startCount(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts[name]
}

func (r *fakeRunner) processes(name string) []*fakeProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeProcess(nil), r.procs[name]...)
}

type fakeProcess struct {
	pid        int
	ignoreTerm bool

	terminated atomic.Bool
	killed     atomic.Bool

	once    sync.Once
	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
}

func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Outcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

func (p *fakeProcess) Terminate() error {
	p.terminated.Store(true)
	if !p.ignoreTerm {
		p.finish(Outcome{Kind: OutcomeKilled, Code: -1, Signal: "SIGTERM"})
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.finish(Outcome{Kind: OutcomeKilled, Code: -1, Signal: "SIGKILL"})
	return nil
}

func (p *fakeProcess) finish(o Outcome) {
	p.once.Do(func() {
		p.mu.Lock()
		p.outcome = o
		p.mu.Unlock()
		close(p.done)
	})
}

// eventLog records events for assertions.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func newEventLog() *eventLog {
	return &eventLog{}
}

func (l *eventLog) handle(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) count(t EventType, worker string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == t && (worker == "" || e.Worker == worker) {
			n++
		}
	}
	return n
}

func (l *eventLog) filter(t EventType, worker string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t && (worker == "" || e.Worker == worker) {
			out = append(out, e)
		}
	}
	return out
}

// waitFor blocks until an event of type t for worker has been seen.
func (l *eventLog) waitFor(t EventType, worker string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l.count(t, worker) > 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// syncBuffer is a bytes.Buffer that several processes may write to at once.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errNoSuchFile = errors.New("no such file or directory")
