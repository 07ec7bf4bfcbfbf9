package overseer

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardSignalsTriggersShutdownOnce(t *testing.T) {
	r := newFakeRunner()
	log := newEventLog()
	sup := newTestSupervisor(r, log, WithWorkers(spec("worker", 3)))
	require.NoError(t, sup.Start())
	require.True(t, log.waitFor(WorkerStarted, "worker", time.Second))

	ch := make(chan os.Signal, 2)
	quit := make(chan struct{})
	defer close(quit)
	go sup.forwardSignals(ch, quit)

	ch <- os.Interrupt
	ch <- syscall.SIGTERM

	select {
	case <-sup.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not stop the supervisor")
	}

	stopping := log.filter(SupervisorStopping, "")
	require.Len(t, stopping, 1)
	assert.Contains(t, stopping[0].Reason, "interrupt")
}

func TestWatchSignals(t *testing.T) {
	r := newFakeRunner()
	log := newEventLog()
	sup := newTestSupervisor(r, log, WithWorkers(spec("worker", 3)))
	require.NoError(t, sup.Start())

	stop := sup.WatchSignals(syscall.SIGUSR1)
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case <-sup.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("SIGUSR1 did not stop the supervisor")
	}
	assert.Equal(t, 1, log.count(SupervisorStopping, ""))

	stop()
}
