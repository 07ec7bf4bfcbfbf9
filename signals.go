package overseer

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// WatchSignals requests shutdown when one of sigs arrives. With no
// arguments it listens for SIGINT and SIGTERM. Repeated signals are logged
// and otherwise ignored. The returned function stops listening.
func (s *Supervisor) WatchSignals(sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{unix.SIGINT, unix.SIGTERM}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	quit := make(chan struct{})
	go s.forwardSignals(ch, quit)

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}

func (s *Supervisor) forwardSignals(ch <-chan os.Signal, quit <-chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case sig := <-ch:
			if !s.RequestShutdown("received signal " + sig.String()) {
				s.logger.Info("shutdown already in progress", "supervisor", s.name, "signal", sig.String())
			}
		}
	}
}
