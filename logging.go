package overseer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelCritical is used for failures that permanently take a worker out of service.
const LevelCritical = slog.LevelError + 4

// ParseLevel maps debug, info, warn, error and critical to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger builds a slog.Logger writing text or json records to w.
func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// logEvent writes one structured line per event.
func (s *Supervisor) logEvent(e Event) {
	level := slog.LevelInfo
	msg := ""
	attrs := []any{"supervisor", s.name}
	if e.Worker != "" {
		attrs = append(attrs, "worker", e.Worker)
	}
	if e.RunID != "" {
		attrs = append(attrs, "run_id", e.RunID)
	}
	if e.Attempt > 0 {
		attrs = append(attrs, "attempt", e.Attempt)
	}
	if e.PID > 0 {
		attrs = append(attrs, "pid", e.PID)
	}
	if e.Outcome != nil {
		attrs = append(attrs, "exit", e.Outcome.String(), "runtime", e.Outcome.Runtime)
	}

	switch e.Type {
	case SupervisorStarted:
		msg = "supervisor started"
	case WorkerStarted:
		msg = "worker started"
	case WorkerLaunchFailed:
		level, msg = slog.LevelError, "worker launch failed"
	case WorkerExited:
		msg = "worker exited"
		if e.Outcome != nil && !e.Outcome.Success() {
			level = slog.LevelError
		}
	case WorkerBackoff:
		msg = "restarting worker after delay"
		attrs = append(attrs, "delay", e.Delay)
	case WorkerRestarting:
		msg = "restarting worker"
	case WorkerGaveUp:
		level, msg = LevelCritical, "worker failed too many times, giving up"
	case WorkerTerminating:
		msg = "terminating worker"
	case WorkerKilled:
		level, msg = slog.LevelWarn, "force killing worker"
	case WorkerStopped:
		msg = "worker stopped"
	case SupervisorStopping:
		msg = "shutdown requested"
	case SupervisorStopped:
		msg = "supervisor stopped"
	case HealthChecked:
		level, msg = slog.LevelDebug, "health check"
		attrs = append(attrs, "running", e.Running)
	case HealthInconsistent:
		level, msg = slog.LevelWarn, "worker reported running without a process"
	default:
		msg = e.Type.String()
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err.Error())
	}
	s.logger.Log(context.Background(), level, msg, attrs...)
}
