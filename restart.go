package overseer

// RestartType determines whether a worker is started again after its process ends.
type RestartType int

const (
	// Permanent workers are restarted after every exit, including a clean one.
	// Long-running display and blink loops are never expected to finish.
	Permanent RestartType = iota

	// Transient workers are restarted only after an abnormal exit.
	// A zero exit status ends supervision of the worker.
	Transient

	// Temporary workers run once and are never restarted.
	Temporary
)

// String returns the string representation of a RestartType.
func (rt RestartType) String() string {
	switch rt {
	case Permanent:
		return "Permanent"
	case Transient:
		return "Transient"
	case Temporary:
		return "Temporary"
	default:
		return "Unknown"
	}
}

// ParseRestartType maps a config string to a RestartType. Empty means Permanent.
func ParseRestartType(s string) (RestartType, bool) {
	switch s {
	case "", "permanent", "Permanent":
		return Permanent, true
	case "transient", "Transient":
		return Transient, true
	case "temporary", "Temporary":
		return Temporary, true
	default:
		return Permanent, false
	}
}

// wantsRestart decides from the restart type alone whether another run should follow.
func (rt RestartType) wantsRestart(o Outcome) bool {
	switch rt {
	case Permanent:
		return true
	case Transient:
		return !o.Success()
	default:
		return false
	}
}
