package workflow

import "github.com/spigell/job-seeker/internal/generation"

// Driver picks the next step kind to request. Returning false ends the run.
// The controller validates every request, so a Driver cannot break ordering,
// gating or exactly-once execution.
type Driver interface {
	Next(Snapshot) (generation.Kind, bool)
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(Snapshot) (generation.Kind, bool)

func (f DriverFunc) Next(s Snapshot) (generation.Kind, bool) { return f(s) }

// TableDriver requests the kind the current state expects.
type TableDriver struct{}

func (TableDriver) Next(s Snapshot) (generation.Kind, bool) {
	return s.State.Expected()
}
