package orchestrator

import (
	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/engine"
)

// RecordStatus normalizes an engine-native state into the record status
// vocabulary. The mapping is total: paused and exited both present as
// stopped because, from the caller's perspective, both mean "not currently
// serving", and any state the orchestrator cannot positively classify maps
// to error rather than being passed through as healthy.
func RecordStatus(s engine.State) api.Status {
	switch s {
	case engine.StateCreating:
		return api.StatusStarting
	case engine.StateRunning:
		return api.StatusRunning
	case engine.StateStopped:
		return api.StatusStopped
	case engine.StatePaused:
		return api.StatusStopped
	case engine.StateRestarting:
		return api.StatusStarting
	case engine.StateRemoving:
		return api.StatusStopping
	case engine.StateExited:
		return api.StatusStopped
	case engine.StateDead:
		return api.StatusError
	case engine.StateError:
		return api.StatusError
	default:
		return api.StatusError
	}
}
