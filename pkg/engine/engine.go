// Package engine defines the narrow contract sandboxd consumes from a
// container engine. Adapters live in subpackages: docker (engine API),
// kubernetes (agent-sandbox custom resources), and fake (test double).
//
// The State vocabulary here is engine-native and intentionally richer than
// the record status in pkg/api; the orchestrator owns the normalization
// between the two.
package engine

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for engine operations.
var (
	// ErrNotFound is returned when the engine has no container with the
	// given id. Callers rely on this being distinguishable from transport
	// or daemon failures.
	ErrNotFound = errors.New("container not found")

	// ErrUnsupported is returned when the adapter cannot express the
	// requested verb (e.g. pause on the kubernetes adapter).
	ErrUnsupported = errors.New("operation not supported by engine")
)

// State is the raw status vocabulary reported by the container engine.
// Adapters pass unrecognized engine wordings through verbatim; the
// orchestrator maps anything it cannot classify to an error status.
type State string

const (
	StateCreating   State = "creating"
	StateRunning    State = "running"
	StateStopped    State = "stopped"
	StatePaused     State = "paused"
	StateRestarting State = "restarting"
	StateRemoving   State = "removing"
	StateExited     State = "exited"
	StateDead       State = "dead"
	StateError      State = "error"
)

// Limits are the resource bounds applied to a container, in engine-native
// numeric units.
type Limits struct {
	NanoCPUs    int64
	MemoryBytes int64
	PidsLimit   int64
}

// CreateSpec describes the container to create for a sandbox.
type CreateSpec struct {
	Name       string
	Image      string
	Cmd        []string
	Env        []string
	WorkingDir string
	Labels     map[string]string
	Limits     Limits
}

// Handle identifies a created container.
type Handle struct {
	ID   string
	Name string
}

// Stats is a point-in-time resource usage sample for one container.
type Stats struct {
	CPUPercent    float64
	MemoryUsage   int64
	MemoryLimit   int64
	MemoryPercent float64
	NetworkRx     int64
	NetworkTx     int64
	BlockRead     int64
	BlockWrite    int64
}

// ExecResult is the outcome of a command executed inside a container.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Info describes the engine backing the adapter.
type Info struct {
	Name    string
	Version string
	OS      string
	Arch    string
}

// Filter narrows ListContainers results. Only containers carrying every
// given label (with the given value) match.
type Filter struct {
	Labels map[string]string
}

// Engine is the container orchestrator contract. Every call is a
// potentially slow, failable I/O boundary; implementations must honor
// context cancellation. "Not found" is always signalled via ErrNotFound so
// callers can treat absent containers distinctly from engine failures.
type Engine interface {
	CreateContainer(ctx context.Context, spec CreateSpec) (Handle, error)
	StartContainer(ctx context.Context, id string) error
	// StopContainer stops the container, waiting up to timeout for a
	// graceful exit before the engine escalates. timeout <= 0 means the
	// engine default.
	StopContainer(ctx context.Context, id string, timeout time.Duration) error
	RestartContainer(ctx context.Context, id string, timeout time.Duration) error
	PauseContainer(ctx context.Context, id string) error
	UnpauseContainer(ctx context.Context, id string) error
	// RemoveContainer deletes the container, forcing if still running.
	RemoveContainer(ctx context.Context, id string, removeVolumes bool) error
	ContainerState(ctx context.Context, id string) (State, error)
	ContainerStats(ctx context.Context, id string) (Stats, error)
	Exec(ctx context.Context, id string, cmd []string) (ExecResult, error)
	ListContainers(ctx context.Context, filter Filter) ([]Handle, error)
	HealthCheck(ctx context.Context) error
	Info(ctx context.Context) (Info, error)
}
