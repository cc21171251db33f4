// Package fake provides an in-memory engine.Engine test double. Containers
// live in a mutex-guarded map, every verb can be made to fail through a
// per-call error hook, and reported states can be scripted.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codeopen/sandboxd/pkg/engine"
)

// Container is the fake's view of one created container.
type Container struct {
	Handle engine.Handle
	Spec   engine.CreateSpec
	State  engine.State
}

// Engine is a scriptable in-memory container engine.
type Engine struct {
	mu         sync.Mutex
	containers map[string]*Container
	nextID     int

	// Errs maps a verb name ("create", "start", "stop", "restart",
	// "pause", "unpause", "remove", "state", "stats", "exec", "list",
	// "health") to an error that verb should return.
	Errs map[string]error

	// StateOverride, when non-empty, is reported by ContainerState for
	// every container regardless of the fake's bookkeeping.
	StateOverride engine.State

	// StatsResult is returned by ContainerStats.
	StatsResult engine.Stats

	// ExecResult is returned by Exec.
	ExecResult engine.ExecResult

	// Calls records every verb invocation in order, for assertions on
	// call sequencing.
	Calls []string
}

// Ensure Engine implements engine.Engine at compile time.
var _ engine.Engine = (*Engine)(nil)

// New creates an empty fake engine.
func New() *Engine {
	return &Engine{
		containers: make(map[string]*Container),
		Errs:       make(map[string]error),
	}
}

// SetState overrides the recorded state of one container.
func (e *Engine) SetState(id string, state engine.State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.containers[id]; ok {
		c.State = state
	}
}

// Container returns the fake's record for id, or nil.
func (e *Engine) Container(id string) *Container {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.containers[id]
}

// Len reports the number of live containers.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.containers)
}

func (e *Engine) record(call string) error {
	e.Calls = append(e.Calls, call)
	return e.Errs[call]
}

func (e *Engine) CreateContainer(_ context.Context, spec engine.CreateSpec) (engine.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("create"); err != nil {
		return engine.Handle{}, err
	}
	e.nextID++
	h := engine.Handle{ID: fmt.Sprintf("ctr-%d", e.nextID), Name: spec.Name}
	e.containers[h.ID] = &Container{Handle: h, Spec: spec, State: engine.StateCreating}
	return h, nil
}

func (e *Engine) StartContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("start"); err != nil {
		return err
	}
	c, ok := e.containers[id]
	if !ok {
		return engine.ErrNotFound
	}
	c.State = engine.StateRunning
	return nil
}

func (e *Engine) StopContainer(_ context.Context, id string, _ time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("stop"); err != nil {
		return err
	}
	c, ok := e.containers[id]
	if !ok {
		return engine.ErrNotFound
	}
	c.State = engine.StateExited
	return nil
}

func (e *Engine) RestartContainer(_ context.Context, id string, _ time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("restart"); err != nil {
		return err
	}
	c, ok := e.containers[id]
	if !ok {
		return engine.ErrNotFound
	}
	c.State = engine.StateRunning
	return nil
}

func (e *Engine) PauseContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("pause"); err != nil {
		return err
	}
	c, ok := e.containers[id]
	if !ok {
		return engine.ErrNotFound
	}
	c.State = engine.StatePaused
	return nil
}

func (e *Engine) UnpauseContainer(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("unpause"); err != nil {
		return err
	}
	c, ok := e.containers[id]
	if !ok {
		return engine.ErrNotFound
	}
	c.State = engine.StateRunning
	return nil
}

func (e *Engine) RemoveContainer(_ context.Context, id string, _ bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("remove"); err != nil {
		return err
	}
	if _, ok := e.containers[id]; !ok {
		return engine.ErrNotFound
	}
	delete(e.containers, id)
	return nil
}

func (e *Engine) ContainerState(_ context.Context, id string) (engine.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("state"); err != nil {
		return "", err
	}
	c, ok := e.containers[id]
	if !ok {
		return "", engine.ErrNotFound
	}
	if e.StateOverride != "" {
		return e.StateOverride, nil
	}
	return c.State, nil
}

func (e *Engine) ContainerStats(_ context.Context, id string) (engine.Stats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("stats"); err != nil {
		return engine.Stats{}, err
	}
	if _, ok := e.containers[id]; !ok {
		return engine.Stats{}, engine.ErrNotFound
	}
	return e.StatsResult, nil
}

func (e *Engine) Exec(_ context.Context, id string, _ []string) (engine.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("exec"); err != nil {
		return engine.ExecResult{}, err
	}
	if _, ok := e.containers[id]; !ok {
		return engine.ExecResult{}, engine.ErrNotFound
	}
	return e.ExecResult, nil
}

func (e *Engine) ListContainers(_ context.Context, filter engine.Filter) ([]engine.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.record("list"); err != nil {
		return nil, err
	}
	var out []engine.Handle
	for _, c := range e.containers {
		if matchesLabels(c.Spec.Labels, filter.Labels) {
			out = append(out, c.Handle)
		}
	}
	return out, nil
}

func (e *Engine) HealthCheck(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record("health")
}

func (e *Engine) Info(_ context.Context) (engine.Info, error) {
	return engine.Info{Name: "fake", Version: "0"}, nil
}

func matchesLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
