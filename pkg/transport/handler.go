package transport

import (
	"context"
	"time"

	"github.com/codeopen/sandboxd/pkg/api"
)

// Lifecycle is the contract between the transport layer and the sandbox
// orchestrator. Every method returns pkg/api errors so the adapter can
// derive HTTP status codes from the error kind.
type Lifecycle interface {
	// CreateSandbox provisions a new sandbox: record, workspace repository,
	// and container. A downstream provisioning failure still yields a
	// persisted record in status error, returned without an error.
	CreateSandbox(ctx context.Context, req *api.CreateSandboxRequest) (*api.Sandbox, error)

	// StartSandbox runs the sandbox container, re-provisioning it when the
	// record carries no binding.
	StartSandbox(ctx context.Context, id string) (*api.Sandbox, error)

	// StopSandbox gracefully stops the container, escalating after the
	// grace period. Zero grace means the server default. Stopping an
	// already-stopped sandbox succeeds.
	StopSandbox(ctx context.Context, id string, grace time.Duration) (*api.Sandbox, error)

	// RestartSandbox stops and then starts the sandbox under one lock.
	RestartSandbox(ctx context.Context, id string, grace time.Duration) (*api.Sandbox, error)

	// PauseSandbox freezes the container without releasing its resources.
	PauseSandbox(ctx context.Context, id string) (*api.Sandbox, error)

	// UnpauseSandbox resumes a paused container.
	UnpauseSandbox(ctx context.Context, id string) (*api.Sandbox, error)

	// DeleteSandbox removes the container and then the record. Deleting an
	// unknown sandbox succeeds, so client retries are safe.
	DeleteSandbox(ctx context.Context, id string, removeVolumes bool) error

	// GetSandboxInfo returns the record merged with the live engine view.
	// An unknown id yields (nil, nil), not an error.
	GetSandboxInfo(ctx context.Context, id string) (*api.SandboxInfo, error)

	// ListSandboxes returns the owner's sandboxes, optionally filtered by
	// status, in a stable order.
	ListSandboxes(ctx context.Context, userID string, status api.Status) ([]api.Sandbox, error)

	// TouchSandbox records user activity. Unknown ids are a no-op.
	TouchSandbox(ctx context.Context, id string) error

	// ExecInSandbox runs a command inside the sandbox container.
	ExecInSandbox(ctx context.Context, id string, cmd []string) (api.ExecResult, error)

	// Health reports whether the store and the engine are reachable.
	Health(ctx context.Context) error
}
