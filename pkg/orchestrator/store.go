package orchestrator

import (
	"context"
	"time"

	"github.com/codeopen/sandboxd/pkg/api"
)

// ListOptions narrows and pages ListSandboxes results. The zero value
// lists every sandbox for the owner.
type ListOptions struct {
	// Status filters to records with exactly this status when non-empty.
	Status api.Status

	// Limit caps the number of returned records; 0 means no cap.
	Limit int

	// Offset skips this many records from the start of the ordering.
	Offset int
}

// Store is the sandbox record store contract. Implementations (memory,
// postgres) persist the durable field set of pkg/api.Sandbox and must
// return storage.ErrNotFound for unknown ids and storage.ErrConflict for
// id or per-owner slug collisions.
//
// ListSandboxes orders records by created_at descending, then id, so
// repeated calls observe a stable order.
type Store interface {
	CreateSandbox(ctx context.Context, sb *api.Sandbox) error
	GetSandbox(ctx context.Context, id string) (*api.Sandbox, error)
	GetSandboxBySlug(ctx context.Context, userID, slug string) (*api.Sandbox, error)

	// UpdateSandbox replaces the mutable fields of an existing record.
	UpdateSandbox(ctx context.Context, sb *api.Sandbox) error

	// UpdateStatus writes a status and its error message atomically. The
	// message must be empty for every status except api.StatusError.
	UpdateStatus(ctx context.Context, id string, status api.Status, errMsg string) error

	// SetContainerBinding writes containerID and containerName together.
	// Passing two empty strings clears the binding; a partially empty pair
	// is rejected.
	SetContainerBinding(ctx context.Context, id, containerID, containerName string) error

	// TouchSandbox sets LastAccessedAt.
	TouchSandbox(ctx context.Context, id string, at time.Time) error

	DeleteSandbox(ctx context.Context, id string) error
	ListSandboxes(ctx context.Context, userID string, opts ListOptions) ([]api.Sandbox, error)

	// SlugTaken reports whether slug is already used within the owner's
	// namespace.
	SlugTaken(ctx context.Context, userID, slug string) (bool, error)

	// CountByStatus returns the number of records per status, for metrics.
	CountByStatus(ctx context.Context) (map[api.Status]int, error)

	HealthCheck(ctx context.Context) error
	Close() error
}
