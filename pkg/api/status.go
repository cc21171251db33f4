package api

import "fmt"

// Status is the normalized lifecycle status of a sandbox record. It is
// deliberately coarser than the container engine's own state vocabulary;
// the orchestrator owns the mapping between the two.
type Status string

const (
	StatusCreated  Status = "created"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
	StatusError    Status = "error"
)

// Statuses lists every valid status, in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusCreated,
		StatusStarting,
		StatusRunning,
		StatusStopping,
		StatusStopped,
		StatusError,
	}
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusStarting, StatusRunning, StatusStopping, StatusStopped, StatusError:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ValidateStatusTransition checks whether a record status transition is
// allowed. An empty "from" status represents a record being created. Error
// is reachable from every state; leaving error requires an explicit start
// or stop attempt, not a direct rewrite to a healthy status.
func ValidateStatusTransition(from, to Status) *APIError {
	valid := map[Status][]Status{
		"":             {StatusCreated, StatusStarting, StatusError},
		StatusCreated:  {StatusStarting, StatusStopping, StatusError},
		StatusStarting: {StatusRunning, StatusStopping, StatusError},
		StatusRunning:  {StatusStopping, StatusStarting, StatusError},
		StatusStopping: {StatusStopped, StatusError},
		StatusStopped:  {StatusStarting, StatusStopping, StatusError},
		StatusError:    {StatusStarting, StatusStopping, StatusError},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError("status",
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewInvalidRequestError("status",
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
