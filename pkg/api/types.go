package api

import "time"

// DefaultAddonIDs is the addon set applied when a creation request names none.
var DefaultAddonIDs = []string{"code-server"}

// Sandbox is the persisted record for one sandbox: a per-user isolated
// workspace backed by one container and one source repository.
//
// ContainerID and ContainerName are empty until the container exists and are
// always set together. ErrorMessage is non-empty exactly when Status is
// StatusError.
type Sandbox struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Slug           string     `json:"slug"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	RepoName       string     `json:"repo_name,omitempty"`
	FlavorID       string     `json:"flavor_id"`
	ResourceTierID string     `json:"resource_tier_id"`
	AddonIDs       []string   `json:"addon_ids,omitempty"`
	ContainerID    string     `json:"container_id,omitempty"`
	ContainerName  string     `json:"container_name,omitempty"`
	OpencodeURL    string     `json:"opencode_url,omitempty"`
	EditorURL      string     `json:"editor_url,omitempty"`
	PreviewURL     string     `json:"preview_url,omitempty"`
	Status         Status     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the sandbox.
func (s *Sandbox) Clone() *Sandbox {
	if s == nil {
		return nil
	}
	out := *s
	if s.AddonIDs != nil {
		out.AddonIDs = make([]string, len(s.AddonIDs))
		copy(out.AddonIDs, s.AddonIDs)
	}
	if s.LastAccessedAt != nil {
		t := *s.LastAccessedAt
		out.LastAccessedAt = &t
	}
	return &out
}

// HasContainer reports whether the record carries a container binding.
func (s *Sandbox) HasContainer() bool {
	return s.ContainerID != "" && s.ContainerName != ""
}

// CreateSandboxRequest is the caller input for sandbox creation.
// FlavorID and ResourceTierID fall back to policy defaults when empty;
// AddonIDs falls back to DefaultAddonIDs. When RepoURL is set the workspace
// repository is cloned from it instead of created empty. AutoStart defaults
// to true when nil.
type CreateSandboxRequest struct {
	UserID         string   `json:"user_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	FlavorID       string   `json:"flavor_id,omitempty"`
	ResourceTierID string   `json:"resource_tier_id,omitempty"`
	AddonIDs       []string `json:"addon_ids,omitempty"`
	RepoURL        string   `json:"repo_url,omitempty"`
	AutoStart      *bool    `json:"auto_start,omitempty"`
}

// ResolveAutoStart returns the effective auto-start value, defaulting to true.
func (r *CreateSandboxRequest) ResolveAutoStart() bool {
	if r.AutoStart != nil {
		return *r.AutoStart
	}
	return true
}

// ContainerStats is the resource usage view for a running sandbox, as
// reported by the container engine and normalized for callers.
type ContainerStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsage   int64   `json:"memory_usage"`
	MemoryLimit   int64   `json:"memory_limit"`
	MemoryPercent float64 `json:"memory_percent"`
	NetworkRx     int64   `json:"network_rx"`
	NetworkTx     int64   `json:"network_tx"`
	BlockRead     int64   `json:"block_read"`
	BlockWrite    int64   `json:"block_write"`
}

// Repository is the source-control view attached to a SandboxInfo.
type Repository struct {
	Name          string `json:"name"`
	CloneURL      string `json:"clone_url,omitempty"`
	HTMLURL       string `json:"html_url,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Empty         bool   `json:"empty,omitempty"`
}

// SandboxInfo is the merged view returned to callers: the persisted record
// plus whatever live state could be observed. LiveStatus is the engine's
// current state normalized into the record vocabulary; it equals the record
// Status when the engine could not be consulted. EngineState preserves the
// raw engine wording for diagnostics.
type SandboxInfo struct {
	Sandbox
	LiveStatus  Status          `json:"live_status"`
	EngineState string          `json:"engine_state,omitempty"`
	Stats       *ContainerStats `json:"stats,omitempty"`
	Repo        *Repository     `json:"repo,omitempty"`
}

// ExecRequest is the caller input for running a command inside a sandbox.
type ExecRequest struct {
	Command string `json:"command"`
}

// ExecResult is the outcome of a command run inside a sandbox.
type ExecResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// StopSandboxRequest carries the optional graceful timeout for stop and
// restart operations. Zero means the server default.
type StopSandboxRequest struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// ListSandboxesResponse is the envelope for list results.
type ListSandboxesResponse struct {
	Sandboxes []Sandbox `json:"sandboxes"`
}
