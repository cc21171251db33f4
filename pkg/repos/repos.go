// Package repos defines the contract sandboxd consumes from the git
// service hosting sandbox workspace repositories. Adapters live in
// subpackages: gitea (live service) and fake (test double).
package repos

import (
	"context"
	"errors"
)

// ErrExists is returned by CreateRepo and CloneRepo when the target name
// is already taken. Name collisions are an expected caller error and must
// be distinguishable from backend failures.
var ErrExists = errors.New("repository already exists")

// Repo describes a source repository backing a sandbox workspace.
type Repo struct {
	Name          string
	CloneURL      string
	HTMLURL       string
	DefaultBranch string
	Private       bool
	Empty         bool
}

// CreateOptions control repository creation and cloning.
type CreateOptions struct {
	Description   string
	Private       bool
	DefaultBranch string
	// AutoInit seeds an empty repository with an initial commit so it can
	// be cloned immediately.
	AutoInit bool
}

// Backend is the git service contract. GetRepo returns (nil, nil) when the
// repository does not exist; absence is an expected outcome, not an error.
type Backend interface {
	CreateRepo(ctx context.Context, name string, opts CreateOptions) (*Repo, error)
	CloneRepo(ctx context.Context, url, name string, opts CreateOptions) (*Repo, error)
	GetRepo(ctx context.Context, name string) (*Repo, error)
	DeleteRepo(ctx context.Context, name string) error
	ListRepos(ctx context.Context) ([]Repo, error)
}
