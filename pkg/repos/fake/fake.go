// Package fake provides an in-memory repos.Backend test double.
package fake

import (
	"context"
	"sort"
	"sync"

	"github.com/codeopen/sandboxd/pkg/repos"
)

// Backend is a map-backed git service double.
type Backend struct {
	mu    sync.Mutex
	byName map[string]repos.Repo

	// Errs maps a verb name ("create", "clone", "get", "delete", "list")
	// to an error that verb should return.
	Errs map[string]error
}

// Ensure Backend implements repos.Backend at compile time.
var _ repos.Backend = (*Backend)(nil)

// New creates an empty fake backend.
func New() *Backend {
	return &Backend{
		byName: make(map[string]repos.Repo),
		Errs:   make(map[string]error),
	}
}

// Len reports the number of stored repositories.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byName)
}

func (b *Backend) CreateRepo(_ context.Context, name string, opts repos.CreateOptions) (*repos.Repo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.Errs["create"]; err != nil {
		return nil, err
	}
	if _, exists := b.byName[name]; exists {
		return nil, repos.ErrExists
	}
	repo := repos.Repo{
		Name:          name,
		CloneURL:      "https://git.test/" + name + ".git",
		HTMLURL:       "https://git.test/" + name,
		DefaultBranch: branchOrMain(opts.DefaultBranch),
		Private:       opts.Private,
		Empty:         !opts.AutoInit,
	}
	b.byName[name] = repo
	return &repo, nil
}

func (b *Backend) CloneRepo(_ context.Context, url, name string, opts repos.CreateOptions) (*repos.Repo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.Errs["clone"]; err != nil {
		return nil, err
	}
	if _, exists := b.byName[name]; exists {
		return nil, repos.ErrExists
	}
	repo := repos.Repo{
		Name:          name,
		CloneURL:      "https://git.test/" + name + ".git",
		HTMLURL:       "https://git.test/" + name,
		DefaultBranch: branchOrMain(opts.DefaultBranch),
		Private:       opts.Private,
	}
	b.byName[name] = repo
	return &repo, nil
}

func (b *Backend) GetRepo(_ context.Context, name string) (*repos.Repo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.Errs["get"]; err != nil {
		return nil, err
	}
	repo, ok := b.byName[name]
	if !ok {
		return nil, nil
	}
	return &repo, nil
}

func (b *Backend) DeleteRepo(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.Errs["delete"]; err != nil {
		return err
	}
	delete(b.byName, name)
	return nil
}

func (b *Backend) ListRepos(_ context.Context) ([]repos.Repo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.Errs["list"]; err != nil {
		return nil, err
	}
	out := make([]repos.Repo, 0, len(b.byName))
	for _, r := range b.byName {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func branchOrMain(b string) string {
	if b == "" {
		return "main"
	}
	return b
}
