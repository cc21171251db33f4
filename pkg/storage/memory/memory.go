// Package memory provides an in-memory implementation of
// orchestrator.Store for tests and single-process development mode.
// Records are deep-copied on the way in and out so callers can never
// mutate stored state behind the store's back; everything is lost when
// the process exits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/orchestrator"
	"github.com/codeopen/sandboxd/pkg/storage"
)

// Store is an in-memory sandbox record store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*api.Sandbox
	// slugs is a secondary index: user id -> slug -> sandbox id.
	slugs map[string]map[string]string
}

// Ensure Store implements orchestrator.Store at compile time.
var _ orchestrator.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*api.Sandbox),
		slugs:   make(map[string]map[string]string),
	}
}

// CreateSandbox persists a new record. Returns storage.ErrConflict when
// the id or the per-owner slug is already taken.
func (s *Store) CreateSandbox(_ context.Context, sb *api.Sandbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[sb.ID]; exists {
		return storage.ErrConflict
	}
	if owned, ok := s.slugs[sb.UserID]; ok {
		if _, taken := owned[sb.Slug]; taken {
			return storage.ErrConflict
		}
	}

	s.records[sb.ID] = sb.Clone()
	if s.slugs[sb.UserID] == nil {
		s.slugs[sb.UserID] = make(map[string]string)
	}
	s.slugs[sb.UserID][sb.Slug] = sb.ID
	return nil
}

// GetSandbox retrieves a record by id.
func (s *Store) GetSandbox(_ context.Context, id string) (*api.Sandbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sb, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return sb.Clone(), nil
}

// GetSandboxBySlug retrieves a record through the per-owner slug index.
func (s *Store) GetSandboxBySlug(_ context.Context, userID, slug string) (*api.Sandbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugs[userID][slug]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

// UpdateSandbox replaces the mutable fields of an existing record. The
// identity fields (id, user id) and CreatedAt are preserved; a slug
// change re-points the index.
func (s *Store) UpdateSandbox(_ context.Context, sb *api.Sandbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[sb.ID]
	if !ok {
		return storage.ErrNotFound
	}

	if sb.Slug != cur.Slug {
		if _, taken := s.slugs[cur.UserID][sb.Slug]; taken {
			return storage.ErrConflict
		}
		delete(s.slugs[cur.UserID], cur.Slug)
		s.slugs[cur.UserID][sb.Slug] = sb.ID
	}

	next := sb.Clone()
	next.UserID = cur.UserID
	next.CreatedAt = cur.CreatedAt
	s.records[sb.ID] = next
	return nil
}

// UpdateStatus writes status and error message atomically.
func (s *Store) UpdateStatus(_ context.Context, id string, status api.Status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	sb.Status = status
	sb.ErrorMessage = errMsg
	sb.UpdatedAt = time.Now()
	return nil
}

// SetContainerBinding writes containerID and containerName together:
// both set, or both empty to clear the binding.
func (s *Store) SetContainerBinding(_ context.Context, id, containerID, containerName string) error {
	if (containerID == "") != (containerName == "") {
		return storage.ErrConflict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	sb.ContainerID = containerID
	sb.ContainerName = containerName
	sb.UpdatedAt = time.Now()
	return nil
}

// TouchSandbox sets LastAccessedAt.
func (s *Store) TouchSandbox(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	t := at
	sb.LastAccessedAt = &t
	sb.UpdatedAt = time.Now()
	return nil
}

// DeleteSandbox removes a record and its slug index entry.
func (s *Store) DeleteSandbox(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.slugs[sb.UserID], sb.Slug)
	if len(s.slugs[sb.UserID]) == 0 {
		delete(s.slugs, sb.UserID)
	}
	delete(s.records, id)
	return nil
}

// ListSandboxes returns the owner's records ordered by CreatedAt
// descending, then id, so the order is stable across calls.
func (s *Store) ListSandboxes(_ context.Context, userID string, opts orchestrator.ListOptions) ([]api.Sandbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*api.Sandbox
	for _, sb := range s.records {
		if sb.UserID != userID {
			continue
		}
		if opts.Status != "" && sb.Status != opts.Status {
			continue
		}
		matches = append(matches, sb)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	out := make([]api.Sandbox, 0, len(matches))
	for _, sb := range matches {
		out = append(out, *sb.Clone())
	}
	return out, nil
}

// SlugTaken reports whether slug is in use within the owner's namespace.
func (s *Store) SlugTaken(_ context.Context, userID, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.slugs[userID][slug]
	return taken, nil
}

// CountByStatus returns the number of records per status.
func (s *Store) CountByStatus(_ context.Context) (map[api.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[api.Status]int)
	for _, sb := range s.records {
		counts[sb.Status]++
	}
	return counts, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
