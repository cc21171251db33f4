// Package postgres provides a PostgreSQL implementation of
// orchestrator.Store. It uses pgx/v5 for connection pooling and a TEXT[]
// column for the addon list.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/orchestrator"
	"github.com/codeopen/sandboxd/pkg/storage"
)

// Store is a PostgreSQL-backed sandbox record store.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements orchestrator.Store at compile time.
var _ orchestrator.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const sandboxColumns = `
	id, user_id, slug, name, description, repo_name,
	flavor_id, resource_tier_id, addon_ids,
	container_id, container_name,
	opencode_url, editor_url, preview_url,
	status, error_message, last_accessed_at, created_at, updated_at`

// CreateSandbox persists a new record. A duplicate id or (user_id, slug)
// pair maps to storage.ErrConflict.
func (s *Store) CreateSandbox(ctx context.Context, sb *api.Sandbox) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sandboxes (`+sandboxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		sb.ID, sb.UserID, sb.Slug, sb.Name, nullString(sb.Description), nullString(sb.RepoName),
		sb.FlavorID, sb.ResourceTierID, sb.AddonIDs,
		nullString(sb.ContainerID), nullString(sb.ContainerName),
		nullString(sb.OpencodeURL), nullString(sb.EditorURL), nullString(sb.PreviewURL),
		string(sb.Status), nullString(sb.ErrorMessage), sb.LastAccessedAt, sb.CreatedAt, sb.UpdatedAt,
	)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting sandbox: %w", err)
	}

	return nil
}

// GetSandbox retrieves a record by id.
func (s *Store) GetSandbox(ctx context.Context, id string) (*api.Sandbox, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sandboxColumns+` FROM sandboxes WHERE id = $1`, id)
	return scanSandbox(row)
}

// GetSandboxBySlug retrieves a record by its per-owner slug.
func (s *Store) GetSandboxBySlug(ctx context.Context, userID, slug string) (*api.Sandbox, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sandboxColumns+` FROM sandboxes WHERE user_id = $1 AND slug = $2`, userID, slug)
	return scanSandbox(row)
}

// UpdateSandbox replaces the mutable fields of an existing record. Identity
// fields (id, user_id) and created_at never change.
func (s *Store) UpdateSandbox(ctx context.Context, sb *api.Sandbox) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE sandboxes SET
			slug = $2, name = $3, description = $4, repo_name = $5,
			flavor_id = $6, resource_tier_id = $7, addon_ids = $8,
			container_id = $9, container_name = $10,
			opencode_url = $11, editor_url = $12, preview_url = $13,
			status = $14, error_message = $15, last_accessed_at = $16,
			updated_at = now()
		WHERE id = $1
	`,
		sb.ID, sb.Slug, sb.Name, nullString(sb.Description), nullString(sb.RepoName),
		sb.FlavorID, sb.ResourceTierID, sb.AddonIDs,
		nullString(sb.ContainerID), nullString(sb.ContainerName),
		nullString(sb.OpencodeURL), nullString(sb.EditorURL), nullString(sb.PreviewURL),
		string(sb.Status), nullString(sb.ErrorMessage), sb.LastAccessedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("updating sandbox: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateStatus writes status and error message atomically.
func (s *Store) UpdateStatus(ctx context.Context, id string, status api.Status, errMsg string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE sandboxes SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1
	`, id, string(status), nullString(errMsg))
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetContainerBinding writes container id and name together: both set, or
// both empty to clear the binding.
func (s *Store) SetContainerBinding(ctx context.Context, id, containerID, containerName string) error {
	if (containerID == "") != (containerName == "") {
		return storage.ErrConflict
	}

	result, err := s.pool.Exec(ctx, `
		UPDATE sandboxes SET container_id = $2, container_name = $3, updated_at = now()
		WHERE id = $1
	`, id, nullString(containerID), nullString(containerName))
	if err != nil {
		return fmt.Errorf("updating container binding: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TouchSandbox sets last_accessed_at.
func (s *Store) TouchSandbox(ctx context.Context, id string, at time.Time) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE sandboxes SET last_accessed_at = $2, updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("touching sandbox: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteSandbox removes a record.
func (s *Store) DeleteSandbox(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM sandboxes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting sandbox: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSandboxes returns the owner's records ordered by created_at
// descending, then id, so the order is stable across calls.
func (s *Store) ListSandboxes(ctx context.Context, userID string, opts orchestrator.ListOptions) ([]api.Sandbox, error) {
	query := `SELECT ` + sandboxColumns + ` FROM sandboxes WHERE user_id = $1`
	args := []any{userID}

	if opts.Status != "" {
		args = append(args, string(opts.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id ASC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sandboxes: %w", err)
	}
	defer rows.Close()

	var out []api.Sandbox
	for rows.Next() {
		sb, err := scanSandbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sandboxes: %w", err)
	}
	return out, nil
}

// SlugTaken reports whether slug is in use within the owner's namespace.
func (s *Store) SlugTaken(ctx context.Context, userID, slug string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sandboxes WHERE user_id = $1 AND slug = $2)`,
		userID, slug,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("checking slug: %w", err)
	}
	return taken, nil
}

// CountByStatus returns the number of records per status.
func (s *Store) CountByStatus(ctx context.Context) (map[api.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM sandboxes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting sandboxes: %w", err)
	}
	defer rows.Close()

	counts := make(map[api.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("counting sandboxes: %w", err)
		}
		counts[api.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting sandboxes: %w", err)
	}
	return counts, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanSandbox reads one sandbox row in sandboxColumns order.
func scanSandbox(row pgx.Row) (*api.Sandbox, error) {
	var sb api.Sandbox
	var status string
	var description, repoName, containerID, containerName *string
	var opencodeURL, editorURL, previewURL, errorMessage *string

	err := row.Scan(
		&sb.ID, &sb.UserID, &sb.Slug, &sb.Name, &description, &repoName,
		&sb.FlavorID, &sb.ResourceTierID, &sb.AddonIDs,
		&containerID, &containerName,
		&opencodeURL, &editorURL, &previewURL,
		&status, &errorMessage, &sb.LastAccessedAt, &sb.CreatedAt, &sb.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning sandbox: %w", err)
	}

	sb.Status = api.Status(status)
	sb.Description = deref(description)
	sb.RepoName = deref(repoName)
	sb.ContainerID = deref(containerID)
	sb.ContainerName = deref(containerName)
	sb.OpencodeURL = deref(opencodeURL)
	sb.EditorURL = deref(editorURL)
	sb.PreviewURL = deref(previewURL)
	sb.ErrorMessage = deref(errorMessage)

	return &sb, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// deref converts a nullable TEXT scan target back to a string.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
