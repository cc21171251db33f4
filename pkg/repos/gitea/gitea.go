// Package gitea implements the repos.Backend contract against a Gitea
// server using the official SDK.
//
// The SDK does not thread a context through individual requests, so the
// ctx parameters gate only the work around SDK calls.
package gitea

import (
	"context"
	"fmt"
	"net/http"

	"code.gitea.io/sdk/gitea"

	"github.com/codeopen/sandboxd/pkg/repos"
)

const listPageSize = 50

// Config holds Gitea connection settings.
type Config struct {
	// URL is the base address of the Gitea instance.
	URL string

	// Token is an API token with repo scope.
	Token string

	// Owner is the account repositories are created under. Empty means
	// the token's own user.
	Owner string
}

// Backend is the Gitea implementation of repos.Backend.
type Backend struct {
	client *gitea.Client
	owner  string
}

var _ repos.Backend = (*Backend)(nil)

// New connects to the Gitea instance and resolves the owning account.
func New(cfg Config) (*Backend, error) {
	client, err := gitea.NewClient(cfg.URL, gitea.SetToken(cfg.Token))
	if err != nil {
		return nil, fmt.Errorf("connecting to gitea at %s: %w", cfg.URL, err)
	}

	owner := cfg.Owner
	if owner == "" {
		user, _, err := client.GetMyUserInfo()
		if err != nil {
			return nil, fmt.Errorf("resolving gitea token user: %w", err)
		}
		owner = user.UserName
	}
	return &Backend{client: client, owner: owner}, nil
}

// CreateRepo creates a fresh repository. Name collisions report
// repos.ErrExists.
func (b *Backend) CreateRepo(ctx context.Context, name string, opts repos.CreateOptions) (*repos.Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo, resp, err := b.client.CreateRepo(gitea.CreateRepoOption{
		Name:          name,
		Description:   opts.Description,
		Private:       opts.Private,
		AutoInit:      opts.AutoInit,
		DefaultBranch: opts.DefaultBranch,
	})
	if err != nil {
		if hasStatus(resp, http.StatusConflict) {
			return nil, fmt.Errorf("repository %s: %w", name, repos.ErrExists)
		}
		return nil, fmt.Errorf("creating repository %s: %w", name, err)
	}
	return fromGitea(repo), nil
}

// CloneRepo imports an external repository under the configured owner via
// Gitea's migration endpoint.
func (b *Backend) CloneRepo(ctx context.Context, url, name string, opts repos.CreateOptions) (*repos.Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo, resp, err := b.client.MigrateRepo(gitea.MigrateRepoOption{
		RepoName:    name,
		RepoOwner:   b.owner,
		CloneAddr:   url,
		Service:     gitea.GitServicePlain,
		Private:     opts.Private,
		Description: opts.Description,
	})
	if err != nil {
		if hasStatus(resp, http.StatusConflict) {
			return nil, fmt.Errorf("repository %s: %w", name, repos.ErrExists)
		}
		return nil, fmt.Errorf("cloning %s into repository %s: %w", url, name, err)
	}
	return fromGitea(repo), nil
}

// GetRepo returns (nil, nil) when the repository does not exist.
func (b *Backend) GetRepo(ctx context.Context, name string) (*repos.Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo, resp, err := b.client.GetRepo(b.owner, name)
	if err != nil {
		if hasStatus(resp, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching repository %s: %w", name, err)
	}
	return fromGitea(repo), nil
}

// DeleteRepo removes the repository. Deleting an absent repository is a
// no-op.
func (b *Backend) DeleteRepo(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := b.client.DeleteRepo(b.owner, name)
	if err != nil {
		if hasStatus(resp, http.StatusNotFound) {
			return nil
		}
		return fmt.Errorf("deleting repository %s: %w", name, err)
	}
	return nil
}

// ListRepos pages through every repository visible to the token.
func (b *Backend) ListRepos(ctx context.Context) ([]repos.Repo, error) {
	var out []repos.Repo
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, _, err := b.client.ListMyRepos(gitea.ListReposOptions{
			ListOptions: gitea.ListOptions{Page: page, PageSize: listPageSize},
		})
		if err != nil {
			return nil, fmt.Errorf("listing repositories: %w", err)
		}
		for _, repo := range batch {
			out = append(out, *fromGitea(repo))
		}
		if len(batch) < listPageSize {
			return out, nil
		}
	}
}

func fromGitea(r *gitea.Repository) *repos.Repo {
	return &repos.Repo{
		Name:          r.Name,
		CloneURL:      r.CloneURL,
		HTMLURL:       r.HTMLURL,
		DefaultBranch: r.DefaultBranch,
		Private:       r.Private,
		Empty:         r.Empty,
	}
}

func hasStatus(resp *gitea.Response, code int) bool {
	return resp != nil && resp.StatusCode == code
}
