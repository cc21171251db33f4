package gitea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeopen/sandboxd/pkg/repos"
)

// fakeGitea is a minimal Gitea API stub: just the endpoints the backend
// touches, with canned repositories keyed by name.
type fakeGitea struct {
	mux      *http.ServeMux
	repoJSON func(name string) map[string]any
}

func newFakeGitea(t *testing.T) (*fakeGitea, *httptest.Server) {
	t.Helper()
	f := &fakeGitea{mux: http.NewServeMux()}
	f.repoJSON = func(name string) map[string]any {
		return map[string]any{
			"name":           name,
			"clone_url":      "https://git.test/sandboxd/" + name + ".git",
			"html_url":       "https://git.test/sandboxd/" + name,
			"default_branch": "main",
			"private":        true,
			"empty":          false,
		}
	}

	// The SDK verifies the server version during NewClient.
	f.mux.HandleFunc("GET /api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"version": "1.24.0"})
	})
	f.mux.HandleFunc("GET /api/v1/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"login": "sandboxd"})
	})

	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b, err := New(Config{URL: srv.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestNewResolvesOwnerFromToken(t *testing.T) {
	_, srv := newFakeGitea(t)
	b := newTestBackend(t, srv)
	if b.owner != "sandboxd" {
		t.Errorf("owner = %q, want sandboxd (from token user)", b.owner)
	}
}

func TestCreateRepo(t *testing.T) {
	f, srv := newFakeGitea(t)
	f.mux.HandleFunc("POST /api/v1/user/repos", func(w http.ResponseWriter, r *http.Request) {
		var opt map[string]any
		if err := json.NewDecoder(r.Body).Decode(&opt); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		if opt["name"] == "taken" {
			writeJSON(w, http.StatusConflict, map[string]any{"message": "repository already exists"})
			return
		}
		if opt["auto_init"] != true {
			t.Errorf("create payload auto_init = %v, want true", opt["auto_init"])
		}
		writeJSON(w, http.StatusCreated, f.repoJSON(opt["name"].(string)))
	})
	b := newTestBackend(t, srv)

	repo, err := b.CreateRepo(context.Background(), "my-project", repos.CreateOptions{
		Private: true, AutoInit: true, DefaultBranch: "main",
	})
	if err != nil {
		t.Fatalf("CreateRepo: %v", err)
	}
	if repo.Name != "my-project" || repo.CloneURL == "" || repo.DefaultBranch != "main" {
		t.Errorf("repo = %+v", repo)
	}

	_, err = b.CreateRepo(context.Background(), "taken", repos.CreateOptions{})
	if !errors.Is(err, repos.ErrExists) {
		t.Errorf("CreateRepo(taken) = %v, want ErrExists", err)
	}
}

func TestCloneRepo(t *testing.T) {
	f, srv := newFakeGitea(t)
	f.mux.HandleFunc("POST /api/v1/repos/migrate", func(w http.ResponseWriter, r *http.Request) {
		var opt map[string]any
		if err := json.NewDecoder(r.Body).Decode(&opt); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		if opt["clone_addr"] != "https://github.com/example/seed.git" {
			t.Errorf("clone_addr = %v", opt["clone_addr"])
		}
		if opt["repo_name"] == "taken" {
			writeJSON(w, http.StatusConflict, map[string]any{"message": "repository already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, f.repoJSON(opt["repo_name"].(string)))
	})
	b := newTestBackend(t, srv)

	repo, err := b.CloneRepo(context.Background(), "https://github.com/example/seed.git", "seeded", repos.CreateOptions{Private: true})
	if err != nil {
		t.Fatalf("CloneRepo: %v", err)
	}
	if repo.Name != "seeded" {
		t.Errorf("repo.Name = %q, want seeded", repo.Name)
	}

	_, err = b.CloneRepo(context.Background(), "https://github.com/example/seed.git", "taken", repos.CreateOptions{})
	if !errors.Is(err, repos.ErrExists) {
		t.Errorf("CloneRepo(taken) = %v, want ErrExists", err)
	}
}

func TestGetRepoAbsenceIsNotAnError(t *testing.T) {
	f, srv := newFakeGitea(t)
	f.mux.HandleFunc("GET /api/v1/repos/sandboxd/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if name == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, f.repoJSON(name))
	})
	b := newTestBackend(t, srv)

	repo, err := b.GetRepo(context.Background(), "present")
	if err != nil || repo == nil {
		t.Fatalf("GetRepo(present) = %v, %v", repo, err)
	}
	if repo.HTMLURL != "https://git.test/sandboxd/present" {
		t.Errorf("HTMLURL = %q", repo.HTMLURL)
	}

	repo, err = b.GetRepo(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetRepo(missing) error: %v", err)
	}
	if repo != nil {
		t.Errorf("GetRepo(missing) = %+v, want nil", repo)
	}
}

func TestDeleteRepoIdempotent(t *testing.T) {
	_, srv := newFakeGitea(t)
	deleted := false
	srv.Config.Handler.(*http.ServeMux).HandleFunc("DELETE /api/v1/repos/sandboxd/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
			return
		}
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})
	b := newTestBackend(t, srv)

	if err := b.DeleteRepo(context.Background(), "doomed"); err != nil {
		t.Fatalf("DeleteRepo: %v", err)
	}
	if !deleted {
		t.Error("DeleteRepo never hit the API")
	}
	if err := b.DeleteRepo(context.Background(), "missing"); err != nil {
		t.Errorf("DeleteRepo(missing) = %v, want nil", err)
	}
}

func TestListReposPaginates(t *testing.T) {
	f, srv := newFakeGitea(t)
	f.mux.HandleFunc("GET /api/v1/user/repos", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		var batch []map[string]any
		switch page {
		case "", "1":
			for i := 0; i < listPageSize; i++ {
				batch = append(batch, f.repoJSON(fmt.Sprintf("repo-%03d", i)))
			}
		case "2":
			batch = append(batch, f.repoJSON("repo-last"))
		}
		writeJSON(w, http.StatusOK, batch)
	})
	b := newTestBackend(t, srv)

	list, err := b.ListRepos(context.Background())
	if err != nil {
		t.Fatalf("ListRepos: %v", err)
	}
	if len(list) != listPageSize+1 {
		t.Fatalf("ListRepos returned %d repos, want %d", len(list), listPageSize+1)
	}
	if list[len(list)-1].Name != "repo-last" {
		t.Errorf("last repo = %q, want repo-last", list[len(list)-1].Name)
	}
}

func TestCancelledContextShortCircuits(t *testing.T) {
	_, srv := newFakeGitea(t)
	b := newTestBackend(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.CreateRepo(ctx, "x", repos.CreateOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("CreateRepo(cancelled ctx) = %v, want context.Canceled", err)
	}
	if err := b.DeleteRepo(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("DeleteRepo(cancelled ctx) = %v, want context.Canceled", err)
	}
}
