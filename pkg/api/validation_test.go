package api

import (
	"strings"
	"testing"
)

func validCreateRequest() *CreateSandboxRequest {
	return &CreateSandboxRequest{
		UserID:         "user-1",
		Name:           "My Project",
		FlavorID:       "js",
		ResourceTierID: "starter",
	}
}

func TestValidateCreateRequest(t *testing.T) {
	cfg := DefaultValidationConfig()

	tests := []struct {
		name      string
		mutate    func(*CreateSandboxRequest)
		wantParam string
	}{
		{name: "valid request", mutate: func(r *CreateSandboxRequest) {}},
		{
			name:      "missing user id",
			mutate:    func(r *CreateSandboxRequest) { r.UserID = "" },
			wantParam: "user_id",
		},
		{
			name:      "blank user id",
			mutate:    func(r *CreateSandboxRequest) { r.UserID = "   " },
			wantParam: "user_id",
		},
		{
			name:      "missing name",
			mutate:    func(r *CreateSandboxRequest) { r.Name = "" },
			wantParam: "name",
		},
		{
			name:      "blank name",
			mutate:    func(r *CreateSandboxRequest) { r.Name = "  \t " },
			wantParam: "name",
		},
		{
			name:      "name too long",
			mutate:    func(r *CreateSandboxRequest) { r.Name = strings.Repeat("x", 101) },
			wantParam: "name",
		},
		{
			name:      "description too long",
			mutate:    func(r *CreateSandboxRequest) { r.Description = strings.Repeat("x", 1001) },
			wantParam: "description",
		},
		{
			name: "too many addons",
			mutate: func(r *CreateSandboxRequest) {
				r.AddonIDs = make([]string, 17)
				for i := range r.AddonIDs {
					r.AddonIDs[i] = "addon"
				}
			},
			wantParam: "addon_ids",
		},
		{
			name:      "empty addon id",
			mutate:    func(r *CreateSandboxRequest) { r.AddonIDs = []string{"code-server", " "} },
			wantParam: "addon_ids",
		},
		{
			name:      "repo url bad scheme",
			mutate:    func(r *CreateSandboxRequest) { r.RepoURL = "ftp://example.com/repo.git" },
			wantParam: "repo_url",
		},
		{
			name:      "repo url no host",
			mutate:    func(r *CreateSandboxRequest) { r.RepoURL = "https:///repo.git" },
			wantParam: "repo_url",
		},
		{
			name:   "repo url https",
			mutate: func(r *CreateSandboxRequest) { r.RepoURL = "https://github.com/acme/app.git" },
		},
		{
			name:   "repo url git scheme",
			mutate: func(r *CreateSandboxRequest) { r.RepoURL = "git://github.com/acme/app.git" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)

			err := ValidateCreateRequest(req, cfg)
			if tt.wantParam == "" {
				if err != nil {
					t.Errorf("ValidateCreateRequest() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateCreateRequest() = nil, want error on param %q", tt.wantParam)
			}
			if err.Param != tt.wantParam {
				t.Errorf("error param = %q, want %q", err.Param, tt.wantParam)
			}
			if err.Kind != ErrorKindInvalidRequest {
				t.Errorf("error kind = %q, want %q", err.Kind, ErrorKindInvalidRequest)
			}
		})
	}
}

func TestResolveAutoStart(t *testing.T) {
	req := validCreateRequest()
	if !req.ResolveAutoStart() {
		t.Error("ResolveAutoStart() = false for nil AutoStart, want true")
	}

	f := false
	req.AutoStart = &f
	if req.ResolveAutoStart() {
		t.Error("ResolveAutoStart() = true for explicit false")
	}
}
