package api

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxNameLength        int
	MaxDescriptionLength int
	MaxAddons            int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxNameLength:        100,
		MaxDescriptionLength: 1000,
		MaxAddons:            16,
	}
}

// ValidateCreateRequest checks a CreateSandboxRequest for validity. It
// returns an *APIError describing the first validation failure, or nil if
// the request is valid. Validation happens before any side effect: a
// rejected request leaves no record behind.
func ValidateCreateRequest(req *CreateSandboxRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.UserID) == "" {
		return NewInvalidRequestError("user_id", "user_id is required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return NewInvalidRequestError("name", "name is required")
	}

	if cfg.MaxNameLength > 0 && len(name) > cfg.MaxNameLength {
		return NewInvalidRequestError("name",
			fmt.Sprintf("name exceeds maximum of %d characters", cfg.MaxNameLength))
	}

	if cfg.MaxDescriptionLength > 0 && len(req.Description) > cfg.MaxDescriptionLength {
		return NewInvalidRequestError("description",
			fmt.Sprintf("description exceeds maximum of %d characters", cfg.MaxDescriptionLength))
	}

	if cfg.MaxAddons > 0 && len(req.AddonIDs) > cfg.MaxAddons {
		return NewInvalidRequestError("addon_ids",
			fmt.Sprintf("addon_ids exceeds maximum of %d", cfg.MaxAddons))
	}

	for _, id := range req.AddonIDs {
		if strings.TrimSpace(id) == "" {
			return NewInvalidRequestError("addon_ids", "addon ids must be non-empty")
		}
	}

	if req.RepoURL != "" {
		if err := validateRepoURL(req.RepoURL); err != nil {
			return NewInvalidRequestError("repo_url", err.Error())
		}
	}

	return nil
}

func validateRepoURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("repo_url is not a valid URL")
	}
	switch u.Scheme {
	case "http", "https", "git", "ssh":
	default:
		return fmt.Errorf("repo_url scheme %q is not supported", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("repo_url must include a host")
	}
	return nil
}
