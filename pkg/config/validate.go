package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr is required"))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	switch c.Environment {
	case "development", "production":
		// valid
	default:
		errs = append(errs, fmt.Errorf("environment must be \"development\" or \"production\", got %q", c.Environment))
	}

	switch c.Engine.Type {
	case "docker", "kubernetes":
		// valid
	default:
		errs = append(errs, fmt.Errorf("engine.type must be \"docker\" or \"kubernetes\", got %q", c.Engine.Type))
	}

	switch c.Storage.Backend {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be \"memory\" or \"postgres\", got %q", c.Storage.Backend))
	}

	// If storage.backend is "postgres", DSN or DSNFile must be set.
	if c.Storage.Backend == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.backend is \"postgres\""))
		}
	}

	switch c.Repos.Backend {
	case "gitea", "fake":
		// valid
	default:
		errs = append(errs, fmt.Errorf("repos.backend must be \"gitea\" or \"fake\", got %q", c.Repos.Backend))
	}

	// If repos.backend is "gitea", a URL and a token are required.
	if c.Repos.Backend == "gitea" {
		if c.Repos.Gitea.URL == "" {
			errs = append(errs, fmt.Errorf("repos.gitea.url is required when repos.backend is \"gitea\""))
		}
		if c.Repos.Gitea.Token == "" && c.Repos.Gitea.TokenFile == "" {
			errs = append(errs, fmt.Errorf("repos.gitea.token or repos.gitea.token_file is required when repos.backend is \"gitea\""))
		}
	}

	if c.Orchestrator.StopGrace < 0 {
		errs = append(errs, fmt.Errorf("orchestrator.stop_grace must not be negative, got %s", c.Orchestrator.StopGrace))
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"trace\", \"debug\", \"info\", \"warn\", or \"error\", got %q", c.Logging.Level))
	}

	switch c.Logging.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
