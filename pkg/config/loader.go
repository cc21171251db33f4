package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeopen/sandboxd/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SANDBOXD_CONFIG env, ./sandboxd.yaml, /etc/sandboxd/config.yaml)
//  3. SANDBOXD_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "config file loaded", "path", filePath)
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SANDBOXD_CONFIG environment variable
// 3. ./sandboxd.yaml in the current directory
// 4. /etc/sandboxd/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("SANDBOXD_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"sandboxd.yaml",
		"/etc/sandboxd/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps SANDBOXD_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SANDBOXD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SANDBOXD_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("SANDBOXD_ENGINE"); v != "" {
		cfg.Engine.Type = v
	}
	if v := os.Getenv("SANDBOXD_DOCKER_HOST"); v != "" {
		cfg.Engine.Docker.Host = v
	}
	if v := os.Getenv("SANDBOXD_K8S_NAMESPACE"); v != "" {
		cfg.Engine.Kubernetes.Namespace = v
	}
	if v := os.Getenv("SANDBOXD_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("SANDBOXD_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("SANDBOXD_REPOS"); v != "" {
		cfg.Repos.Backend = v
	}
	if v := os.Getenv("SANDBOXD_GITEA_URL"); v != "" {
		cfg.Repos.Gitea.URL = v
	}
	if v := os.Getenv("SANDBOXD_GITEA_TOKEN"); v != "" {
		cfg.Repos.Gitea.Token = v
	}
	if v := os.Getenv("SANDBOXD_GITEA_OWNER"); v != "" {
		cfg.Repos.Gitea.Owner = v
	}
	if v := os.Getenv("SANDBOXD_BASE_DOMAIN"); v != "" {
		cfg.Orchestrator.BaseDomain = v
	}
	if v := os.Getenv("SANDBOXD_STOP_GRACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Orchestrator.StopGrace = d
		}
	}
	if v := os.Getenv("SANDBOXD_METRICS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("SANDBOXD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SANDBOXD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields. For each field ending in _file, if the value field is empty
// and the file field is set, the file is read, whitespace is trimmed, and
// the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// repos.gitea.token_file -> repos.gitea.token
	if cfg.Repos.Gitea.TokenFile != "" && cfg.Repos.Gitea.Token == "" {
		val, err := readSecretFile(cfg.Repos.Gitea.TokenFile)
		if err != nil {
			return fmt.Errorf("repos.gitea.token_file: %w", err)
		}
		cfg.Repos.Gitea.Token = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
