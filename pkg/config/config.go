// Package config provides unified configuration for the sandboxd service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SANDBOXD_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the sandboxd service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Environment   string              `yaml:"environment"` // "development" or "production", default: "development"
	Engine        EngineConfig        `yaml:"engine"`
	Storage       StorageConfig       `yaml:"storage"`
	Repos         ReposConfig         `yaml:"repos"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // default: ":8080"
	MaxBodySize     int64         `yaml:"max_body_size"`    // request body cap in bytes, default: 1 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// EngineConfig selects and configures the container engine.
type EngineConfig struct {
	Type       string           `yaml:"type"` // "docker" or "kubernetes", default: "docker"
	Docker     DockerConfig     `yaml:"docker"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// DockerConfig holds Docker daemon settings.
type DockerConfig struct {
	Host string `yaml:"host"` // daemon address override, empty = SDK environment default
}

// KubernetesConfig holds cluster settings for the agent-sandbox adapter.
type KubernetesConfig struct {
	Namespace string `yaml:"namespace"` // default: "sandboxd"
}

// StorageConfig holds sandbox record store settings.
type StorageConfig struct {
	Backend  string         `yaml:"backend"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	DSNFile         string        `yaml:"dsn_file"` // _file variant for dsn
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"` // default: true
}

// ReposConfig selects and configures the git backend.
type ReposConfig struct {
	Backend string      `yaml:"backend"` // "gitea" or "fake", default: "fake"
	Gitea   GiteaConfig `yaml:"gitea"`
}

// GiteaConfig holds Gitea connection settings.
type GiteaConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"` // _file variant for token
	Owner     string `yaml:"owner"`      // empty = token user
}

// OrchestratorConfig holds lifecycle coordination settings.
type OrchestratorConfig struct {
	StopGrace  time.Duration `yaml:"stop_grace"`  // default: 10s
	BaseDomain string        `yaml:"base_domain"` // per-sandbox service URL suffix, empty disables URLs
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn", "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "json"
	Debug  string `yaml:"debug"`  // comma-separated debug categories, e.g. "engine,repos"; SANDBOXD_DEBUG overrides
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxBodySize:     1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Environment: "development",
		Engine: EngineConfig{
			Type: "docker",
			Kubernetes: KubernetesConfig{
				Namespace: "sandboxd",
			},
		},
		Storage: StorageConfig{
			Backend: "memory",
			Postgres: PostgresConfig{
				MaxConns:        25,
				MinConns:        5,
				MaxConnLifetime: 5 * time.Minute,
				MigrateOnStart:  true,
			},
		},
		Repos: ReposConfig{
			Backend: "fake",
		},
		Orchestrator: OrchestratorConfig{
			StopGrace: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
