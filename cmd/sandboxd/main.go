// Command sandboxd runs the sandbox lifecycle service.
//
// Configuration is layered: built-in defaults, a YAML file (--config,
// SANDBOXD_CONFIG, ./sandboxd.yaml, /etc/sandboxd/config.yaml), then
// SANDBOXD_* environment overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/codeopen/sandboxd/pkg/config"
	"github.com/codeopen/sandboxd/pkg/debug"
	"github.com/codeopen/sandboxd/pkg/engine"
	dockerengine "github.com/codeopen/sandboxd/pkg/engine/docker"
	k8sengine "github.com/codeopen/sandboxd/pkg/engine/kubernetes"
	"github.com/codeopen/sandboxd/pkg/orchestrator"
	"github.com/codeopen/sandboxd/pkg/policy"
	"github.com/codeopen/sandboxd/pkg/repos"
	reposfake "github.com/codeopen/sandboxd/pkg/repos/fake"
	"github.com/codeopen/sandboxd/pkg/repos/gitea"
	"github.com/codeopen/sandboxd/pkg/storage/memory"
	"github.com/codeopen/sandboxd/pkg/storage/postgres"
	transporthttp "github.com/codeopen/sandboxd/pkg/transport/http"
	"github.com/codeopen/sandboxd/pkg/version"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sandboxd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to config file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	debug.Init(cfg.Logging.Debug)
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("sandboxd starting",
		slog.String("version", version.String()),
		slog.String("environment", cfg.Environment),
		slog.String("engine", cfg.Engine.Type),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("repos", cfg.Repos.Backend))

	ctx := context.Background()

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	eng, closeEngine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEngine()

	backend, err := newRepoBackend(cfg)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(store, eng, backend, logger, orchestrator.Config{
		Environment: policy.Environment(cfg.Environment),
		Version:     version.Version,
		StopGrace:   cfg.Orchestrator.StopGrace,
		BaseDomain:  cfg.Orchestrator.BaseDomain,
	})
	if err != nil {
		return err
	}

	srv := transporthttp.NewServer(orch,
		transporthttp.WithAddr(cfg.Server.Addr),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
		transporthttp.WithLogger(logger),
	)
	return srv.ListenAndServe()
}

// newStore builds the configured record store and returns a close func.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (orchestrator.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Storage.Postgres.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			MaxConnLifetime: cfg.Storage.Postgres.MaxConnLifetime,
			MigrateOnStart:  cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return pg, func() { pg.Close() }, nil
	case "memory":
		logger.Warn("using in-memory storage, sandbox records will not survive restarts")
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newEngine builds the configured container engine and returns a close func.
func newEngine(ctx context.Context, cfg *config.Config) (engine.Engine, func(), error) {
	switch cfg.Engine.Type {
	case "docker":
		eng, err := dockerengine.New(ctx, dockerengine.Config{Host: cfg.Engine.Docker.Host})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to docker: %w", err)
		}
		return eng, func() { eng.Close() }, nil
	case "kubernetes":
		eng, err := k8sengine.New(k8sengine.Config{Namespace: cfg.Engine.Kubernetes.Namespace})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to kubernetes: %w", err)
		}
		return eng, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine type %q", cfg.Engine.Type)
	}
}

// newRepoBackend builds the configured git backend.
func newRepoBackend(cfg *config.Config) (repos.Backend, error) {
	switch cfg.Repos.Backend {
	case "gitea":
		backend, err := gitea.New(gitea.Config{
			URL:   cfg.Repos.Gitea.URL,
			Token: cfg.Repos.Gitea.Token,
			Owner: cfg.Repos.Gitea.Owner,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to gitea: %w", err)
		}
		return backend, nil
	case "fake":
		return reposfake.New(), nil
	default:
		return nil, fmt.Errorf("unknown repos backend %q", cfg.Repos.Backend)
	}
}

// newLogger builds the slog handler described by the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: debug.ParseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
