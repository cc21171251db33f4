package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/debug"
	"github.com/codeopen/sandboxd/pkg/engine"
	"github.com/codeopen/sandboxd/pkg/observability"
	"github.com/codeopen/sandboxd/pkg/policy"
	"github.com/codeopen/sandboxd/pkg/repos"
	"github.com/codeopen/sandboxd/pkg/slug"
	"github.com/codeopen/sandboxd/pkg/storage"
	"github.com/codeopen/sandboxd/pkg/transport"
)

// Container labels identifying sandboxd-managed containers.
const (
	LabelSandboxID   = "codeopen.sandbox.id"
	LabelSandboxUser = "codeopen.sandbox.user"
	LabelManagedBy   = "codeopen.managed-by"
	managedByValue   = "sandboxd"
)

// graceSlack is added on top of the caller's grace period when deriving
// the context deadline for a stop, leaving the engine room to escalate
// before the orchestrator declares a timeout.
const graceSlack = 5 * time.Second

// Config holds orchestrator behavior settings.
type Config struct {
	// Environment selects the image naming scheme (development or
	// production). Defaults to development.
	Environment policy.Environment

	// Version is stamped into production image references.
	Version string

	// StopGrace is the default graceful stop period when a request names
	// none. Defaults to 10 seconds.
	StopGrace time.Duration

	// BaseDomain, when set, is used to derive the per-sandbox service
	// URLs (opencode, editor, preview).
	BaseDomain string

	// Validation bounds creation request fields.
	Validation api.ValidationConfig
}

func (c *Config) defaults() {
	if c.Environment == "" {
		c.Environment = policy.EnvDevelopment
	}
	if c.StopGrace <= 0 {
		c.StopGrace = 10 * time.Second
	}
	if c.Validation == (api.ValidationConfig{}) {
		c.Validation = api.DefaultValidationConfig()
	}
}

// Orchestrator is the sandbox lifecycle coordinator. It implements
// transport.Lifecycle.
type Orchestrator struct {
	store  Store
	engine engine.Engine
	repos  repos.Backend
	logger *slog.Logger
	cfg    Config
	locks  *keyedMutex

	// now is replaceable in tests for deterministic timestamps.
	now func() time.Time
}

// Ensure Orchestrator implements transport.Lifecycle at compile time.
var _ transport.Lifecycle = (*Orchestrator)(nil)

// New creates an Orchestrator. Store, engine, and repository backend must
// not be nil.
func New(store Store, eng engine.Engine, backend repos.Backend, logger *slog.Logger, cfg Config) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("orchestrator: store must not be nil")
	}
	if eng == nil {
		return nil, fmt.Errorf("orchestrator: engine must not be nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("orchestrator: repository backend must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()

	return &Orchestrator{
		store:  store,
		engine: eng,
		repos:  backend,
		logger: logger,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}, nil
}

// CreateSandbox validates the request, allocates a slug, provisions the
// workspace repository and the container, and persists the record. A
// downstream repository or engine failure is never silently lost: the
// record is persisted in status error with the failure detail, and retry
// is an explicit subsequent StartSandbox call.
func (o *Orchestrator) CreateSandbox(ctx context.Context, req *api.CreateSandboxRequest) (sb *api.Sandbox, err error) {
	defer o.observeOp("create", o.now(), &err)

	if apiErr := api.ValidateCreateRequest(req, o.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	userID := strings.TrimSpace(req.UserID)
	name := strings.TrimSpace(req.Name)

	slugVal, slugErr := slug.Generate(ctx, userID, name, func(ctx context.Context, s string) (bool, error) {
		return o.store.SlugTaken(ctx, userID, s)
	})
	if slugErr != nil {
		return nil, api.NewInternalError(fmt.Sprintf("allocating slug: %v", slugErr))
	}

	now := o.now()
	sb = &api.Sandbox{
		ID:             api.NewSandboxID(),
		UserID:         userID,
		Slug:           slugVal,
		Name:           name,
		Description:    req.Description,
		FlavorID:       req.FlavorID,
		ResourceTierID: req.ResourceTierID,
		AddonIDs:       append([]string(nil), req.AddonIDs...),
		Status:         api.StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if sb.FlavorID == "" {
		sb.FlavorID = policy.DefaultFlavorID
	}
	if sb.ResourceTierID == "" {
		sb.ResourceTierID = policy.DefaultTierID
	}
	if len(sb.AddonIDs) == 0 {
		sb.AddonIDs = append([]string(nil), api.DefaultAddonIDs...)
	}

	log := o.logger.With(slog.String("sandbox_id", sb.ID), slog.String("user_id", userID), slog.String("slug", slugVal))

	// Workspace repository. A name collision is rejected before any engine
	// side effect; any other backend failure is persisted on the record.
	repo, repoErr := o.provisionRepo(ctx, sb, req.RepoURL)
	if errors.Is(repoErr, repos.ErrExists) {
		return nil, api.NewAlreadyExistsError(fmt.Sprintf("repository %q already exists", workspaceRepoName(sb.UserID, sb.Slug)))
	}
	if repoErr != nil {
		op := "create"
		if req.RepoURL != "" {
			op = "clone"
		}
		return o.persistFailedCreate(ctx, sb, api.NewRepositoryError(op, repoErr))
	}
	sb.RepoName = repo.Name

	// Resolve placement and create the container.
	spec, specErr := o.containerSpec(sb)
	if specErr != nil {
		return o.persistFailedCreate(ctx, sb, api.NewInternalError(specErr.Error()))
	}

	var handle engine.Handle
	engErr := o.engineCall("create", func() error {
		var err error
		handle, err = o.engine.CreateContainer(ctx, spec)
		return err
	})
	if engErr != nil {
		return o.persistFailedCreate(ctx, sb, api.NewEngineError("create", engErr))
	}
	sb.ContainerID = handle.ID
	sb.ContainerName = handle.Name
	o.assignServiceURLs(sb)

	if req.ResolveAutoStart() {
		startErr := o.engineCall("start", func() error {
			return o.engine.StartContainer(ctx, sb.ContainerID)
		})
		if startErr != nil {
			return o.persistFailedCreate(ctx, sb, api.NewEngineError("start", startErr))
		}
		sb.Status = api.StatusRunning
	}

	if err := o.store.CreateSandbox(ctx, sb); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, api.NewAlreadyExistsError(fmt.Sprintf("sandbox %q already exists for this user", sb.Slug))
		}
		return nil, api.NewInternalError(fmt.Sprintf("persisting sandbox: %v", err))
	}

	log.Info("sandbox created", slog.String("status", sb.Status.String()), slog.String("container", sb.ContainerName))
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// StartSandbox transitions the sandbox to starting, re-provisions the
// container when the record carries no binding (a prior failed creation),
// and runs it. Engine failure leaves the record in status error.
func (o *Orchestrator) StartSandbox(ctx context.Context, id string) (sb *api.Sandbox, err error) {
	defer o.observeOp("start", o.now(), &err)

	unlock := o.locks.Lock(id)
	defer unlock()

	sb, err = o.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apiErr := api.ValidateStatusTransition(sb.Status, api.StatusStarting); apiErr != nil {
		return nil, apiErr
	}

	if err := o.startLocked(ctx, sb, ""); err != nil {
		return nil, err
	}
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// StopSandbox gracefully stops the container, escalating after the grace
// period. A container the engine no longer knows about is treated as
// already stopped, so repeated stops are idempotent.
func (o *Orchestrator) StopSandbox(ctx context.Context, id string, grace time.Duration) (sb *api.Sandbox, err error) {
	defer o.observeOp("stop", o.now(), &err)

	unlock := o.locks.Lock(id)
	defer unlock()

	sb, err = o.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apiErr := api.ValidateStatusTransition(sb.Status, api.StatusStopping); apiErr != nil {
		return nil, apiErr
	}

	if err := o.stopLocked(ctx, sb, grace, ""); err != nil {
		return nil, err
	}
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// RestartSandbox runs a stop phase followed by a start phase under one
// lock acquisition. A partial failure leaves the record in status error
// with the failing phase named in the message.
func (o *Orchestrator) RestartSandbox(ctx context.Context, id string, grace time.Duration) (sb *api.Sandbox, err error) {
	defer o.observeOp("restart", o.now(), &err)

	unlock := o.locks.Lock(id)
	defer unlock()

	sb, err = o.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apiErr := api.ValidateStatusTransition(sb.Status, api.StatusStopping); apiErr != nil {
		return nil, apiErr
	}

	if err := o.stopLocked(ctx, sb, grace, "stop phase: "); err != nil {
		return nil, err
	}
	if err := o.startLocked(ctx, sb, "start phase: "); err != nil {
		return nil, err
	}
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// PauseSandbox pauses the container. The record is written as stopped, the
// externally-mapped value for a paused engine state, so the stored row and
// the live view agree.
func (o *Orchestrator) PauseSandbox(ctx context.Context, id string) (sb *api.Sandbox, err error) {
	defer o.observeOp("pause", o.now(), &err)

	unlock := o.locks.Lock(id)
	defer unlock()

	sb, err = o.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sb.HasContainer() {
		return nil, noContainerError(id)
	}

	engErr := o.engineCall("pause", func() error {
		return o.engine.PauseContainer(ctx, sb.ContainerID)
	})
	if errors.Is(engErr, engine.ErrNotFound) {
		return nil, noContainerError(id)
	}
	if engErr != nil {
		apiErr := api.NewEngineError("pause", engErr)
		o.fail(ctx, sb, apiErr.Message)
		return nil, apiErr
	}

	if err := o.setStatus(ctx, sb, api.StatusStopped, ""); err != nil {
		return nil, err
	}
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// UnpauseSandbox resumes a paused container and reports the record running.
func (o *Orchestrator) UnpauseSandbox(ctx context.Context, id string) (sb *api.Sandbox, err error) {
	defer o.observeOp("unpause", o.now(), &err)

	unlock := o.locks.Lock(id)
	defer unlock()

	sb, err = o.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sb.HasContainer() {
		return nil, noContainerError(id)
	}

	engErr := o.engineCall("unpause", func() error {
		return o.engine.UnpauseContainer(ctx, sb.ContainerID)
	})
	if errors.Is(engErr, engine.ErrNotFound) {
		return nil, noContainerError(id)
	}
	if engErr != nil {
		apiErr := api.NewEngineError("unpause", engErr)
		o.fail(ctx, sb, apiErr.Message)
		return nil, apiErr
	}

	if err := o.setStatus(ctx, sb, api.StatusRunning, ""); err != nil {
		return nil, err
	}
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// DeleteSandbox tears down the container and then removes the record. An
// engine failure aborts before record deletion, so a live container is
// never orphaned from its metadata; a container the engine already lost
// is logged as a recoverable inconsistency and deletion proceeds. Deleting
// an already-deleted sandbox succeeds, so client retries are safe.
func (o *Orchestrator) DeleteSandbox(ctx context.Context, id string, removeVolumes bool) (err error) {
	defer o.observeOp("delete", o.now(), &err)

	unlock := o.locks.Lock(id)
	defer unlock()

	sb, getErr := o.store.GetSandbox(ctx, id)
	if errors.Is(getErr, storage.ErrNotFound) {
		o.logger.Debug("delete of unknown sandbox treated as success", slog.String("sandbox_id", id))
		return nil
	}
	if getErr != nil {
		return api.NewInternalError(fmt.Sprintf("loading sandbox: %v", getErr))
	}

	log := o.logger.With(slog.String("sandbox_id", sb.ID))

	if sb.HasContainer() {
		engErr := o.engineCall("remove", func() error {
			return o.engine.RemoveContainer(ctx, sb.ContainerID, removeVolumes)
		})
		if errors.Is(engErr, engine.ErrNotFound) {
			log.Warn("container already absent during delete", slog.String("container", sb.ContainerName))
		} else if engErr != nil {
			apiErr := api.NewEngineError("remove", engErr)
			o.fail(ctx, sb, apiErr.Message)
			return apiErr
		}
	}

	if removeVolumes && sb.RepoName != "" {
		if repoErr := o.repoCall("delete", func() error {
			return o.repos.DeleteRepo(ctx, sb.RepoName)
		}); repoErr != nil {
			log.Warn("workspace repository removal failed", slog.String("repo", sb.RepoName), slog.String("error", repoErr.Error()))
		}
	}

	if delErr := o.store.DeleteSandbox(ctx, id); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
		return api.NewInternalError(fmt.Sprintf("deleting sandbox record: %v", delErr))
	}

	log.Info("sandbox deleted", slog.Bool("remove_volumes", removeVolumes))
	o.refreshStatusGauge(ctx)
	return nil
}

// GetSandboxInfo returns the merged record + live view. An unknown id
// yields (nil, nil): absence is an expected outcome for a client polling
// after a delete, not an error.
func (o *Orchestrator) GetSandboxInfo(ctx context.Context, id string) (*api.SandboxInfo, error) {
	sb, err := o.store.GetSandbox(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("loading sandbox: %v", err))
	}

	info := &api.SandboxInfo{
		Sandbox:    *sb.Clone(),
		LiveStatus: sb.Status,
	}

	if sb.HasContainer() {
		var state engine.State
		stateErr := o.engineCall("state", func() error {
			var err error
			state, err = o.engine.ContainerState(ctx, sb.ContainerID)
			return err
		})
		switch {
		case errors.Is(stateErr, engine.ErrNotFound):
			info.LiveStatus = api.StatusStopped
		case stateErr != nil:
			// Engine unreachable: present the record status.
			o.logger.Debug("live state unavailable", slog.String("sandbox_id", id), slog.String("error", stateErr.Error()))
		default:
			info.EngineState = string(state)
			info.LiveStatus = RecordStatus(state)
			if state == engine.StateRunning {
				if stats, statsErr := o.engine.ContainerStats(ctx, sb.ContainerID); statsErr == nil {
					info.Stats = &api.ContainerStats{
						CPUPercent:    stats.CPUPercent,
						MemoryUsage:   stats.MemoryUsage,
						MemoryLimit:   stats.MemoryLimit,
						MemoryPercent: stats.MemoryPercent,
						NetworkRx:     stats.NetworkRx,
						NetworkTx:     stats.NetworkTx,
						BlockRead:     stats.BlockRead,
						BlockWrite:    stats.BlockWrite,
					}
				}
			}
		}
	}

	if sb.RepoName != "" {
		if repo, repoErr := o.repos.GetRepo(ctx, sb.RepoName); repoErr == nil && repo != nil {
			info.Repo = &api.Repository{
				Name:          repo.Name,
				CloneURL:      repo.CloneURL,
				HTMLURL:       repo.HTMLURL,
				DefaultBranch: repo.DefaultBranch,
				Empty:         repo.Empty,
			}
		}
	}

	return info, nil
}

// ListSandboxes returns the owner's sandboxes, optionally filtered by
// status, in a stable order. No match yields an empty slice, never an
// error.
func (o *Orchestrator) ListSandboxes(ctx context.Context, userID string, status api.Status) ([]api.Sandbox, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, api.NewInvalidRequestError("user_id", "user_id is required")
	}
	if status != "" && !status.Valid() {
		return nil, api.NewInvalidRequestError("status", fmt.Sprintf("unknown status %q", status))
	}

	list, err := o.store.ListSandboxes(ctx, userID, ListOptions{Status: status})
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("listing sandboxes: %v", err))
	}
	if list == nil {
		list = []api.Sandbox{}
	}
	return list, nil
}

// TouchSandbox records user activity. Unknown ids are a silent no-op.
func (o *Orchestrator) TouchSandbox(ctx context.Context, id string) error {
	err := o.store.TouchSandbox(ctx, id, o.now())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return api.NewInternalError(fmt.Sprintf("touching sandbox: %v", err))
	}
	return nil
}

// ExecInSandbox runs a command inside the sandbox container.
func (o *Orchestrator) ExecInSandbox(ctx context.Context, id string, cmd []string) (api.ExecResult, error) {
	sb, err := o.get(ctx, id)
	if err != nil {
		return api.ExecResult{}, err
	}
	if !sb.HasContainer() {
		return api.ExecResult{}, noContainerError(id)
	}
	if len(cmd) == 0 {
		return api.ExecResult{}, api.NewInvalidRequestError("command", "command is required")
	}

	var res engine.ExecResult
	engErr := o.engineCall("exec", func() error {
		var err error
		res, err = o.engine.Exec(ctx, sb.ContainerID, cmd)
		return err
	})
	if errors.Is(engErr, engine.ErrNotFound) {
		return api.ExecResult{}, noContainerError(id)
	}
	if engErr != nil {
		return api.ExecResult{}, api.NewEngineError("exec", engErr)
	}

	return api.ExecResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

// Health reports whether both the record store and the container engine
// are reachable.
func (o *Orchestrator) Health(ctx context.Context) error {
	var errs []error
	if err := o.store.HealthCheck(ctx); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := o.engineCall("health", func() error {
		return o.engine.HealthCheck(ctx)
	}); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	return errors.Join(errs...)
}

// startLocked drives the starting → running transition. The caller holds
// the per-id lock. A record without a container binding (a creation that
// failed before the container existed) is re-provisioned first.
func (o *Orchestrator) startLocked(ctx context.Context, sb *api.Sandbox, phase string) error {
	if err := o.setStatus(ctx, sb, api.StatusStarting, ""); err != nil {
		return err
	}

	if !sb.HasContainer() {
		if err := o.provisionContainer(ctx, sb); err != nil {
			o.fail(ctx, sb, phase+apiMessage(err))
			return err
		}
	}

	startErr := o.engineCall("start", func() error {
		return o.engine.StartContainer(ctx, sb.ContainerID)
	})
	if errors.Is(startErr, engine.ErrNotFound) {
		// The container vanished underneath the record. Rebuild it once
		// and retry; the record keeps its identity either way.
		o.logger.Warn("container missing on start, re-provisioning",
			slog.String("sandbox_id", sb.ID), slog.String("container", sb.ContainerName))
		if err := o.provisionContainer(ctx, sb); err != nil {
			o.fail(ctx, sb, phase+apiMessage(err))
			return err
		}
		startErr = o.engineCall("start", func() error {
			return o.engine.StartContainer(ctx, sb.ContainerID)
		})
	}
	if startErr != nil {
		apiErr := api.NewEngineError("start", startErr)
		o.fail(ctx, sb, phase+apiErr.Message)
		return apiErr
	}

	return o.setStatus(ctx, sb, api.StatusRunning, "")
}

// stopLocked drives the stopping → stopped transition. The caller holds
// the per-id lock. A missing container is treated as already stopped.
func (o *Orchestrator) stopLocked(ctx context.Context, sb *api.Sandbox, grace time.Duration, phase string) error {
	if grace <= 0 {
		grace = o.cfg.StopGrace
	}

	if err := o.setStatus(ctx, sb, api.StatusStopping, ""); err != nil {
		return err
	}

	if sb.HasContainer() {
		stopCtx, cancel := context.WithTimeout(ctx, grace+graceSlack)
		defer cancel()

		stopErr := o.engineCall("stop", func() error {
			return o.engine.StopContainer(stopCtx, sb.ContainerID, grace)
		})
		switch {
		case stopErr == nil, errors.Is(stopErr, engine.ErrNotFound):
			// Already stopped or already gone: success.
		case errors.Is(stopErr, context.DeadlineExceeded):
			apiErr := api.NewTimeoutError("stop", grace)
			o.fail(ctx, sb, phase+apiErr.Message)
			return apiErr
		default:
			apiErr := api.NewEngineError("stop", stopErr)
			o.fail(ctx, sb, phase+apiErr.Message)
			return apiErr
		}
	}

	return o.setStatus(ctx, sb, api.StatusStopped, "")
}

// provisionRepo creates or clones the workspace repository. The name is
// scoped to the owner: slugs are only unique per user, while the git
// backend has one flat namespace.
func (o *Orchestrator) provisionRepo(ctx context.Context, sb *api.Sandbox, repoURL string) (*repos.Repo, error) {
	name := workspaceRepoName(sb.UserID, sb.Slug)
	opts := repos.CreateOptions{
		Description: fmt.Sprintf("workspace for sandbox %s", sb.Name),
		Private:     true,
		AutoInit:    true,
	}
	if repoURL != "" {
		var repo *repos.Repo
		err := o.repoCall("clone", func() error {
			var err error
			repo, err = o.repos.CloneRepo(ctx, repoURL, name, opts)
			return err
		})
		return repo, err
	}
	var repo *repos.Repo
	err := o.repoCall("create", func() error {
		var err error
		repo, err = o.repos.CreateRepo(ctx, name, opts)
		return err
	})
	return repo, err
}

// provisionContainer resolves placement for the record, creates the
// container, and persists the new binding and service URLs.
func (o *Orchestrator) provisionContainer(ctx context.Context, sb *api.Sandbox) error {
	spec, err := o.containerSpec(sb)
	if err != nil {
		return api.NewInternalError(err.Error())
	}

	var handle engine.Handle
	engErr := o.engineCall("create", func() error {
		var err error
		handle, err = o.engine.CreateContainer(ctx, spec)
		return err
	})
	if engErr != nil {
		return api.NewEngineError("create", engErr)
	}

	sb.ContainerID = handle.ID
	sb.ContainerName = handle.Name
	o.assignServiceURLs(sb)
	sb.UpdatedAt = o.now()

	if err := o.store.UpdateSandbox(ctx, sb); err != nil {
		return api.NewInternalError(fmt.Sprintf("persisting container binding: %v", err))
	}
	return nil
}

// containerSpec resolves the record's tier and flavor into a concrete
// engine create spec.
func (o *Orchestrator) containerSpec(sb *api.Sandbox) (engine.CreateSpec, error) {
	alloc := policy.ResolveTier(sb.ResourceTierID)

	memBytes, err := alloc.MemoryBytes()
	if err != nil {
		return engine.CreateSpec{}, fmt.Errorf("resolving tier %q: %w", sb.ResourceTierID, err)
	}
	nanoCPUs, err := alloc.NanoCPUs()
	if err != nil {
		return engine.CreateSpec{}, fmt.Errorf("resolving tier %q: %w", sb.ResourceTierID, err)
	}

	return engine.CreateSpec{
		Name:  containerName(sb.Slug),
		Image: policy.ResolveImage(sb.FlavorID, o.cfg.Environment, o.cfg.Version),
		Labels: map[string]string{
			LabelSandboxID:   sb.ID,
			LabelSandboxUser: sb.UserID,
			LabelManagedBy:   managedByValue,
		},
		Limits: engine.Limits{
			NanoCPUs:    nanoCPUs,
			MemoryBytes: memBytes,
			PidsLimit:   alloc.PidsLimit,
		},
	}, nil
}

// assignServiceURLs derives the per-sandbox service URLs when a base
// domain is configured.
func (o *Orchestrator) assignServiceURLs(sb *api.Sandbox) {
	if o.cfg.BaseDomain == "" {
		return
	}
	sb.OpencodeURL = fmt.Sprintf("https://%s-opencode.%s", sb.Slug, o.cfg.BaseDomain)
	sb.EditorURL = fmt.Sprintf("https://%s-editor.%s", sb.Slug, o.cfg.BaseDomain)
	sb.PreviewURL = fmt.Sprintf("https://%s-preview.%s", sb.Slug, o.cfg.BaseDomain)
}

// persistFailedCreate records a creation that failed downstream. The
// record is persisted in status error carrying the failure detail, and the
// caller receives it as a successful-but-errored result.
func (o *Orchestrator) persistFailedCreate(ctx context.Context, sb *api.Sandbox, apiErr *api.APIError) (*api.Sandbox, error) {
	sb.Status = api.StatusError
	sb.ErrorMessage = apiErr.Message
	sb.UpdatedAt = o.now()

	if err := o.store.CreateSandbox(ctx, sb); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, api.NewAlreadyExistsError(fmt.Sprintf("sandbox %q already exists for this user", sb.Slug))
		}
		return nil, api.NewInternalError(fmt.Sprintf("persisting failed creation: %v", err))
	}

	o.logger.Warn("sandbox creation failed downstream",
		slog.String("sandbox_id", sb.ID), slog.String("error", apiErr.Message))
	o.refreshStatusGauge(ctx)
	return sb, nil
}

// get loads a record, mapping an unknown id to the API not-found error.
func (o *Orchestrator) get(ctx context.Context, id string) (*api.Sandbox, error) {
	sb, err := o.store.GetSandbox(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, api.NewNotFoundError(id)
	}
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("loading sandbox: %v", err))
	}
	return sb, nil
}

// setStatus writes a status transition through the store and mirrors it
// on the in-memory record.
func (o *Orchestrator) setStatus(ctx context.Context, sb *api.Sandbox, status api.Status, errMsg string) error {
	if err := o.store.UpdateStatus(ctx, sb.ID, status, errMsg); err != nil {
		return api.NewInternalError(fmt.Sprintf("updating status: %v", err))
	}
	sb.Status = status
	sb.ErrorMessage = errMsg
	sb.UpdatedAt = o.now()
	return nil
}

// fail persists status error with the given message. A failure to persist
// is logged but not propagated: the original error matters more to the
// caller than the bookkeeping write.
func (o *Orchestrator) fail(ctx context.Context, sb *api.Sandbox, msg string) {
	if err := o.store.UpdateStatus(ctx, sb.ID, api.StatusError, msg); err != nil {
		o.logger.Error("persisting error status failed",
			slog.String("sandbox_id", sb.ID), slog.String("error", err.Error()))
		return
	}
	sb.Status = api.StatusError
	sb.ErrorMessage = msg
}

// engineCall instruments a container engine round trip.
func (o *Orchestrator) engineCall(call string, f func() error) error {
	start := time.Now()
	err := f()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	debug.Log("engine", "engine call finished",
		"call", call, "outcome", outcome, "duration", time.Since(start))
	observability.EngineCallsTotal.WithLabelValues(call, outcome).Inc()
	observability.EngineCallDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	return err
}

// repoCall instruments a git backend round trip.
func (o *Orchestrator) repoCall(call string, f func() error) error {
	err := f()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	debug.Log("repos", "backend call finished", "call", call, "outcome", outcome)
	observability.RepoCallsTotal.WithLabelValues(call, outcome).Inc()
	return err
}

// observeOp records operation counters and duration.
func (o *Orchestrator) observeOp(op string, start time.Time, err *error) {
	outcome := "ok"
	if err != nil && *err != nil {
		outcome = "error"
	}
	observability.OperationsTotal.WithLabelValues(op, outcome).Inc()
	observability.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// refreshStatusGauge republishes the per-status record counts.
// Best-effort: a failure only costs metric freshness.
func (o *Orchestrator) refreshStatusGauge(ctx context.Context) {
	counts, err := o.store.CountByStatus(ctx)
	if err != nil {
		return
	}
	byName := make(map[string]int, len(counts))
	for status, n := range counts {
		byName[status.String()] = n
	}
	observability.SetSandboxStatusCounts(byName)
}

// workspaceRepoName scopes a sandbox's repository name to its owner so
// same-named sandboxes of different users never collide in the backend.
func workspaceRepoName(userID, slugVal string) string {
	owner := slug.Sanitize(userID)
	if owner == "" {
		owner = "user"
	}
	return owner + "-" + slugVal
}

// containerName derives a unique engine-side name for a sandbox container.
func containerName(slugVal string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "codeopen-" + slugVal + "-" + suffix
}

// noContainerError reports a mutation against a sandbox whose container
// does not exist.
func noContainerError(id string) *api.APIError {
	return &api.APIError{
		Kind:    api.ErrorKindNotFound,
		Message: fmt.Sprintf("sandbox %s has no container", id),
	}
}

// apiMessage extracts the human-readable message from an error.
func apiMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
