// Package docker adapts the Docker Engine API to the engine.Engine
// contract. It talks to the daemon through the official SDK client and
// normalizes Docker's error and state vocabulary into the engine package's.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/codeopen/sandboxd/pkg/engine"
)

// execPollInterval is how often a running exec is re-inspected while
// waiting for its exit code.
const execPollInterval = 100 * time.Millisecond

// Config holds Docker daemon connection settings.
type Config struct {
	// Host overrides the daemon address (e.g. "unix:///run/docker.sock").
	// Empty means the SDK's environment-based default.
	Host string
}

// Engine is the Docker implementation of engine.Engine.
type Engine struct {
	cli *client.Client
}

var _ engine.Engine = (*Engine)(nil)

// New connects to the Docker daemon and verifies it is reachable.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("pinging docker daemon: %w", err)
	}
	return &Engine{cli: cli}, nil
}

// Close releases the underlying client connection.
func (e *Engine) Close() error {
	return e.cli.Close()
}

// CreateContainer pulls the image if absent and creates (but does not
// start) a container per the spec.
func (e *Engine) CreateContainer(ctx context.Context, spec engine.CreateSpec) (engine.Handle, error) {
	if err := e.ensureImage(ctx, spec.Image); err != nil {
		return engine.Handle{}, err
	}

	cfg := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Cmd,
		Env:        spec.Env,
		WorkingDir: spec.WorkingDir,
		Labels:     spec.Labels,
	}
	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	hostCfg.Resources.NanoCPUs = spec.Limits.NanoCPUs
	hostCfg.Resources.Memory = spec.Limits.MemoryBytes
	if spec.Limits.PidsLimit > 0 {
		pids := spec.Limits.PidsLimit
		hostCfg.Resources.PidsLimit = &pids
	}

	resp, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, spec.Name)
	if err != nil {
		return engine.Handle{}, fmt.Errorf("creating container %s: %w", spec.Name, err)
	}
	return engine.Handle{ID: resp.ID, Name: spec.Name}, nil
}

// ensureImage pulls the image only when the daemon doesn't already have it.
func (e *Engine) ensureImage(ctx context.Context, ref string) error {
	if _, err := e.cli.ImageInspect(ctx, ref); err == nil {
		return nil
	}
	rc, err := e.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image %s: %w", ref, err)
	}
	defer rc.Close()
	// The pull is not complete until the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pulling image %s: %w", ref, err)
	}
	return nil
}

func (e *Engine) StartContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return wrapErr("starting container", id, err)
	}
	return nil
}

func (e *Engine) StopContainer(ctx context.Context, id string, timeout time.Duration) error {
	if err := e.cli.ContainerStop(ctx, id, stopOptions(timeout)); err != nil {
		return wrapErr("stopping container", id, err)
	}
	return nil
}

func (e *Engine) RestartContainer(ctx context.Context, id string, timeout time.Duration) error {
	if err := e.cli.ContainerRestart(ctx, id, stopOptions(timeout)); err != nil {
		return wrapErr("restarting container", id, err)
	}
	return nil
}

func (e *Engine) PauseContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerPause(ctx, id); err != nil {
		return wrapErr("pausing container", id, err)
	}
	return nil
}

func (e *Engine) UnpauseContainer(ctx context.Context, id string) error {
	if err := e.cli.ContainerUnpause(ctx, id); err != nil {
		return wrapErr("unpausing container", id, err)
	}
	return nil
}

func (e *Engine) RemoveContainer(ctx context.Context, id string, removeVolumes bool) error {
	opts := container.RemoveOptions{Force: true, RemoveVolumes: removeVolumes}
	if err := e.cli.ContainerRemove(ctx, id, opts); err != nil {
		return wrapErr("removing container", id, err)
	}
	return nil
}

func (e *Engine) ContainerState(ctx context.Context, id string) (engine.State, error) {
	inspect, err := e.cli.ContainerInspect(ctx, id)
	if err != nil {
		return "", wrapErr("inspecting container", id, err)
	}
	if inspect.State == nil {
		return engine.StateError, nil
	}
	return stateFromStatus(inspect.State.Status), nil
}

// ContainerStats takes a single non-streaming sample. The daemon waits
// roughly a second so the pre-CPU window is populated for the percentage
// calculation.
func (e *Engine) ContainerStats(ctx context.Context, id string) (engine.Stats, error) {
	resp, err := e.cli.ContainerStats(ctx, id, false)
	if err != nil {
		return engine.Stats{}, wrapErr("reading container stats", id, err)
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return engine.Stats{}, fmt.Errorf("decoding stats for container %s: %w", id, err)
	}
	return statsFromResponse(&raw), nil
}

// Exec runs cmd inside the container and captures its output. The call
// blocks until the command exits or ctx is done.
func (e *Engine) Exec(ctx context.Context, id string, cmd []string) (engine.ExecResult, error) {
	created, err := e.cli.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return engine.ExecResult{}, wrapErr("creating exec", id, err)
	}

	attach, err := e.cli.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return engine.ExecResult{}, wrapErr("attaching exec", id, err)
	}
	defer attach.Close()

	// Closing the attach unblocks StdCopy when the context dies mid-exec.
	watchdog := make(chan struct{})
	defer close(watchdog)
	go func() {
		select {
		case <-ctx.Done():
			attach.Close()
		case <-watchdog:
		}
	}()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		if ctx.Err() != nil {
			return engine.ExecResult{}, ctx.Err()
		}
		return engine.ExecResult{}, fmt.Errorf("reading exec output for container %s: %w", id, err)
	}

	exitCode, err := e.waitExec(ctx, created.ID)
	if err != nil {
		return engine.ExecResult{}, fmt.Errorf("inspecting exec for container %s: %w", id, err)
	}
	return engine.ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// waitExec polls the exec until it reports an exit code. Output streams
// can close a beat before the daemon records the exit, hence the loop.
func (e *Engine) waitExec(ctx context.Context, execID string) (int, error) {
	for {
		inspect, err := e.cli.ContainerExecInspect(ctx, execID)
		if err != nil {
			return 0, err
		}
		if !inspect.Running {
			return inspect.ExitCode, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(execPollInterval):
		}
	}
}

func (e *Engine) ListContainers(ctx context.Context, filter engine.Filter) ([]engine.Handle, error) {
	args := filters.NewArgs()
	for k, v := range filter.Labels {
		args.Add("label", k+"="+v)
	}
	list, err := e.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	handles := make([]engine.Handle, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		handles = append(handles, engine.Handle{ID: c.ID, Name: name})
	}
	return handles, nil
}

func (e *Engine) HealthCheck(ctx context.Context) error {
	if _, err := e.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

func (e *Engine) Info(ctx context.Context) (engine.Info, error) {
	info, err := e.cli.Info(ctx)
	if err != nil {
		return engine.Info{}, fmt.Errorf("reading docker info: %w", err)
	}
	return engine.Info{
		Name:    "docker",
		Version: info.ServerVersion,
		OS:      info.OSType,
		Arch:    info.Architecture,
	}, nil
}

// wrapErr normalizes SDK errors, translating the daemon's "no such
// container" into engine.ErrNotFound.
func wrapErr(verb, id string, err error) error {
	if client.IsErrNotFound(err) {
		return fmt.Errorf("%s %s: %w", verb, id, engine.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", verb, id, err)
}

// stopOptions converts a grace duration to Docker's optional
// whole-seconds timeout. Non-positive means the daemon default.
func stopOptions(timeout time.Duration) container.StopOptions {
	if timeout <= 0 {
		return container.StopOptions{}
	}
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return container.StopOptions{Timeout: &secs}
}

// stateFromStatus maps Docker's inspect status vocabulary onto engine
// states. Unrecognized statuses pass through so the caller can decide.
func stateFromStatus(status string) engine.State {
	switch status {
	case "created":
		return engine.StateCreating
	case "running":
		return engine.StateRunning
	case "paused":
		return engine.StatePaused
	case "restarting":
		return engine.StateRestarting
	case "removing":
		return engine.StateRemoving
	case "exited":
		return engine.StateExited
	case "dead":
		return engine.StateDead
	default:
		return engine.State(status)
	}
}

// statsFromResponse reduces a raw daemon stats sample to the fields the
// orchestrator reports. The CPU math mirrors what `docker stats` shows.
func statsFromResponse(raw *container.StatsResponse) engine.Stats {
	var s engine.Stats

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	online := float64(raw.CPUStats.OnlineCPUs)
	if online == 0 {
		online = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
	}
	if cpuDelta > 0 && sysDelta > 0 {
		s.CPUPercent = cpuDelta / sysDelta * online * 100.0
	}

	usage := raw.MemoryStats.Usage
	// Page cache inflates the raw number; subtract it the way the CLI does
	// (cgroup v2 reports inactive_file, v1 reports cache).
	if v, ok := raw.MemoryStats.Stats["inactive_file"]; ok && v < usage {
		usage -= v
	} else if v, ok := raw.MemoryStats.Stats["cache"]; ok && v < usage {
		usage -= v
	}
	s.MemoryUsage = int64(usage)
	s.MemoryLimit = int64(raw.MemoryStats.Limit)
	if raw.MemoryStats.Limit > 0 {
		s.MemoryPercent = float64(usage) / float64(raw.MemoryStats.Limit) * 100.0
	}

	for _, nw := range raw.Networks {
		s.NetworkRx += int64(nw.RxBytes)
		s.NetworkTx += int64(nw.TxBytes)
	}

	for _, entry := range raw.BlkioStats.IoServiceBytesRecursive {
		switch strings.ToLower(entry.Op) {
		case "read":
			s.BlockRead += int64(entry.Value)
		case "write":
			s.BlockWrite += int64(entry.Value)
		}
	}
	return s
}
