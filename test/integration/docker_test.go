package integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/engine"
	dockerengine "github.com/codeopen/sandboxd/pkg/engine/docker"
	"github.com/codeopen/sandboxd/pkg/orchestrator"
	reposfake "github.com/codeopen/sandboxd/pkg/repos/fake"
	"github.com/codeopen/sandboxd/pkg/storage/memory"
)

// TestDockerLifecycle runs the create/start/stop/delete cycle against a
// live Docker daemon. Opt in with SANDBOXD_INTEGRATION=1; the flavor
// image must be present or pullable.
func TestDockerLifecycle(t *testing.T) {
	if os.Getenv("SANDBOXD_INTEGRATION") != "1" {
		t.Skip("set SANDBOXD_INTEGRATION=1 to run docker integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	eng, err := dockerengine.New(ctx, dockerengine.Config{})
	if err != nil {
		t.Skipf("docker daemon unavailable: %v", err)
	}
	defer eng.Close()

	orch, err := orchestrator.New(memory.New(), eng, reposfake.New(),
		slog.New(slog.DiscardHandler), orchestrator.Config{})
	if err != nil {
		t.Fatalf("creating orchestrator: %v", err)
	}

	sb, err := orch.CreateSandbox(ctx, &api.CreateSandboxRequest{
		UserID: "integration",
		Name:   "Docker Cycle",
	})
	if err != nil {
		t.Fatalf("CreateSandbox: %v", err)
	}
	// Always clean up the container, even on assertion failures.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := orch.DeleteSandbox(cleanupCtx, sb.ID, true); err != nil {
			t.Errorf("cleanup DeleteSandbox: %v", err)
		}
	}()

	if sb.Status != api.StatusRunning {
		t.Fatalf("sandbox status = %q (%s), want running", sb.Status, sb.ErrorMessage)
	}

	// The engine agrees the container is up.
	info, err := orch.GetSandboxInfo(ctx, sb.ID)
	if err != nil {
		t.Fatalf("GetSandboxInfo: %v", err)
	}
	if info.LiveStatus != api.StatusRunning {
		t.Errorf("live status = %q (engine %q), want running", info.LiveStatus, info.EngineState)
	}
	if info.Stats == nil {
		t.Error("no stats for running sandbox")
	}

	result, err := orch.ExecInSandbox(ctx, sb.ID, []string{"echo", "sandboxd"})
	if err != nil {
		t.Fatalf("ExecInSandbox: %v", err)
	}
	if result.ExitCode != 0 || result.Stdout == "" {
		t.Errorf("exec result = %+v", result)
	}

	stopped, err := orch.StopSandbox(ctx, sb.ID, 10*time.Second)
	if err != nil {
		t.Fatalf("StopSandbox: %v", err)
	}
	if stopped.Status != api.StatusStopped {
		t.Errorf("status after stop = %q, want stopped", stopped.Status)
	}

	restarted, err := orch.StartSandbox(ctx, sb.ID)
	if err != nil {
		t.Fatalf("StartSandbox: %v", err)
	}
	if restarted.Status != api.StatusRunning {
		t.Errorf("status after start = %q, want running", restarted.Status)
	}

	states, err := eng.ListContainers(ctx, engine.Filter{
		Labels: map[string]string{"codeopen.sandbox.id": sb.ID},
	})
	if err != nil {
		t.Fatalf("ListContainers: %v", err)
	}
	if len(states) != 1 {
		t.Errorf("containers labeled for sandbox = %d, want 1", len(states))
	}
}
