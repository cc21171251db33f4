package kubernetes

import (
	"context"
	"errors"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"

	"github.com/codeopen/sandboxd/pkg/engine"
)

func newTestEngine(t *testing.T) (*Engine, client.Client) {
	t.Helper()
	scheme, err := NewScheme()
	if err != nil {
		t.Fatalf("NewScheme: %v", err)
	}
	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&sandboxv1alpha1.Sandbox{}).
		Build()
	return NewWithClient(c, "test-ns"), c
}

func markReady(t *testing.T, c client.Client, name string) {
	t.Helper()
	sb := &sandboxv1alpha1.Sandbox{}
	key := client.ObjectKey{Name: name, Namespace: "test-ns"}
	if err := c.Get(context.Background(), key, sb); err != nil {
		t.Fatalf("markReady: get sandbox: %v", err)
	}
	sb.Status.Conditions = []metav1.Condition{{
		Type:               string(sandboxv1alpha1.SandboxConditionReady),
		Status:             metav1.ConditionTrue,
		LastTransitionTime: metav1.Now(),
		Reason:             "Ready",
	}}
	if err := c.Status().Update(context.Background(), sb); err != nil {
		t.Fatalf("markReady: update status: %v", err)
	}
}

func TestCreateContainerBuildsSandboxCR(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	h, err := e.CreateContainer(ctx, engine.CreateSpec{
		Name:  "codeopen-demo-abc12345",
		Image: "codeopen/fullstack:latest",
		Cmd:   []string{"sleep", "infinity"},
		Env:   []string{"SANDBOX_USER=u-1", "EMPTY="},
		Labels: map[string]string{
			"codeopen.sandbox.id": "sb-1",
		},
		Limits: engine.Limits{NanoCPUs: 2_000_000_000, MemoryBytes: 4 * 1024 * 1024 * 1024},
	})
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if h.ID != "codeopen-demo-abc12345" || h.Name != h.ID {
		t.Errorf("handle = %+v, want id and name %q", h, "codeopen-demo-abc12345")
	}

	sb := &sandboxv1alpha1.Sandbox{}
	key := client.ObjectKey{Name: h.ID, Namespace: "test-ns"}
	if err := c.Get(ctx, key, sb); err != nil {
		t.Fatalf("Sandbox CR not found: %v", err)
	}
	if sb.Labels["codeopen.sandbox.id"] != "sb-1" {
		t.Errorf("CR labels = %v, want codeopen.sandbox.id=sb-1", sb.Labels)
	}

	containers := sb.Spec.PodTemplate.Spec.Containers
	if len(containers) != 1 {
		t.Fatalf("pod template containers = %d, want 1", len(containers))
	}
	ctr := containers[0]
	if ctr.Image != "codeopen/fullstack:latest" {
		t.Errorf("image = %q", ctr.Image)
	}
	if len(ctr.Env) != 2 || ctr.Env[0].Name != "SANDBOX_USER" || ctr.Env[0].Value != "u-1" {
		t.Errorf("env = %v", ctr.Env)
	}
	cpu := ctr.Resources.Limits["cpu"]
	if cpu.MilliValue() != 2000 {
		t.Errorf("cpu limit = %s, want 2000m", cpu.String())
	}
	mem := ctr.Resources.Limits["memory"]
	if mem.Value() != 4*1024*1024*1024 {
		t.Errorf("memory limit = %s, want 4Gi", mem.String())
	}
}

func TestContainerStateLifecycle(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContainer(ctx, engine.CreateSpec{Name: "sb-state", Image: "img"}); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}

	// Before the controller reports readiness the CR is still creating.
	state, err := e.ContainerState(ctx, "sb-state")
	if err != nil {
		t.Fatalf("ContainerState: %v", err)
	}
	if state != engine.StateCreating {
		t.Errorf("state = %q, want %q", state, engine.StateCreating)
	}

	markReady(t, c, "sb-state")
	state, err = e.ContainerState(ctx, "sb-state")
	if err != nil {
		t.Fatalf("ContainerState after ready: %v", err)
	}
	if state != engine.StateRunning {
		t.Errorf("state = %q, want %q", state, engine.StateRunning)
	}

	if _, err := e.ContainerState(ctx, "no-such-sandbox"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("ContainerState(unknown) = %v, want ErrNotFound", err)
	}
}

func TestStartRequiresExistingCR(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContainer(ctx, engine.CreateSpec{Name: "sb-start", Image: "img"}); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := e.StartContainer(ctx, "sb-start"); err != nil {
		t.Errorf("StartContainer on live CR: %v", err)
	}
	if err := e.StartContainer(ctx, "gone"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("StartContainer(unknown) = %v, want ErrNotFound", err)
	}
}

func TestStopDeletesCR(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContainer(ctx, engine.CreateSpec{Name: "sb-stop", Image: "img"}); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := e.StopContainer(ctx, "sb-stop", 0); err != nil {
		t.Fatalf("StopContainer: %v", err)
	}

	sb := &sandboxv1alpha1.Sandbox{}
	err := c.Get(ctx, client.ObjectKey{Name: "sb-stop", Namespace: "test-ns"}, sb)
	if err == nil {
		t.Error("Sandbox CR still exists after stop")
	}

	// A second stop reports not found; the orchestrator treats that as done.
	if err := e.StopContainer(ctx, "sb-stop", 0); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("second StopContainer = %v, want ErrNotFound", err)
	}
}

func TestRemoveDeletesCR(t *testing.T) {
	e, c := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.CreateContainer(ctx, engine.CreateSpec{Name: "sb-rm", Image: "img"}); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := e.RemoveContainer(ctx, "sb-rm", true); err != nil {
		t.Fatalf("RemoveContainer: %v", err)
	}
	sb := &sandboxv1alpha1.Sandbox{}
	if err := c.Get(ctx, client.ObjectKey{Name: "sb-rm", Namespace: "test-ns"}, sb); err == nil {
		t.Error("Sandbox CR still exists after remove")
	}
}

func TestListContainersFiltersByLabel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, spec := range []engine.CreateSpec{
		{Name: "sb-a", Image: "img", Labels: map[string]string{"codeopen.sandbox.user": "alice"}},
		{Name: "sb-b", Image: "img", Labels: map[string]string{"codeopen.sandbox.user": "bob"}},
	} {
		if _, err := e.CreateContainer(ctx, spec); err != nil {
			t.Fatalf("CreateContainer %s: %v", spec.Name, err)
		}
	}

	all, err := e.ListContainers(ctx, engine.Filter{})
	if err != nil {
		t.Fatalf("ListContainers: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered list = %d entries, want 2", len(all))
	}

	alice, err := e.ListContainers(ctx, engine.Filter{
		Labels: map[string]string{"codeopen.sandbox.user": "alice"},
	})
	if err != nil {
		t.Fatalf("ListContainers filtered: %v", err)
	}
	if len(alice) != 1 || alice[0].Name != "sb-a" {
		t.Errorf("filtered list = %+v, want just sb-a", alice)
	}
}

func TestUnsupportedVerbs(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.PauseContainer(ctx, "x"); !errors.Is(err, engine.ErrUnsupported) {
		t.Errorf("PauseContainer = %v, want ErrUnsupported", err)
	}
	if err := e.UnpauseContainer(ctx, "x"); !errors.Is(err, engine.ErrUnsupported) {
		t.Errorf("UnpauseContainer = %v, want ErrUnsupported", err)
	}
	if err := e.RestartContainer(ctx, "x", 0); !errors.Is(err, engine.ErrUnsupported) {
		t.Errorf("RestartContainer = %v, want ErrUnsupported", err)
	}
	if _, err := e.ContainerStats(ctx, "x"); !errors.Is(err, engine.ErrUnsupported) {
		t.Errorf("ContainerStats = %v, want ErrUnsupported", err)
	}
	if _, err := e.Exec(ctx, "x", []string{"ls"}); !errors.Is(err, engine.ErrUnsupported) {
		t.Errorf("Exec = %v, want ErrUnsupported", err)
	}
}

func TestHealthCheck(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}
