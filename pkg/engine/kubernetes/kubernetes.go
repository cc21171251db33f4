// Package kubernetes adapts agent-sandbox Sandbox custom resources to the
// engine.Engine contract. A "container" here is a Sandbox CR; the
// agent-sandbox controller owns the pod underneath it.
//
// The CR model has no pause or in-place restart, and exec/stats go through
// the pod API rather than the CR, so those verbs report
// engine.ErrUnsupported and the orchestrator surfaces that to callers.
package kubernetes

import (
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"

	"github.com/codeopen/sandboxd/pkg/engine"
)

const sandboxContainerName = "sandbox"

// Config holds cluster connection settings.
type Config struct {
	// Namespace is where Sandbox CRs are created (default "sandboxd").
	Namespace string
}

// Engine is the agent-sandbox implementation of engine.Engine.
type Engine struct {
	client    client.Client
	namespace string
}

var _ engine.Engine = (*Engine)(nil)

// NewScheme returns a runtime.Scheme with the agent-sandbox types registered.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := sandboxv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register sandbox types: %w", err)
	}
	return scheme, nil
}

// New builds an Engine from the ambient kubeconfig (in-cluster config or
// KUBECONFIG, per controller-runtime's loading rules).
func New(cfg Config) (*Engine, error) {
	restCfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	scheme, err := NewScheme()
	if err != nil {
		return nil, err
	}
	c, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return NewWithClient(c, cfg.Namespace), nil
}

// NewWithClient wraps an existing client. Tests use this with the
// controller-runtime fake.
func NewWithClient(c client.Client, namespace string) *Engine {
	if namespace == "" {
		namespace = "sandboxd"
	}
	return &Engine{client: c, namespace: namespace}
}

// CreateContainer creates a Sandbox CR. The controller schedules the pod,
// so unlike the docker adapter the workload starts as soon as the CR
// exists; StartContainer is then a readiness formality.
func (e *Engine) CreateContainer(ctx context.Context, spec engine.CreateSpec) (engine.Handle, error) {
	ctr := corev1.Container{
		Name:       sandboxContainerName,
		Image:      spec.Image,
		Command:    spec.Cmd,
		WorkingDir: spec.WorkingDir,
		Env:        envVars(spec.Env),
		Resources: corev1.ResourceRequirements{
			Limits: resourceLimits(spec.Limits),
		},
	}

	sb := &sandboxv1alpha1.Sandbox{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: e.namespace,
			Labels:    spec.Labels,
		},
		Spec: sandboxv1alpha1.SandboxSpec{
			PodTemplate: sandboxv1alpha1.PodTemplate{
				ObjectMeta: sandboxv1alpha1.PodMetadata{
					Labels: spec.Labels,
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{ctr},
				},
			},
		},
	}

	if err := e.client.Create(ctx, sb); err != nil {
		return engine.Handle{}, fmt.Errorf("creating sandbox %s: %w", spec.Name, err)
	}
	return engine.Handle{ID: spec.Name, Name: spec.Name}, nil
}

// StartContainer verifies the Sandbox CR exists; the controller already
// runs the pod for any live CR.
func (e *Engine) StartContainer(ctx context.Context, id string) error {
	sb := &sandboxv1alpha1.Sandbox{}
	if err := e.client.Get(ctx, e.key(id), sb); err != nil {
		return e.wrapErr("starting sandbox", id, err)
	}
	return nil
}

// StopContainer deletes the Sandbox CR. There is no stopped-but-present
// state in the CR model; a later start recreates the resource. The grace
// timeout is the controller's concern and is ignored here.
func (e *Engine) StopContainer(ctx context.Context, id string, _ time.Duration) error {
	return e.deleteSandbox(ctx, "stopping sandbox", id)
}

func (e *Engine) RestartContainer(ctx context.Context, id string, _ time.Duration) error {
	return fmt.Errorf("restarting sandbox %s: %w", id, engine.ErrUnsupported)
}

func (e *Engine) PauseContainer(ctx context.Context, id string) error {
	return fmt.Errorf("pausing sandbox %s: %w", id, engine.ErrUnsupported)
}

func (e *Engine) UnpauseContainer(ctx context.Context, id string) error {
	return fmt.Errorf("unpausing sandbox %s: %w", id, engine.ErrUnsupported)
}

// RemoveContainer deletes the Sandbox CR. removeVolumes is implicit: the
// controller garbage-collects claims with the CR.
func (e *Engine) RemoveContainer(ctx context.Context, id string, _ bool) error {
	return e.deleteSandbox(ctx, "removing sandbox", id)
}

func (e *Engine) ContainerState(ctx context.Context, id string) (engine.State, error) {
	sb := &sandboxv1alpha1.Sandbox{}
	if err := e.client.Get(ctx, e.key(id), sb); err != nil {
		return "", e.wrapErr("inspecting sandbox", id, err)
	}
	if !sb.DeletionTimestamp.IsZero() {
		return engine.StateRemoving, nil
	}
	if isReady(sb) {
		return engine.StateRunning, nil
	}
	return engine.StateCreating, nil
}

func (e *Engine) ContainerStats(ctx context.Context, id string) (engine.Stats, error) {
	return engine.Stats{}, fmt.Errorf("stats for sandbox %s: %w", id, engine.ErrUnsupported)
}

func (e *Engine) Exec(ctx context.Context, id string, cmd []string) (engine.ExecResult, error) {
	return engine.ExecResult{}, fmt.Errorf("exec in sandbox %s: %w", id, engine.ErrUnsupported)
}

func (e *Engine) ListContainers(ctx context.Context, filter engine.Filter) ([]engine.Handle, error) {
	var list sandboxv1alpha1.SandboxList
	opts := []client.ListOption{client.InNamespace(e.namespace)}
	if len(filter.Labels) > 0 {
		opts = append(opts, client.MatchingLabels(filter.Labels))
	}
	if err := e.client.List(ctx, &list, opts...); err != nil {
		return nil, fmt.Errorf("listing sandboxes: %w", err)
	}
	handles := make([]engine.Handle, 0, len(list.Items))
	for i := range list.Items {
		name := list.Items[i].Name
		handles = append(handles, engine.Handle{ID: name, Name: name})
	}
	return handles, nil
}

func (e *Engine) HealthCheck(ctx context.Context) error {
	var list sandboxv1alpha1.SandboxList
	if err := e.client.List(ctx, &list, client.InNamespace(e.namespace), client.Limit(1)); err != nil {
		return fmt.Errorf("kubernetes api unreachable: %w", err)
	}
	return nil
}

func (e *Engine) Info(ctx context.Context) (engine.Info, error) {
	return engine.Info{Name: "kubernetes"}, nil
}

func (e *Engine) deleteSandbox(ctx context.Context, verb, id string) error {
	sb := &sandboxv1alpha1.Sandbox{
		ObjectMeta: metav1.ObjectMeta{Name: id, Namespace: e.namespace},
	}
	if err := e.client.Delete(ctx, sb); err != nil {
		return e.wrapErr(verb, id, err)
	}
	return nil
}

func (e *Engine) key(id string) types.NamespacedName {
	return types.NamespacedName{Name: id, Namespace: e.namespace}
}

func (e *Engine) wrapErr(verb, id string, err error) error {
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%s %s: %w", verb, id, engine.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", verb, id, err)
}

// isReady reports whether the Sandbox carries a Ready condition set True.
func isReady(sb *sandboxv1alpha1.Sandbox) bool {
	for _, c := range sb.Status.Conditions {
		if c.Type == string(sandboxv1alpha1.SandboxConditionReady) && c.Status == metav1.ConditionTrue {
			return true
		}
	}
	return false
}

// envVars converts docker-style KEY=VALUE pairs to pod env entries.
func envVars(env []string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}
	out := make([]corev1.EnvVar, 0, len(env))
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		out = append(out, corev1.EnvVar{Name: k, Value: v})
	}
	return out
}

// resourceLimits converts engine-native numeric limits to pod resource
// quantities. Zero limits are omitted rather than pinned to zero.
func resourceLimits(l engine.Limits) corev1.ResourceList {
	list := corev1.ResourceList{}
	if l.NanoCPUs > 0 {
		// Nano-CPUs to millicores.
		list[corev1.ResourceCPU] = *resource.NewMilliQuantity(l.NanoCPUs/1_000_000, resource.DecimalSI)
	}
	if l.MemoryBytes > 0 {
		list[corev1.ResourceMemory] = *resource.NewQuantity(l.MemoryBytes, resource.BinarySI)
	}
	return list
}
