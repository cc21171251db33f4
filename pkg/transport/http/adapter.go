package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/transport"
)

// Adapter serves the sandbox lifecycle API over HTTP. It routes requests
// to the Lifecycle implementation and serializes results as JSON.
type Adapter struct {
	lifecycle transport.Lifecycle
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 1 << 20, // 1 MB
	}
}

// NewAdapter creates an HTTP adapter routing to the given Lifecycle.
func NewAdapter(lifecycle transport.Lifecycle, cfg Config) *Adapter {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		lifecycle: lifecycle,
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /v1/sandboxes", a.handleCreate)
	a.mux.HandleFunc("GET /v1/sandboxes", a.handleList)
	a.mux.HandleFunc("GET /v1/sandboxes/{id}", a.handleGet)
	a.mux.HandleFunc("DELETE /v1/sandboxes/{id}", a.handleDelete)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/start", a.handleStart)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/stop", a.handleStop)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/restart", a.handleRestart)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/pause", a.handlePause)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/unpause", a.handleUnpause)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/touch", a.handleTouch)
	a.mux.HandleFunc("POST /v1/sandboxes/{id}/exec", a.handleExec)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// handleCreate handles POST /v1/sandboxes.
func (a *Adapter) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSandboxRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	sb, err := a.lifecycle.CreateSandbox(r.Context(), &req)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sb)
}

// handleList handles GET /v1/sandboxes?user_id=...&status=...
func (a *Adapter) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.lifecycle.ListSandboxes(r.Context(), q.Get("user_id"), api.Status(q.Get("status")))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ListSandboxesResponse{Sandboxes: list})
}

// handleGet handles GET /v1/sandboxes/{id}.
func (a *Adapter) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	info, err := a.lifecycle.GetSandboxInfo(r.Context(), id)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	if info == nil {
		transport.WriteAPIError(w, api.NewNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleDelete handles DELETE /v1/sandboxes/{id}?volumes=true.
func (a *Adapter) handleDelete(w http.ResponseWriter, r *http.Request) {
	removeVolumes := r.URL.Query().Get("volumes") == "true"
	if err := a.lifecycle.DeleteSandbox(r.Context(), r.PathValue("id"), removeVolumes); err != nil {
		transport.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) handleStart(w http.ResponseWriter, r *http.Request) {
	sb, err := a.lifecycle.StartSandbox(r.Context(), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (a *Adapter) handleStop(w http.ResponseWriter, r *http.Request) {
	grace, ok := a.decodeGrace(w, r)
	if !ok {
		return
	}
	sb, err := a.lifecycle.StopSandbox(r.Context(), r.PathValue("id"), grace)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (a *Adapter) handleRestart(w http.ResponseWriter, r *http.Request) {
	grace, ok := a.decodeGrace(w, r)
	if !ok {
		return
	}
	sb, err := a.lifecycle.RestartSandbox(r.Context(), r.PathValue("id"), grace)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (a *Adapter) handlePause(w http.ResponseWriter, r *http.Request) {
	sb, err := a.lifecycle.PauseSandbox(r.Context(), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (a *Adapter) handleUnpause(w http.ResponseWriter, r *http.Request) {
	sb, err := a.lifecycle.UnpauseSandbox(r.Context(), r.PathValue("id"))
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (a *Adapter) handleTouch(w http.ResponseWriter, r *http.Request) {
	if err := a.lifecycle.TouchSandbox(r.Context(), r.PathValue("id")); err != nil {
		transport.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExec handles POST /v1/sandboxes/{id}/exec. The command is a single
// shell-quoted string, split into argv before dispatch.
func (a *Adapter) handleExec(w http.ResponseWriter, r *http.Request) {
	var req api.ExecRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	argv, err := shellquote.Split(req.Command)
	if err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("command", "malformed command: "+err.Error()))
		return
	}

	res, execErr := a.lifecycle.ExecInSandbox(r.Context(), r.PathValue("id"), argv)
	if execErr != nil {
		transport.WriteError(w, execErr)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.lifecycle.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes a JSON request body, enforcing content type and size
// limits. Reports whether decoding succeeded; the error response has
// already been written otherwise.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

// decodeGrace extracts the optional graceful timeout body used by stop and
// restart. An absent or empty body means the server default (zero).
func (a *Adapter) decodeGrace(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.StopSandboxRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return 0, true
	}
	if err != nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return 0, false
	}
	if req.TimeoutSeconds < 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("timeout_seconds", "timeout_seconds must not be negative"))
		return 0, false
	}
	return time.Duration(req.TimeoutSeconds) * time.Second, true
}

// writeJSON serializes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
