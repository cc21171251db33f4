package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/codeopen/sandboxd/pkg/api"
)

// apiClient is a thin wrapper over the sandboxd HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		base: strings.TrimRight(flagServer, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// do issues the request and decodes a JSON response into out (when out is
// non-nil). Non-2xx responses are decoded as the API error envelope.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != nil {
			return fmt.Errorf("%s", envelope.Error.Message)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *apiClient) createSandbox(ctx context.Context, req *api.CreateSandboxRequest) (*api.Sandbox, error) {
	var sb api.Sandbox
	if err := c.do(ctx, http.MethodPost, "/v1/sandboxes", req, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *apiClient) listSandboxes(ctx context.Context, userID, status string) ([]api.Sandbox, error) {
	q := url.Values{"user_id": {userID}}
	if status != "" {
		q.Set("status", status)
	}
	var resp api.ListSandboxesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/sandboxes?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sandboxes, nil
}

func (c *apiClient) getInfo(ctx context.Context, id string) (*api.SandboxInfo, error) {
	var info api.SandboxInfo
	if err := c.do(ctx, http.MethodGet, "/v1/sandboxes/"+url.PathEscape(id), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// lifecycleAction hits one of the POST verb endpoints that return the
// updated sandbox record.
func (c *apiClient) lifecycleAction(ctx context.Context, id, verb string, body any) (*api.Sandbox, error) {
	var sb api.Sandbox
	path := "/v1/sandboxes/" + url.PathEscape(id) + "/" + verb
	if err := c.do(ctx, http.MethodPost, path, body, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

func (c *apiClient) deleteSandbox(ctx context.Context, id string, volumes bool) error {
	path := "/v1/sandboxes/" + url.PathEscape(id)
	if volumes {
		path += "?volumes=true"
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *apiClient) exec(ctx context.Context, id, command string) (*api.ExecResult, error) {
	var result api.ExecResult
	path := "/v1/sandboxes/" + url.PathEscape(id) + "/exec"
	if err := c.do(ctx, http.MethodPost, path, &api.ExecRequest{Command: command}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// printJSON renders v for --json output.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
