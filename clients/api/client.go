// Package api is a REST client for the syncboard gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/syncboard/syncboard/internal/identity"
	"github.com/syncboard/syncboard/internal/task"
	"github.com/syncboard/syncboard/internal/tracker"
)

// envelope mirrors the gateway response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client calls the gateway REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL (e.g. "http://127.0.0.1:17420").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// SetToken installs the session token sent as a bearer credential.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current session token.
func (c *Client) Token() string { return c.token }

// AuthResult is the payload of register and login.
type AuthResult struct {
	User         *identity.User `json:"user"`
	SessionToken string         `json:"session_token"`
}

// Register creates an account and stores the issued session token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.SessionToken
	return &out, nil
}

// Login authenticates and stores the issued session token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.SessionToken
	return &out, nil
}

// Logout destroys the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in tracker.CreateTaskInput) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns the full task collection.
func (c *Client) ListTasks(ctx context.Context) ([]*task.Task, error) {
	var out []*task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask returns a task with resolved dependencies and dependents.
func (c *Client) GetTask(ctx context.Context, id string) (*tracker.TaskDetail, error) {
	var out tracker.TaskDetail
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, patch tracker.TaskPatch) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask removes a task. version 0 skips the staleness guard.
func (c *Client) DeleteTask(ctx context.Context, id string, version int64) error {
	path := "/api/tasks/" + id
	if version != 0 {
		path = fmt.Sprintf("%s?version=%d", path, version)
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// CompleteTask marks a task done.
func (c *Client) CompleteTask(ctx context.Context, id string, version int64) (*task.Task, error) {
	path := "/api/tasks/" + id + "/complete"
	if version != 0 {
		path = fmt.Sprintf("%s?version=%d", path, version)
	}
	var out task.Task
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyTasks returns tasks assigned to the session's user.
func (c *Client) MyTasks(ctx context.Context) ([]*task.Task, error) {
	var out []*task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/mine", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BlockedTasks returns non-done tasks with unsatisfied dependencies.
func (c *Client) BlockedTasks(ctx context.Context) ([]*task.Task, error) {
	var out []*task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/blocked", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("%s: %s", env.Error, env.Message)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
