package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/pillbot/internal/api"
)

// Client talks to the pillbot REST API with basic auth
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !env.Success {
		return fmt.Errorf("%s %s: %s", method, path, env.Error)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) ListReminders(ctx context.Context) ([]api.ReminderResponse, error) {
	var out []api.ReminderResponse
	err := c.do(ctx, http.MethodGet, "/api/reminders", nil, &out)
	return out, err
}

func (c *Client) CreateReminder(ctx context.Context, req api.ReminderRequest) (api.ReminderResponse, error) {
	var out api.ReminderResponse
	err := c.do(ctx, http.MethodPost, "/api/reminders", req, &out)
	return out, err
}

func (c *Client) SetEnabled(ctx context.Context, id string, enabled bool) (api.ReminderResponse, error) {
	var out api.ReminderResponse
	err := c.do(ctx, http.MethodPatch, "/api/reminders/"+url.PathEscape(id)+"/enabled", api.EnabledRequest{Enabled: &enabled}, &out)
	return out, err
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/reminders/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Upcoming(ctx context.Context, id string, count int) ([]time.Time, error) {
	var out []time.Time
	err := c.do(ctx, http.MethodGet, "/api/reminders/"+url.PathEscape(id)+"/upcoming?count="+strconv.Itoa(count), nil, &out)
	return out, err
}

func (c *Client) Schedule(ctx context.Context, limit int) ([]api.OccurrenceResponse, error) {
	var out []api.OccurrenceResponse
	err := c.do(ctx, http.MethodGet, "/api/schedule?limit="+strconv.Itoa(limit), nil, &out)
	return out, err
}

func (c *Client) Pending(ctx context.Context) ([]api.TriggerResponse, error) {
	var out []api.TriggerResponse
	err := c.do(ctx, http.MethodGet, "/api/pending", nil, &out)
	return out, err
}

func (c *Client) Reset(ctx context.Context) (int, error) {
	var out struct {
		Scheduled int `json:"scheduled"`
	}
	err := c.do(ctx, http.MethodPost, "/api/reset", nil, &out)
	return out.Scheduled, err
}
