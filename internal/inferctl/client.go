package inferctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inferd/pkg/types"
)

// Client talks to a running inferd server over its JSON API.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a client for addr. Bare host:port values get an http
// scheme prepended; a bare :port targets localhost.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		base: normalizeAddr(addr),
		http: &http.Client{Timeout: timeout},
	}
}

func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = "http://127.0.0.1:8000"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

// APIError is the server's error payload plus the HTTP status it came with.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/models/status", nil, &out)
	return out, err
}

func (c *Client) Fetch(ctx context.Context, id string) (types.FetchResponse, error) {
	var out types.FetchResponse
	err := c.do(ctx, http.MethodPost, "/v1/models/fetch", types.FetchRequest{ModelID: id}, &out)
	return out, err
}

func (c *Client) Purge(ctx context.Context) (types.PurgeResponse, error) {
	var out types.PurgeResponse
	err := c.do(ctx, http.MethodDelete, "/v1/models/purge", nil, &out)
	return out, err
}

func (c *Client) Execute(ctx context.Context, task types.TaskType, req types.ExecuteRequest) (types.ExecuteResponse, error) {
	var out types.ExecuteResponse
	err := c.do(ctx, http.MethodPost, "/v1/execute/"+string(task), req, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
			return &APIError{Code: resp.StatusCode, Message: payload.Error}
		}
		return &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
