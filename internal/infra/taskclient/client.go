package taskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// Client talks to the remote task API over HTTP. It implements
// tasks.Client.
type Client struct {
	baseURL   string
	publicKey string
	http      *http.Client
}

// New returns a Client for baseURL, authenticating with the backend
// public key when one is set.
func New(baseURL, publicKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), publicKey: publicKey, http: httpClient}
}

type errorBody struct {
	Error string `json:"error"`
}

// CreateTask submits p. Every failure, remote or local, comes back as a
// *tasks.CreationError.
func (c *Client) CreateTask(ctx context.Context, p tasks.Params) (tasks.TaskID, error) {
	if p == nil {
		return "", &tasks.CreationError{Message: "params are required", Err: tasks.ErrInvalidParams}
	}
	if err := p.Validate(); err != nil {
		return "", &tasks.CreationError{Message: "invalid params", Err: err}
	}

	body, err := json.Marshal(tasks.EncodeParams(p))
	if err != nil {
		return "", &tasks.CreationError{Message: "encode request", Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/tasks/create", bytes.NewReader(body))
	if err != nil {
		return "", &tasks.CreationError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &tasks.CreationError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &tasks.CreationError{Message: "read response", Err: err}
	}

	var out struct {
		tasks.CreateResult
		errorBody
	}
	decodeErr := json.Unmarshal(data, &out)
	if out.Error != "" {
		return "", &tasks.CreationError{Message: out.Error}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &tasks.CreationError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}
	if decodeErr != nil {
		return "", &tasks.CreationError{Message: "decode response", Err: decodeErr}
	}
	if out.TaskID == "" {
		return "", &tasks.CreationError{Message: "response has no taskId"}
	}
	return out.TaskID, nil
}

// Status reads the snapshot of id. Errors are plain; the poller wraps
// them as transport errors.
func (c *Client) Status(ctx context.Context, id tasks.TaskID) (tasks.Snapshot, error) {
	q := url.Values{}
	q.Set("taskId", string(id))
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/tasks/status?"+q.Encode(), nil)
	if err != nil {
		return tasks.Snapshot{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return tasks.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return tasks.Snapshot{}, fmt.Errorf("%w: %s", tasks.ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&eb)
		return tasks.Snapshot{}, fmt.Errorf("status %d: %s", resp.StatusCode, eb.Error)
	}

	var snap tasks.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return tasks.Snapshot{}, fmt.Errorf("decode status: %w", err)
	}
	return snap, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.publicKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.publicKey)
	}
	return req, nil
}
