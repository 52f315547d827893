// Package remote runs inference on the hosted ai-models server instead
// of locally: the input fields are uploaded, the task is queued, and the
// result file is downloaded when ready.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/inovacc/aimodels/internal/config"
)

const (
	requestTimeout  = 300 * time.Second
	pollInterval    = 5 * time.Second
	maxPollFailures = 5
	maxPollBackoff  = 60 * time.Second
)

// ErrUnauthorized is returned when the server rejects the API token.
var ErrUnauthorized = errors.New("remote: unauthorized, check your API token")

// TaskProgress is the server-side progress of a queued task.
type TaskProgress struct {
	Total  int    `json:"total"`
	Step   int    `json:"step"`
	ETA    string `json:"eta,omitempty"`
	Status string `json:"status,omitempty"`
}

type taskStatus struct {
	Status   string        `json:"status"`
	Href     string        `json:"href"`
	ID       string        `json:"id,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Progress *TaskProgress `json:"progress,omitempty"`
}

// Client talks to the remote inference API.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewClient resolves the server URL and token. Explicit environment
// variables win over api.yaml; the token is mandatory.
func NewClient(env config.Env, logger *slog.Logger) (*Client, error) {
	cfg, err := config.LoadAPI()
	if err != nil {
		return nil, err
	}

	baseURL := env.RemoteURL
	if baseURL == "" {
		baseURL = cfg.URL
	}
	if baseURL == "" {
		baseURL = config.DefaultAPIURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	token := env.RemoteToken
	if token == "" {
		token = cfg.Token
	}
	if token == "" {
		path, _ := config.APIConfigPath()
		return nil, fmt.Errorf("remote: missing token, set it in %s or AI_MODELS_REMOTE_TOKEN", path)
	}

	logger.Info("using remote server", "url", baseURL)

	return &Client{
		baseURL:      baseURL,
		token:        token,
		httpClient:   &http.Client{Timeout: requestTimeout},
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// Models lists the model names available on the server.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	data, err := c.get(ctx, "models")
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("remote: decoding model list: %w", err)
	}
	return names, nil
}

// Metadata fetches the named parameters of a model version.
func (c *Client) Metadata(ctx context.Context, model, version string, params []string) (map[string]any, error) {
	data, err := c.post(ctx, fmt.Sprintf("metadata/%s/%s", model, version), params)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("remote: decoding metadata: %w", err)
	}
	return out, nil
}

// Run uploads inputFile, submits the task described by cfg, polls until
// the result is ready and downloads it to outputFile. The progress
// callback, when non-nil, receives server-side progress updates.
func (c *Client) Run(ctx context.Context, cfg map[string]any, inputFile, outputFile string, progress func(TaskProgress)) error {
	st, err := c.upload(ctx, inputFile)
	if err != nil {
		return err
	}
	if st.Status != "success" {
		return taskError("upload", st)
	}

	c.logger.Info("submitting inference request")

	st, err = c.postStatus(ctx, st.Href, cfg)
	if err != nil {
		return err
	}
	if st.Status != "queued" {
		return taskError("submit", st)
	}

	c.logger.Info("request queued", "id", st.ID)

	href, err := c.poll(ctx, st, progress)
	if err != nil {
		return err
	}

	return c.download(ctx, href, outputFile)
}

func (c *Client) poll(ctx context.Context, st taskStatus, progress func(TaskProgress)) (string, error) {
	lastStatus := st.Status
	backoff := c.pollInterval
	failures := 0

	for {
		next, err := c.getStatus(ctx, st.Href)
		if err != nil {
			// Transient errors are retried with capped backoff; a bad
			// token never recovers.
			if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
				return "", err
			}
			failures++
			if failures > maxPollFailures {
				return "", err
			}

			c.logger.Warn("status check failed, retrying", "attempt", failures, "error", err)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxPollBackoff {
				backoff = maxPollBackoff
			}
			continue
		}
		st = next
		failures = 0
		backoff = c.pollInterval

		switch st.Status {
		case "ready":
			c.logger.Info("request is ready")
			return st.Href, nil
		case "failed", "aborted":
			return "", taskError("run", st)
		}

		if st.Status != lastStatus {
			c.logger.Info("request status changed", "status", st.Status)
			lastStatus = st.Status
		}

		if st.Progress != nil && progress != nil {
			progress(*st.Progress)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) upload(ctx context.Context, path string) (taskStatus, error) {
	f, err := os.Open(path)
	if err != nil {
		return taskStatus{}, err
	}
	defer f.Close()

	c.logger.Info("uploading input file", "path", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.join("upload"), f)
	if err != nil {
		return taskStatus{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	return c.doStatus(req)
}

func (c *Client) download(ctx context.Context, href, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.join(href), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: downloading result: %s", resp.Status)
	}

	pf, err := renameio.NewPendingFile(target)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if _, err := io.Copy(pf, resp.Body); err != nil {
		return err
	}

	c.logger.Debug("result written", "path", target)

	return pf.CloseAtomicallyReplace()
}

func (c *Client) get(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.join(href), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, href string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.join(href), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) getStatus(ctx context.Context, href string) (taskStatus, error) {
	data, err := c.get(ctx, href)
	if err != nil {
		return taskStatus{}, err
	}
	return decodeStatus(data)
}

func (c *Client) postStatus(ctx context.Context, href string, body any) (taskStatus, error) {
	data, err := c.post(ctx, href, body)
	if err != nil {
		return taskStatus{}, err
	}
	return decodeStatus(data)
}

func (c *Client) doStatus(req *http.Request) (taskStatus, error) {
	data, err := c.do(req)
	if err != nil {
		return taskStatus{}, err
	}
	return decodeStatus(data)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote: %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}

	return data, nil
}

func (c *Client) join(href string) string {
	// Absolute hrefs returned by the server are used as-is.
	if u, err := url.Parse(href); err == nil && u.IsAbs() {
		return href
	}

	base, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + href
	}
	rel, err := url.Parse(href)
	if err != nil {
		return c.baseURL + href
	}
	return base.ResolveReference(rel).String()
}

func decodeStatus(data []byte) (taskStatus, error) {
	var st taskStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return taskStatus{}, fmt.Errorf("remote: decoding status: %w", err)
	}
	st.Status = strings.ToLower(st.Status)
	return st, nil
}

func taskError(stage string, st taskStatus) error {
	if st.Reason != "" {
		return fmt.Errorf("remote: %s failed: %s: %s", stage, st.Status, st.Reason)
	}
	return fmt.Errorf("remote: %s failed: %s", stage, st.Status)
}
