package inputs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/inovacc/aimodels/internal/mars"
)

const defaultPollInterval = 5 * time.Second

// queuedClient talks to retrieval services that queue requests: submit a
// request, poll until it completes, download the result.
type queuedClient struct {
	baseURL      string
	headers      map[string]string
	httpClient   *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

// statusResponse is the service reply for submissions and polls.
type statusResponse struct {
	Status string `json:"status"`
	Href   string `json:"href,omitempty"`
	Result string `json:"result,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func newQueuedClient(baseURL string, headers map[string]string, logger *slog.Logger) *queuedClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &queuedClient{
		baseURL:      baseURL,
		headers:      headers,
		httpClient:   &http.Client{Timeout: 300 * time.Second},
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// retrieve submits body to endpoint, waits for completion and downloads
// the result into cacheDir. It returns the local file path.
func (c *queuedClient) retrieve(ctx context.Context, endpoint string, body map[string]any, cacheDir string) (string, error) {
	resp, err := c.postJSON(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	c.logger.Info("retrieval submitted", "status", resp.Status)

	lastStatus := resp.Status
	for {
		switch resp.Status {
		case "complete", "ready":
			return c.download(ctx, resp.Result, cacheDir)
		case "failed", "aborted":
			if resp.Reason != "" {
				return "", fmt.Errorf("retrieval failed: %s", resp.Reason)
			}
			return "", fmt.Errorf("retrieval failed")
		}

		if resp.Status != lastStatus {
			c.logger.Info("retrieval status", "status", resp.Status)
			lastStatus = resp.Status
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		resp, err = c.getJSON(ctx, resp.Href)
		if err != nil {
			return "", err
		}
	}
}

func (c *queuedClient) postJSON(ctx context.Context, href string, body map[string]any) (statusResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return statusResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.join(href), bytes.NewReader(data))
	if err != nil {
		return statusResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *queuedClient) getJSON(ctx context.Context, href string) (statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.join(href), nil)
	if err != nil {
		return statusResponse{}, err
	}

	return c.do(req)
}

func (c *queuedClient) do(req *http.Request) (statusResponse, error) {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return statusResponse{}, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return statusResponse{}, fmt.Errorf("%s: unauthorized, check your API key", req.URL.Host)
	}
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusResponse{}, fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, payload)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return statusResponse{}, fmt.Errorf("%s: decode response: %w", req.URL, err)
	}
	out.Status = strings.ToLower(out.Status)

	return out, nil
}

func (c *queuedClient) download(ctx context.Context, href, cacheDir string) (string, error) {
	if href == "" {
		return "", fmt.Errorf("retrieval completed without a result")
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(cacheDir, uuid.NewString()+".nc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.join(href), nil)
	if err != nil {
		return "", err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", href, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", href, resp.StatusCode)
	}

	pending, err := renameio.NewPendingFile(target, renameio.WithPermissions(0o644))
	if err != nil {
		return "", err
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", href, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", err
	}

	return target, nil
}

func (c *queuedClient) join(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	u, err := url.JoinPath(c.baseURL, href)
	if err != nil {
		return c.baseURL + strings.TrimPrefix(href, "/")
	}
	return u
}

// requestBody renders a request as a JSON-friendly map: single values are
// scalars, multiple values arrays.
func requestBody(r mars.Request, extra map[string]any) map[string]any {
	out := make(map[string]any, len(r)+len(extra))
	for k, v := range r {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
