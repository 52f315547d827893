package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"
)

// Manager resolves and downloads the asset files of one model into a
// local directory. All methods are safe for concurrent use.
type Manager struct {
	// dir is the asset directory.
	dir string

	// urlTemplate expands "{file}" to the asset path.
	urlTemplate string

	httpClient HTTPClient
	logger     *slog.Logger

	// retryWait is the initial delay before retrying a failed download.
	retryWait time.Duration

	// downloadMu serializes Download calls within the process; the lock
	// file serializes across processes.
	downloadMu sync.Mutex
}

// NewManager creates an asset manager rooted at dir. urlTemplate may be
// empty for models whose assets cannot be fetched.
func NewManager(dir, urlTemplate string, client HTTPClient, logger *slog.Logger) *Manager {
	if client == nil {
		client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:         dir,
		urlTemplate: urlTemplate,
		httpClient:  client,
		logger:      logger,
		retryWait:   InitialBackoff,
	}
}

// Dir returns the asset directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the absolute path of one asset file.
func (m *Manager) Path(spec FileSpec) string {
	p, err := filepath.Abs(filepath.Join(m.dir, spec.Path))
	if err != nil {
		return filepath.Join(m.dir, spec.Path)
	}
	return p
}

// Paths returns the absolute paths of all asset files.
func (m *Manager) Paths(files []FileSpec) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = m.Path(f)
	}
	return out
}

// Missing returns the asset files not present locally.
func (m *Manager) Missing(files []FileSpec) []FileSpec {
	var out []FileSpec
	for _, f := range files {
		if _, err := os.Stat(m.Path(f)); err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Check fails with ErrMissing when any asset file is absent.
func (m *Manager) Check(files []FileSpec) error {
	if missing := m.Missing(files); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, missing[0].Path)
	}
	return nil
}

// Download fetches the missing asset files. Files are written to a
// temporary path and renamed into place so a partial download is never
// visible at the final path.
func (m *Manager) Download(ctx context.Context, files []FileSpec, opts ...DownloadOption) error {
	cfg := newDownloadConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	todo := files
	if !cfg.force {
		todo = m.Missing(files)
	}
	if len(todo) == 0 {
		return nil
	}

	if m.urlTemplate == "" {
		return ErrNoDownloadURL
	}

	m.downloadMu.Lock()
	defer m.downloadMu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("assets: create %s: %w", m.dir, err)
	}

	lock, err := newFileLock(filepath.Join(m.dir, ".download.lock"), DefaultLockTimeout)
	if err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("assets: %w", err)
	}
	defer lock.Unlock()

	var (
		completed  atomic.Int64
		downloaded atomic.Int64
	)

	report := func(file string) {
		if cfg.progressFn == nil {
			return
		}
		cfg.progressFn(Progress{
			FilesTotal:      len(todo),
			FilesCompleted:  int(completed.Load()),
			BytesDownloaded: downloaded.Load(),
			CurrentFile:     file,
		})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for _, spec := range todo {
		g.Go(func() error {
			n, err := m.downloadOne(ctx, spec)
			if err != nil {
				return err
			}
			completed.Add(1)
			downloaded.Add(n)
			report(spec.Path)
			return nil
		})
	}

	return g.Wait()
}

func (m *Manager) downloadOne(ctx context.Context, spec FileSpec) (int64, error) {
	url := strings.ReplaceAll(m.urlTemplate, "{file}", spec.Path)
	target := m.Path(spec)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("assets: create %s: %w", filepath.Dir(target), err)
	}

	m.logger.Info("downloading asset", "file", spec.Path, "url", url)

	var (
		n   int64
		err error
	)

	backoff := m.retryWait
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
			backoff = min(backoff*2, MaxBackoff)
		}

		n, err = m.fetch(ctx, url, target, spec)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		// A checksum failure is deterministic; retrying cannot fix it.
		if errors.Is(err, ErrHashMismatch) {
			return 0, err
		}

		m.logger.Warn("asset download failed", "file", spec.Path, "attempt", attempt+1, "error", err)
	}

	return 0, fmt.Errorf("%w: %s: %v", ErrNetwork, spec.Path, err)
}

func (m *Manager) fetch(ctx context.Context, url, target string, spec FileSpec) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	pending, err := renameio.NewPendingFile(target, renameio.WithPermissions(0o644))
	if err != nil {
		return 0, err
	}
	defer pending.Cleanup()

	var (
		w io.Writer = pending
		h hash.Hash
	)
	if spec.SHA256 != "" {
		h = sha256.New()
		w = io.MultiWriter(pending, h)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return 0, err
	}

	if spec.Size > 0 && n != spec.Size {
		return 0, fmt.Errorf("size mismatch: got %d, want %d", n, spec.Size)
	}
	if h != nil {
		if got := hex.EncodeToString(h.Sum(nil)); got != spec.SHA256 {
			return 0, fmt.Errorf("%w: %s", ErrHashMismatch, spec.Path)
		}
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, err
	}

	return n, nil
}
