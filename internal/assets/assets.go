// Package assets resolves, downloads and verifies model weight files.
package assets

import (
	"errors"
	"net/http"
	"time"
)

// Concurrency limits for asset downloads.
const (
	// DefaultConcurrency is the default number of concurrent downloads.
	DefaultConcurrency = 4

	// MaxConcurrency is the maximum allowed concurrent downloads.
	MaxConcurrency = 16

	// DefaultRequestTimeout is the per-request HTTP timeout.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultLockTimeout is the maximum wait for the download lock.
	DefaultLockTimeout = 30 * time.Second
)

// Retry tuning for failed downloads.
const (
	MaxRetries     = 3
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 4 * time.Second
)

// Sentinel errors; check with errors.Is().
var (
	// ErrMissing indicates a required asset file is absent locally.
	ErrMissing = errors.New("assets: missing asset file")

	// ErrHashMismatch indicates a downloaded file failed verification.
	ErrHashMismatch = errors.New("assets: hash verification failed")

	// ErrNetwork indicates a download failed after retries.
	ErrNetwork = errors.New("assets: network error")

	// ErrNoDownloadURL indicates the model declares no download source.
	ErrNoDownloadURL = errors.New("assets: model has no download URL")
)

// FileSpec describes one asset file a model needs.
type FileSpec struct {
	// Path is the file path relative to the asset directory.
	Path string `json:"path"`

	// Size is the expected size in bytes, zero when unknown.
	Size int64 `json:"size,omitempty"`

	// SHA256 is the expected lowercase hex digest, empty when unknown.
	SHA256 string `json:"sha256,omitempty"`
}

// HTTPClient is the subset of *http.Client the downloader uses.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Progress reports download progress.
type Progress struct {
	// FilesTotal and FilesCompleted count asset files.
	FilesTotal     int
	FilesCompleted int

	// BytesDownloaded is the cumulative bytes fetched this session.
	BytesDownloaded int64

	// CurrentFile is the most recently finished file.
	CurrentFile string
}
