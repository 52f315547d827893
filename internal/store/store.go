// Package store persists run history and the downloaded-asset index.
// The default backend is bbolt; build with -tags sqlite for SQLite.
package store

import (
	"time"
)

// RunRecord is one forecast run.
type RunRecord struct {
	ID        string        `json:"id"`
	Model     string        `json:"model"`
	Date      int           `json:"date"`
	Time      int           `json:"time"`
	LeadTime  int           `json:"lead_time"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Path      string        `json:"path"`
	Remote    bool          `json:"remote,omitempty"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Run statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AssetRecord is one downloaded asset file.
type AssetRecord struct {
	Path         string    `json:"path"`
	Model        string    `json:"model"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Store is the persistence interface shared by the bolt and sqlite
// backends.
type Store interface {
	Ping() error
	Close() error

	SaveRun(r *RunRecord) error
	GetRun(id string) (*RunRecord, error)
	ListRuns(limit int) ([]RunRecord, error)

	SaveAsset(a *AssetRecord) error
	ListAssets(model string) ([]AssetRecord, error)
}

// Open opens the store under dir using the compiled-in backend.
func Open(dir string) (Store, error) {
	return initDB(dir)
}
