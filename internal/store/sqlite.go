//go:build sqlite

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	model       TEXT NOT NULL,
	date        INTEGER NOT NULL,
	time        INTEGER NOT NULL,
	lead_time   INTEGER NOT NULL,
	input       TEXT NOT NULL,
	output      TEXT NOT NULL,
	path        TEXT NOT NULL,
	remote      INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	duration_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS assets (
	path          TEXT PRIMARY KEY,
	model         TEXT NOT NULL,
	size          INTEGER NOT NULL,
	sha256        TEXT NOT NULL DEFAULT '',
	downloaded_at TEXT NOT NULL
);
`

type sqliteStore struct {
	db *sql.DB
}

func initDB(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "ai-models.sqlite")

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't handle multiple writers well.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Ping() error {
	return s.db.Ping()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) SaveRun(r *RunRecord) error {
	if r == nil || r.ID == "" {
		return errors.New("run id is required")
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO runs
		(id, model, date, time, lead_time, input, output, path, remote, status, error, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Model, r.Date, r.Time, r.LeadTime, r.Input, r.Output, r.Path,
		boolToInt(r.Remote), r.Status, r.Error,
		r.StartedAt.UTC().Format(time.RFC3339Nano), int64(r.Duration),
	)
	return err
}

func (s *sqliteStore) GetRun(id string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, model, date, time, lead_time, input, output, path, remote, status, error, started_at, duration_ns
		FROM runs WHERE id = ?`, id)

	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *sqliteStore) ListRuns(limit int) ([]RunRecord, error) {
	q := `
		SELECT id, model, date, time, lead_time, input, output, path, remote, status, error, started_at, duration_ns
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveAsset(a *AssetRecord) error {
	if a == nil || a.Path == "" {
		return errors.New("asset path is required")
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO assets (path, model, size, sha256, downloaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.Path, a.Model, a.Size, a.SHA256, a.DownloadedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) ListAssets(model string) ([]AssetRecord, error) {
	q := `SELECT path, model, size, sha256, downloaded_at FROM assets`
	args := []any{}
	if model != "" {
		q += ` WHERE model = ?`
		args = append(args, model)
	}
	q += ` ORDER BY path`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssetRecord
	for rows.Next() {
		var (
			a  AssetRecord
			ts string
		)
		if err := rows.Scan(&a.Path, &a.Model, &a.Size, &a.SHA256, &ts); err != nil {
			return nil, err
		}
		a.DownloadedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*RunRecord, error) {
	var (
		r        RunRecord
		remote   int
		started  string
		duration int64
	)
	if err := scan(&r.ID, &r.Model, &r.Date, &r.Time, &r.LeadTime, &r.Input, &r.Output,
		&r.Path, &remote, &r.Status, &r.Error, &started, &duration); err != nil {
		return nil, err
	}
	r.Remote = remote != 0
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.Duration = time.Duration(duration)
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
