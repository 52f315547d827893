//go:build !sqlite

package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	boltBucketRuns   = "runs"   // key: run ID -> RunRecord JSON
	boltBucketAssets = "assets" // key: asset path -> AssetRecord JSON
	boltBucketIndex  = "run_index" // key: StartedAt RFC3339Nano -> run ID
)

type boltStore struct {
	db *bbolt.DB
}

func initDB(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "ai-models.bolt")

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{boltBucketRuns, boltBucketAssets, boltBucketIndex} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &boltStore{db: db}, nil
}

func (b *boltStore) Ping() error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return nil
	})
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

func (b *boltStore) SaveRun(r *RunRecord) error {
	if r == nil || r.ID == "" {
		return errors.New("run id is required")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(boltBucketRuns)).Put([]byte(r.ID), data); err != nil {
			return err
		}

		key := r.StartedAt.UTC().Format(time.RFC3339Nano) + "/" + r.ID
		return tx.Bucket([]byte(boltBucketIndex)).Put([]byte(key), []byte(r.ID))
	})
}

func (b *boltStore) GetRun(id string) (*RunRecord, error) {
	var out *RunRecord

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(boltBucketRuns)).Get([]byte(id))
		if data == nil {
			return nil
		}

		var r RunRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		out = &r
		return nil
	})

	return out, err
}

func (b *boltStore) ListRuns(limit int) ([]RunRecord, error) {
	var out []RunRecord

	err := b.db.View(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(boltBucketRuns))
		c := tx.Bucket([]byte(boltBucketIndex)).Cursor()

		// Newest first.
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}

			data := runs.Get(id)
			if data == nil {
				continue
			}

			var r RunRecord
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})

	return out, err
}

func (b *boltStore) SaveAsset(a *AssetRecord) error {
	if a == nil || a.Path == "" {
		return errors.New("asset path is required")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketAssets)).Put([]byte(a.Path), data)
	})
}

func (b *boltStore) ListAssets(model string) ([]AssetRecord, error) {
	var out []AssetRecord

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketAssets)).ForEach(func(k, v []byte) error {
			var a AssetRecord
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if model == "" || a.Model == model {
				out = append(out, a)
			}
			return nil
		})
	})

	return out, err
}
