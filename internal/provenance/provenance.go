// Package provenance records how a forecast was produced: the binary,
// its arguments, the host, and the checksums of the model assets.
package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/google/renameio/v2"
)

// Record captures everything needed to reproduce a run.
type Record struct {
	Executable string            `json:"executable"`
	Args       []string          `json:"args"`
	Hostname   string            `json:"hostname"`
	OS         string            `json:"os"`
	Arch       string            `json:"arch"`
	GoVersion  string            `json:"go_version"`
	Module     string            `json:"module,omitempty"`
	Version    string            `json:"version,omitempty"`
	Deps       map[string]string `json:"deps,omitempty"`
	Assets     map[string]string `json:"assets,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Gather builds a Record for the current process. Asset checksums are
// added separately with AddAssets.
func Gather() *Record {
	rec := &Record{
		Args:      os.Args,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		StartedAt: time.Now().UTC(),
	}

	if exe, err := os.Executable(); err == nil {
		rec.Executable = exe
	}
	if host, err := os.Hostname(); err == nil {
		rec.Hostname = host
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		rec.Module = info.Main.Path
		rec.Version = info.Main.Version
		rec.Deps = make(map[string]string, len(info.Deps))
		for _, dep := range info.Deps {
			rec.Deps[dep.Path] = dep.Version
		}
	}

	return rec
}

// AddAssets records the SHA-256 of each asset file used by the run.
func (r *Record) AddAssets(paths []string) error {
	if r.Assets == nil {
		r.Assets = make(map[string]string, len(paths))
	}
	for _, path := range paths {
		sum, err := fileSHA256(path)
		if err != nil {
			return fmt.Errorf("checksumming %s: %w", path, err)
		}
		r.Assets[path] = sum
	}
	return nil
}

// WriteFile finalises the record and writes it as JSON, atomically.
func (r *Record) WriteFile(path string) error {
	r.FinishedAt = time.Now().UTC()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(data, '\n'), 0o644)
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
