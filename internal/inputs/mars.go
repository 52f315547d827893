package inputs

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

func init() {
	register("mars", newMarsSource)
}

// marsEnv is the ECMWF web API configuration.
type marsEnv struct {
	URL   string `env:"ECMWF_API_URL" envDefault:"https://api.ecmwf.int/v1"`
	Key   string `env:"ECMWF_API_KEY"`
	Email string `env:"ECMWF_API_EMAIL"`
}

// marsSource retrieves fields from the MARS archive through the ECMWF
// web API: submit, poll, download.
type marsSource struct {
	params Params
	client *queuedClient
}

func newMarsSource(p Params) (Source, error) {
	var cfg marsEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("mars input: %w", err)
	}

	headers := map[string]string{
		"X-ECMWF-KEY":   cfg.Key,
		"X-ECMWF-EMAIL": cfg.Email,
	}

	src := &marsSource{
		params: p,
		client: newQueuedClient(cfg.URL, headers, p.logger()),
	}
	return &requestBased{params: p, loader: src}, nil
}

func (s *marsSource) where() string { return "MARS" }

func (s *marsSource) loadSfc(ctx context.Context, r mars.Request) (fields.List, error) {
	return s.load(ctx, r)
}

func (s *marsSource) loadPL(ctx context.Context, r mars.Request) (fields.List, error) {
	return s.load(ctx, r)
}

func (s *marsSource) loadML(ctx context.Context, r mars.Request) (fields.List, error) {
	return s.load(ctx, r)
}

func (s *marsSource) load(ctx context.Context, r mars.Request) (fields.List, error) {
	// MARS uses levelist, the canonical form of the level key.
	if lv := r.Get("level"); len(lv) > 0 {
		r.Set("levelist", lv...)
		delete(r, "level")
	}

	body := requestBody(r, map[string]any{
		"verb":   "retrieve",
		"format": "netcdf",
	})

	path, err := s.client.retrieve(ctx, "services/mars/requests", body, s.params.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("mars: %w", err)
	}

	return fields.ReadFile(path)
}
