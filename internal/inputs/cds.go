package inputs

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

func init() {
	register("cds", newCDSSource)
}

// cdsEnv is the climate data store API configuration.
type cdsEnv struct {
	URL string `env:"CDSAPI_URL" envDefault:"https://cds.climate.copernicus.eu/api"`
	Key string `env:"CDSAPI_KEY"`
}

// cdsSource retrieves ERA5 reanalysis fields from the climate data store.
type cdsSource struct {
	params Params
	client *queuedClient
}

func newCDSSource(p Params) (Source, error) {
	var cfg cdsEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("cds input: %w", err)
	}

	src := &cdsSource{
		params: p,
		client: newQueuedClient(cfg.URL, map[string]string{"PRIVATE-TOKEN": cfg.Key}, p.logger()),
	}
	return &requestBased{params: p, loader: src}, nil
}

func (s *cdsSource) where() string { return "CDS" }

func (s *cdsSource) loadSfc(ctx context.Context, r mars.Request) (fields.List, error) {
	return s.load(ctx, "reanalysis-era5-single-levels", r)
}

func (s *cdsSource) loadPL(ctx context.Context, r mars.Request) (fields.List, error) {
	return s.load(ctx, "reanalysis-era5-pressure-levels", r)
}

func (s *cdsSource) loadML(ctx context.Context, r mars.Request) (fields.List, error) {
	return nil, fmt.Errorf("cds: model levels are not available")
}

func (s *cdsSource) load(ctx context.Context, dataset string, r mars.Request) (fields.List, error) {
	body := requestBody(r, map[string]any{
		"product_type": "reanalysis",
		"data_format":  "netcdf",
	})

	path, err := s.client.retrieve(ctx, "resources/"+dataset, body, s.params.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("cds: %s: %w", dataset, err)
	}

	return fields.ReadFile(path)
}
