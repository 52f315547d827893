package inputs

import (
	"context"
	"fmt"

	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
	"golang.org/x/sync/errgroup"
)

// levtypeLoader fetches the fields for one level type and one analysis
// datetime.
type levtypeLoader interface {
	// where names the backing service for logging.
	where() string

	loadSfc(ctx context.Context, r mars.Request) (fields.List, error)
	loadPL(ctx context.Context, r mars.Request) (fields.List, error)
	loadML(ctx context.Context, r mars.Request) (fields.List, error)
}

// requestBased turns a levtypeLoader into a Source: it builds one request
// per level type per analysis datetime, applies the model's patch, and
// fetches the three level types concurrently.
type requestBased struct {
	params Params
	loader levtypeLoader
}

func (s *requestBased) Fields(ctx context.Context) (fields.List, error) {
	log := s.params.logger()

	var sfc, pl, ml fields.List

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if len(s.params.Input.ParamSfc) == 0 {
			return nil
		}
		log.Info("loading surface fields", "from", s.loader.where())

		out, err := s.fetch(ctx, "sfc", s.params.Input.ParamSfc, nil, s.loader.loadSfc)
		if err != nil {
			return fmt.Errorf("surface fields: %w", err)
		}
		sfc = out
		return nil
	})

	g.Go(func() error {
		if len(s.params.Input.ParamPL) == 0 || len(s.params.Input.LevelPL) == 0 {
			return nil
		}
		log.Info("loading pressure fields", "from", s.loader.where())

		out, err := s.fetch(ctx, "pl", s.params.Input.ParamPL, s.params.Input.LevelPL, s.loader.loadPL)
		if err != nil {
			return fmt.Errorf("pressure fields: %w", err)
		}
		pl = out
		return nil
	})

	g.Go(func() error {
		if len(s.params.Input.ParamML) == 0 || len(s.params.Input.LevelML) == 0 {
			return nil
		}
		log.Info("loading model fields", "from", s.loader.where())

		out, err := s.fetch(ctx, "ml", s.params.Input.ParamML, s.params.Input.LevelML, s.loader.loadML)
		if err != nil {
			return fmt.Errorf("model fields: %w", err)
		}
		ml = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := append(fields.List(nil), sfc...)
	out = append(out, pl...)
	return append(out, ml...), nil
}

func (s *requestBased) fetch(
	ctx context.Context,
	levtype string,
	params []string,
	levels []int,
	load func(context.Context, mars.Request) (fields.List, error),
) (fields.List, error) {
	var out fields.List

	for _, dt := range s.params.DateTimes {
		r := mars.Request{}
		r.SetInt("date", dt.Date)
		r.SetInt("time", dt.Time)
		r.Set("levtype", levtype)
		r.Set("param", params...)
		if len(levels) > 0 {
			r.SetInt("level", levels...)
		}
		if len(s.params.Input.Grid) > 0 {
			r.Set("grid", formatGrid(s.params.Input.Grid)...)
		}
		if len(s.params.Input.Area) > 0 {
			r.Set("area", formatGrid(s.params.Input.Area)...)
		}
		for k, v := range s.params.Input.Retrieve {
			r.Set(k, v)
		}
		if s.params.Patch != nil {
			s.params.Patch(r)
		}

		fl, err := load(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, fl...)
	}

	return out, nil
}

func formatGrid(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = trimFloat(v)
	}
	return out
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
