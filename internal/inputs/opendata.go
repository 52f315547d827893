package inputs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/renameio/v2"
	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

func init() {
	register("opendata", newOpenDataSource)
}

// Single-level parameters not published in open data; they come from a
// separate constants file instead.
var opendataConstants = []string{"z", "sdor", "slor"}

const opendataConstantsURL = "https://get.ecmwf.int/repository/test-data/ai-models/opendata/constants-{resol}.nc"

// Open data is only published on the 0.25 degree grid. Fields are
// returned on the published grid as-is, so requests on any other grid
// fail instead of silently delivering the wrong resolution.
var opendataResols = map[string]string{
	"0.25/0.25": "0p25",
}

type opendataEnv struct {
	URL string `env:"ECMWF_OPENDATA_URL" envDefault:"https://data.ecmwf.int/forecasts"`
}

// opendataSource retrieves fields from the ECMWF open data file tree.
// Files are published whole per analysis; parameter and level selection
// happens client-side after download.
type opendataSource struct {
	params     Params
	baseURL    string
	httpClient *http.Client
}

func newOpenDataSource(p Params) (Source, error) {
	var cfg opendataEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("opendata input: %w", err)
	}

	src := &opendataSource{
		params:     p,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: http.DefaultClient,
	}
	return &requestBased{params: p, loader: src}, nil
}

func (s *opendataSource) where() string { return "OPENDATA" }

func (s *opendataSource) resol(r mars.Request) (string, error) {
	grid := strings.Join(r.Get("grid"), "/")
	resol, ok := opendataResols[grid]
	if !ok {
		return "", fmt.Errorf("opendata: grid %q is not published, only 0.25/0.25 is available", grid)
	}
	return resol, nil
}

func (s *opendataSource) loadPL(ctx context.Context, r mars.Request) (fields.List, error) {
	resol, err := s.resol(r)
	if err != nil {
		return nil, err
	}

	params := lower(r.Get("param"))
	levels := ints(r.Get("level"))

	// z on pressure levels is not published; gh is, and z = gh * g.
	wantZ := remove(&params, "z")
	if wantZ {
		s.params.logger().Warn("parameter 'z' on pressure levels is not available in open data, using 'gh' instead")
		if !contains(params, "gh") {
			params = append(params, "gh")
		}
	}

	all, err := s.fetchAnalysis(ctx, r, resol)
	if err != nil {
		return nil, err
	}

	out := all.SelLevtype(fields.LevtypePressure).SelParam(params...).SelLevel(levels...)
	if wantZ {
		out = MakeZFromGH(out)
		params = replace(params, "gh", "z")
	}

	if err := checkComplete(out, "PL", params, levels); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *opendataSource) loadSfc(ctx context.Context, r mars.Request) (fields.List, error) {
	resol, err := s.resol(r)
	if err != nil {
		return nil, err
	}

	params := lower(r.Get("param"))

	var constants []string
	for _, c := range opendataConstants {
		if remove(&params, c) {
			constants = append(constants, c)
		}
	}

	var out fields.List
	if len(params) > 0 {
		all, err := s.fetchAnalysis(ctx, r, resol)
		if err != nil {
			return nil, err
		}
		out = all.SelLevtype(fields.LevtypeSurface).SelParam(params...)
	}

	if len(constants) > 0 {
		s.params.logger().Warn("single level parameters are not available in open data, using the constants file instead",
			"params", constants)

		cf, err := s.fetchConstants(ctx, r, resol, constants)
		if err != nil {
			return nil, err
		}
		out = append(out, cf...)
	}

	if err := checkComplete(out, "SFC", append(params, constants...), nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *opendataSource) loadML(ctx context.Context, r mars.Request) (fields.List, error) {
	return nil, fmt.Errorf("opendata: model levels are not available")
}

// fetchAnalysis downloads (or reuses from cache) the whole analysis file
// for the request's date and time.
func (s *opendataSource) fetchAnalysis(ctx context.Context, r mars.Request, resol string) (fields.List, error) {
	date := r.First("date")
	hour, _ := strconv.Atoi(r.First("time"))

	url := fmt.Sprintf("%s/%s/%02dz/ifs/%s/oper/%s%02d0000-0h-oper-fc.nc",
		s.baseURL, date, hour, resol, date, hour)
	name := fmt.Sprintf("opendata-%s-%02d-%s.nc", date, hour, resol)

	path, err := s.cachedDownload(ctx, url, name)
	if err != nil {
		return nil, err
	}
	return fields.ReadFile(path)
}

// fetchConstants downloads the cached constants file and stamps the
// selected fields with the analysis date and time.
func (s *opendataSource) fetchConstants(ctx context.Context, r mars.Request, resol string, params []string) (fields.List, error) {
	url := strings.ReplaceAll(opendataConstantsURL, "{resol}", resol)

	path, err := s.cachedDownload(ctx, url, filepath.Base(url))
	if err != nil {
		return nil, err
	}

	all, err := fields.ReadFile(path)
	if err != nil {
		return nil, err
	}

	date, _ := strconv.Atoi(r.First("date"))
	hour, _ := strconv.Atoi(r.First("time"))

	var out fields.List
	for _, f := range all.SelParam(params...) {
		c := f.Clone()
		c.Levtype = fields.LevtypeSurface
		c.Level = 0
		c.Date = date
		c.Time = hour * 100
		c.Step = 0
		out = append(out, c)
	}
	return out, nil
}

func (s *opendataSource) cachedDownload(ctx context.Context, url, name string) (string, error) {
	if err := os.MkdirAll(s.params.CacheDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.params.CacheDir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	s.params.logger().Info("downloading", "url", url, "to", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("opendata: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("opendata: %s: status %d", url, resp.StatusCode)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return "", err
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, resp.Body); err != nil {
		return "", fmt.Errorf("opendata: %s: %w", url, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", err
	}

	return path, nil
}

// checkComplete fails when a requested parameter/level combination is
// missing from the result.
func checkComplete(l fields.List, what string, params []string, levels []int) error {
	found := make(map[string]struct{}, len(l))
	for _, f := range l {
		found[fmt.Sprintf("%s/%d", f.Param, f.Level)] = struct{}{}
	}

	if len(levels) == 0 {
		levels = []int{0}
	}

	var missing []string
	for _, p := range params {
		for _, lv := range levels {
			if _, ok := found[fmt.Sprintf("%s/%d", p, lv)]; !ok {
				missing = append(missing, p)
				break
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("the following %s parameters are not available in open data: %v", what, missing)
	}
	return nil
}

func lower(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = strings.ToLower(v)
	}
	return out
}

func ints(vals []string) []int {
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func contains(vals []string, s string) bool {
	for _, v := range vals {
		if v == s {
			return true
		}
	}
	return false
}

func remove(vals *[]string, s string) bool {
	for i, v := range *vals {
		if v == s {
			*vals = append((*vals)[:i], (*vals)[i+1:]...)
			return true
		}
	}
	return false
}

func replace(vals []string, old, new string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		if v == old {
			out[i] = new
		} else {
			out[i] = v
		}
	}
	return out
}
