package inputs

import (
	"context"
	"fmt"

	"github.com/inovacc/aimodels/internal/fields"
)

func init() {
	register("file", newFileSource)
}

// fileSource reads the input fields from a local NetCDF file.
type fileSource struct {
	path string
}

func newFileSource(p Params) (Source, error) {
	if p.File == "" {
		return nil, fmt.Errorf("file input requires --file")
	}
	return &fileSource{path: p.File}, nil
}

func (s *fileSource) Fields(ctx context.Context) (fields.List, error) {
	return fields.ReadFile(s.path)
}
