package outputs

import (
	"github.com/inovacc/aimodels/internal/fields"
)

func init() {
	register("none", newNoneOutput)
}

// noneOutput discards all fields.
type noneOutput struct{}

func newNoneOutput(p Params) (Output, error) {
	p.logger().Info("results will not be written")
	return &noneOutput{}, nil
}

func (o *noneOutput) Write(f *fields.Field) (map[string]string, string, error) {
	return nil, "", nil
}

func (o *noneOutput) Finalise() error {
	return nil
}
