package model

import (
	"context"
	"fmt"

	"github.com/inovacc/aimodels/internal/fields"
	"github.com/inovacc/aimodels/internal/mars"
)

func init() {
	Register("persistence", func() Model { return &persistence{} })
}

// persistence is the reference model: it carries the analysis forward
// unchanged at every step. It exercises the full pipeline (inputs, step
// loop, outputs, archiving) without any weights.
type persistence struct{}

func (p *persistence) Spec() Spec {
	return Spec{
		Name:    "persistence",
		Version: 1,
		Expver:  "0001",
		Step:    6,
		Input: mars.Input{
			ParamPL:  []string{"t", "u", "v", "z", "q"},
			LevelPL:  []int{1000, 925, 850, 700, 500, 250, 50},
			ParamSfc: []string{"2t", "msl", "10u", "10v", "z"},
			Grid:     []float64{0.25, 0.25},
			Area:     []float64{90, 0, -90, 360},
		},
		ConstantFields: []string{"z"},
	}
}

func (p *persistence) Predict(ctx context.Context, run *Run) error {
	start, ok := run.Fields.StartTime()
	if !ok {
		return fmt.Errorf("persistence: no input fields")
	}

	var analysis fields.List
	for _, f := range run.Fields {
		if f.ValidTime().Unix() == start {
			analysis = append(analysis, f)
		}
	}

	step := run.Spec.Step
	stepper := run.Stepper(step)

	for i, hour := 0, step; hour <= run.LeadTime; i, hour = i+1, hour+step {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, f := range analysis {
			out := f.Clone()
			out.Step = hour
			if err := run.Write(out); err != nil {
				return fmt.Errorf("persistence: step %d: %w", hour, err)
			}
		}

		stepper.Done(i, hour)
	}

	stepper.Finish()
	return nil
}
