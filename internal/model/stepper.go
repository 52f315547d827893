package model

import (
	"log/slog"
	"time"
)

// Timer logs the elapsed time of a phase when stopped.
type Timer struct {
	title string
	start time.Time
}

// NewTimer starts timing a phase.
func NewTimer(title string) *Timer {
	return &Timer{title: title, start: time.Now()}
}

// Stop logs the elapsed time.
func (t *Timer) Stop() {
	slog.Info(t.title, "elapsed", time.Since(t.start).Round(time.Millisecond))
}

// Stepper reports progress and ETA across the forecast step loop.
type Stepper struct {
	step     int
	leadTime int
	numSteps int
	start    time.Time
	last     time.Time
	logger   *slog.Logger
}

// NewStepper announces the step loop and returns a progress reporter.
func NewStepper(step, leadTime int, logger *slog.Logger) *Stepper {
	if logger == nil {
		logger = slog.Default()
	}

	now := time.Now()
	s := &Stepper{
		step:     step,
		leadTime: leadTime,
		numSteps: leadTime / step,
		start:    now,
		last:     now,
		logger:   logger,
	}

	logger.Info("starting inference", "steps", s.numSteps, "lead_time_hours", leadTime)
	return s
}

// NumSteps returns the number of forecast steps.
func (s *Stepper) NumSteps() int {
	return s.numSteps
}

// Done reports the completion of step i (0-based) at forecast hour step.
func (s *Stepper) Done(i, step int) {
	now := time.Now()
	elapsed := now.Sub(s.start)
	speed := float64(i+1) / elapsed.Seconds()
	eta := time.Duration(float64(s.numSteps-i-1)/speed) * time.Second

	s.logger.Info("step done",
		"done", i+1,
		"of", s.numSteps,
		"step_hours", step,
		"took", now.Sub(s.last).Round(time.Millisecond),
		"eta", eta.Round(time.Second),
	)
	s.last = now
}

// Finish logs the loop total and per-step average.
func (s *Stepper) Finish() {
	if s.numSteps == 0 {
		return
	}
	elapsed := time.Since(s.start)
	s.logger.Info("inference finished",
		"elapsed", elapsed.Round(time.Millisecond),
		"per_step", (elapsed / time.Duration(s.numSteps)).Round(time.Millisecond),
	)
}
