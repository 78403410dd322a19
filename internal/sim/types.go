package sim

import (
	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// RunState gates whether a frame driver advances the simulation.
type RunState int32

const (
	Paused RunState = iota
	Running
)

func (r RunState) String() string {
	switch r {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Sample is one recorded step of a headless run.
type Sample struct {
	Step uint64
	Time float64
	P1   dynamo.Vec3
	P2   dynamo.Vec3
}

// Result is the outcome of RunSteps or RunPaced.
type Result struct {
	Params     dynamo.Params
	Samples    []Sample
	Final      dynamo.State
	Metrics    map[string]float64
	StepsTaken int
}

// Times returns the simulated time of every sample.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}

// Series extracts one coordinate of bob 2 over the run.
func (r *Result) Series(axis func(dynamo.Vec3) float64) []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = axis(s.P2)
	}
	return out
}
