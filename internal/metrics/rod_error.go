package metrics

import (
	"math"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// RodError is the worst rod length violation seen over a run.
type RodError struct {
	name  string
	worst float64
}

func NewRodError() *RodError {
	return &RodError{
		name: "rod_error",
	}
}

func (r *RodError) Name() string {
	return r.name
}

func (r *RodError) Observe(s dynamo.State, p dynamo.Params) {
	e1, e2 := s.RodErrors(p)
	r.worst = math.Max(r.worst, math.Max(e1, e2))
}

func (r *RodError) Value() float64 {
	return r.worst
}

func (r *RodError) Reset() {
	r.worst = 0
}
