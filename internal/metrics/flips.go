package metrics

import (
	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// Flips counts how often bob 2 rises through the horizontal plane of the
// pivot. Frequent flips are the usual sign of chaotic motion.
type Flips struct {
	name   string
	above  bool
	primed bool
	count  int
}

func NewFlips() *Flips {
	return &Flips{
		name: "flips",
	}
}

func (f *Flips) Name() string {
	return f.name
}

func (f *Flips) Observe(s dynamo.State, p dynamo.Params) {
	above := s.P2.Z > 0
	if f.primed && above && !f.above {
		f.count++
	}
	f.above, f.primed = above, true
}

func (f *Flips) Value() float64 {
	return float64(f.count)
}

func (f *Flips) Reset() {
	f.count = 0
	f.above = false
	f.primed = false
	f.count = 0
}

