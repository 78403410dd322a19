package metrics

import (
	"math"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// mechanicalEnergy tracks total energy of the bobs, estimating velocity
// from consecutive positions. Masses only enter here; the dynamics ignore
// them.
type mechanicalEnergy struct {
	dt      float64
	runID   uint64
	last1   dynamo.Vec3
	last2   dynamo.Vec3
	primed  bool
	current float64
	ok      bool
}

func (m *mechanicalEnergy) observe(s dynamo.State, p dynamo.Params) bool {
	if m.primed && s.RunID != m.runID {
		m.reset()
	}
	if !m.primed {
		m.last1, m.last2, m.runID, m.primed = s.P1, s.P2, s.RunID, true
		return false
	}
	v1 := s.P1.Sub(m.last1).Scale(1 / m.dt)
	v2 := s.P2.Sub(m.last2).Scale(1 / m.dt)
	ke := 0.5*p.M1*v1.Dot(v1) + 0.5*p.M2*v2.Dot(v2)
	pe := p.G * (p.M1*s.P1.Z + p.M2*s.P2.Z)
	m.current = ke + pe
	m.last1, m.last2 = s.P1, s.P2
	m.ok = true
	return true
}

func (m *mechanicalEnergy) reset() {
	*m = mechanicalEnergy{dt: m.dt}
}

// Energy reports the mean total mechanical energy over a run.
type Energy struct {
	name    string
	est     mechanicalEnergy
	total   float64
	samples int
}

func NewEnergy(dt float64) *Energy {
	return &Energy{
		name: "energy",
		est:  mechanicalEnergy{dt: dt},
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.State, p dynamo.Params) {
	if e.est.primed && s.RunID != e.est.runID {
		e.Reset()
	}
	if !e.est.observe(s, p) {
		return
	}
	e.total += e.est.current
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

// Current returns the most recent estimate and whether one exists yet.
func (e *Energy) Current() (float64, bool) {
	return e.est.current, e.est.ok
}

func (e *Energy) Reset() {
	e.est.reset()
	e.total = 0
	e.samples = 0
}

// EnergyDrift reports the largest relative deviation from the first energy
// estimate of the run.
type EnergyDrift struct {
	name     string
	est      mechanicalEnergy
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(dt float64) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		est:  mechanicalEnergy{dt: dt},
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s dynamo.State, p dynamo.Params) {
	if e.est.primed && s.RunID != e.est.runID {
		e.Reset()
	}
	if !e.est.observe(s, p) {
		return
	}
	energy := e.est.current
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.est.reset()
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
