package dynamo

import (
	"math"
)

// Vec3 is a position or displacement in the pendulum frame. Z points up, so
// gravity acts along -Z.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Distance returns |v - o|.
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// Normalize returns the unit vector along v. The zero vector normalizes to
// the zero vector.
func (v Vec3) Normalize() Vec3 {
	if l := v.Length(); l > 0 {
		return v.Scale(1 / l)
	}
	return Vec3{}
}

func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Params holds the physical parameters of one run. Angles are in degrees.
// M1 and M2 are carried for observers (energy) but do not enter the
// dynamics: rods are massless and bobs are point masses.
type Params struct {
	M1, M2      float64
	L1, L2      float64
	G           float64
	Theta1      float64
	Phi1        float64
	Theta2      float64
	Phi2        float64
	TrailLength int
	RunID       uint64
}

// Gravity returns the gravity vector (0, 0, -G).
func (p Params) Gravity() Vec3 {
	return Vec3{0, 0, -p.G}
}

// State is a snapshot of both bobs and the recent history of bob 2, most
// recent first.
type State struct {
	P1, P2 Vec3
	Trail  []Vec3
	Step   uint64
	RunID  uint64
}

// Clone returns a deep copy; the trail slice is not shared.
func (s State) Clone() State {
	c := s
	c.Trail = make([]Vec3, len(s.Trail))
	copy(c.Trail, s.Trail)
	return c
}

func (s State) IsValid() bool {
	if !s.P1.IsFinite() || !s.P2.IsFinite() {
		return false
	}
	for _, p := range s.Trail {
		if !p.IsFinite() {
			return false
		}
	}
	return true
}

// RodErrors returns the deviation of each rod from its nominal length.
func (s State) RodErrors(p Params) (float64, float64) {
	e1 := math.Abs(s.P1.Length() - p.L1)
	e2 := math.Abs(s.P2.Distance(s.P1) - p.L2)
	return e1, e2
}

// Metric accumulates a scalar over the steps of a run.
type Metric interface {
	Name() string
	Observe(s State, p Params)
	Value() float64
	Reset()
}

// Observer is notified after every published step.
type Observer interface {
	OnStep(s State)
}
