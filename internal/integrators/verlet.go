package integrators

import (
	"math"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

const (
	// FixedDt is the simulated time advanced by every Step, independent of
	// the caller's frame rate.
	FixedDt = 1.0 / 60.0

	// ConstraintIterations is the fixed number of rod projection passes per
	// step. It is not convergence checked.
	ConstraintIterations = 10
)

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// spherical returns the offset of a bob hanging at length l, polar angle
// theta measured from straight down and azimuth phi (radians).
func spherical(l, theta, phi float64) dynamo.Vec3 {
	st, ct := math.Sin(theta), math.Cos(theta)
	sp, cp := math.Sin(phi), math.Cos(phi)
	return dynamo.Vec3{X: l * st * cp, Y: l * st * sp, Z: -l * ct}
}

// Initialize derives the starting configuration from p. The trail holds
// only the initial position of bob 2.
func Initialize(p dynamo.Params) dynamo.State {
	p1 := spherical(p.L1, degToRad(p.Theta1), degToRad(p.Phi1))
	p2 := p1.Add(spherical(p.L2, degToRad(p.Theta2), degToRad(p.Phi2)))
	return dynamo.State{
		P1:    p1,
		P2:    p2,
		Trail: []dynamo.Vec3{p2},
		RunID: p.RunID,
	}
}

// SolveConstraints projects both bobs back onto their rods. Rod 1 is
// resolved before rod 2 on every pass.
func SolveConstraints(p1, p2 dynamo.Vec3, l1, l2 float64, iterations int) (dynamo.Vec3, dynamo.Vec3) {
	for i := 0; i < iterations; i++ {
		p1 = p1.Normalize().Scale(l1)
		p2 = p1.Add(p2.Sub(p1).Normalize().Scale(l2))
	}
	return p1, p2
}

// Verlet is a position Verlet integrator for the double pendulum. Velocity
// is implicit in the previous positions, which always lag the last returned
// state by exactly one step.
type Verlet struct {
	prev1, prev2 dynamo.Vec3
}

// NewVerlet returns an integrator at rest in the configuration derived
// from p, together with that initial state.
func NewVerlet(p dynamo.Params) (*Verlet, dynamo.State) {
	v := &Verlet{}
	return v, v.Reset(p)
}

// Reset discards the history and returns Initialize(p). The previous
// positions equal the current ones, so the bobs start with zero velocity.
func (v *Verlet) Reset(p dynamo.Params) dynamo.State {
	s := Initialize(p)
	v.prev1, v.prev2 = s.P1, s.P2
	return s
}

// Previous returns the remembered positions from one step ago.
func (v *Verlet) Previous() (dynamo.Vec3, dynamo.Vec3) {
	return v.prev1, v.prev2
}

// Step advances s by FixedDt and returns a new state. s is not modified;
// the returned trail is a fresh slice.
func (v *Verlet) Step(s dynamo.State, p dynamo.Params) dynamo.State {
	acc := p.Gravity().Scale(FixedDt * FixedDt)

	n1 := s.P1.Scale(2).Sub(v.prev1).Add(acc)
	n2 := s.P2.Scale(2).Sub(v.prev2).Add(acc)

	v.prev1, v.prev2 = s.P1, s.P2

	n1, n2 = SolveConstraints(n1, n2, p.L1, p.L2, ConstraintIterations)

	return dynamo.State{
		P1:    n1,
		P2:    n2,
		Trail: pushTrail(s.Trail, n2, p.TrailLength),
		Step:  s.Step + 1,
		RunID: s.RunID,
	}
}

// pushTrail prepends head and keeps at most limit entries. A non-positive
// limit still keeps the head.
func pushTrail(trail []dynamo.Vec3, head dynamo.Vec3, limit int) []dynamo.Vec3 {
	if limit < 1 {
		limit = 1
	}
	n := len(trail) + 1
	if n > limit {
		n = limit
	}
	out := make([]dynamo.Vec3, n)
	out[0] = head
	copy(out[1:], trail)
	return out
}
