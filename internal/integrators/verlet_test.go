package integrators_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
)

const eps = 1e-6

func defaultParams() dynamo.Params {
	return dynamo.Params{
		M1: 20, M2: 20,
		L1: 100, L2: 100,
		G:      9.8,
		Theta1: 90, Phi1: 0,
		Theta2: 90, Phi2: 180,
		TrailLength: 500,
	}
}

func expectVec(got, want dynamo.Vec3) {
	ExpectWithOffset(1, got.X).To(BeNumerically("~", want.X, eps))
	ExpectWithOffset(1, got.Y).To(BeNumerically("~", want.Y, eps))
	ExpectWithOffset(1, got.Z).To(BeNumerically("~", want.Z, eps))
}

func expectRigid(s dynamo.State, p dynamo.Params) {
	e1, e2 := s.RodErrors(p)
	ExpectWithOffset(1, e1).To(BeNumerically("<", eps))
	ExpectWithOffset(1, e2).To(BeNumerically("<", eps))
}

var _ = Describe("Initialize", func() {
	It("hangs straight down for zero angles", func() {
		p := defaultParams()
		p.Theta1, p.Theta2, p.Phi2 = 0, 0, 0

		s := integrators.Initialize(p)

		expectVec(s.P1, dynamo.Vec3{Z: -100})
		expectVec(s.P2, dynamo.Vec3{Z: -200})
		Expect(s.Trail).To(HaveLen(1))
		Expect(s.Trail[0]).To(Equal(s.P2))
	})

	It("places the horizontal release configuration", func() {
		s := integrators.Initialize(defaultParams())

		expectVec(s.P1, dynamo.Vec3{X: 100})
		expectVec(s.P2, dynamo.Vec3{})
	})

	It("chains bob 2 from bob 1 using azimuth", func() {
		p := defaultParams()
		p.Theta1, p.Phi1 = 90, 90
		p.Theta2, p.Phi2 = 180, 0
		p.L2 = 50

		s := integrators.Initialize(p)

		expectVec(s.P1, dynamo.Vec3{Y: 100})
		expectVec(s.P2, dynamo.Vec3{Y: 100, Z: 50})
	})

	It("carries the run identity", func() {
		p := defaultParams()
		p.RunID = 7
		Expect(integrators.Initialize(p).RunID).To(Equal(uint64(7)))
	})

	It("does not produce NaN for degenerate rods", func() {
		p := defaultParams()
		p.L1, p.L2, p.TrailLength = 0, 0, 0

		v, s := integrators.NewVerlet(p)
		for i := 0; i < 5; i++ {
			s = v.Step(s, p)
		}

		Expect(s.IsValid()).To(BeTrue())
		Expect(s.P1).To(Equal(dynamo.Vec3{}))
		Expect(s.P2).To(Equal(dynamo.Vec3{}))
		Expect(s.Trail).To(HaveLen(1))
	})
})

var _ = Describe("SolveConstraints", func() {
	It("projects stretched rods back to their lengths", func() {
		p1, p2 := integrators.SolveConstraints(
			dynamo.Vec3{X: 3, Y: 4}, dynamo.Vec3{X: 10, Y: 10, Z: 10}, 1, 2, integrators.ConstraintIterations)

		Expect(p1.Length()).To(BeNumerically("~", 1, eps))
		Expect(p2.Distance(p1)).To(BeNumerically("~", 2, eps))
		expectVec(p1, dynamo.Vec3{X: 0.6, Y: 0.8})
	})

	It("collapses a zero direction onto the anchor", func() {
		p1, p2 := integrators.SolveConstraints(dynamo.Vec3{}, dynamo.Vec3{}, 5, 5, 1)

		Expect(p1).To(Equal(dynamo.Vec3{}))
		Expect(p2).To(Equal(dynamo.Vec3{}))
	})

	It("leaves positions untouched with zero iterations", func() {
		in1, in2 := dynamo.Vec3{X: 3}, dynamo.Vec3{X: 9}
		p1, p2 := integrators.SolveConstraints(in1, in2, 1, 1, 0)

		Expect(p1).To(Equal(in1))
		Expect(p2).To(Equal(in2))
	})
})

var _ = Describe("Verlet", func() {
	var (
		p dynamo.Params
		v *integrators.Verlet
		s dynamo.State
	)

	BeforeEach(func() {
		p = defaultParams()
		v, s = integrators.NewVerlet(p)
	})

	It("starts with zero implicit velocity", func() {
		prev1, prev2 := v.Previous()
		Expect(prev1).To(Equal(s.P1))
		Expect(prev2).To(Equal(s.P2))
	})

	It("keeps both rods rigid on every step", func() {
		for i := 0; i < 2000; i++ {
			s = v.Step(s, p)
			expectRigid(s, p)
		}
		Expect(s.IsValid()).To(BeTrue())
	})

	It("moves both bobs after releasing from horizontal", func() {
		start := s
		s = v.Step(s, p)

		Expect(s.P1.Distance(start.P1)).To(BeNumerically(">", 0))
		Expect(s.P2.Distance(start.P2)).To(BeNumerically(">", 0))
		expectRigid(s, p)
	})

	It("stays at rest in the straight down configuration", func() {
		p.Theta1, p.Phi1, p.Theta2, p.Phi2 = 0, 0, 0, 0
		s = v.Reset(p)

		for i := 0; i < 600; i++ {
			s = v.Step(s, p)
		}

		expectVec(s.P1, dynamo.Vec3{Z: -100})
		expectVec(s.P2, dynamo.Vec3{Z: -200})
	})

	It("remembers the pre-step positions as history", func() {
		before := s
		s = v.Step(s, p)

		prev1, prev2 := v.Previous()
		Expect(prev1).To(Equal(before.P1))
		Expect(prev2).To(Equal(before.P2))
	})

	It("does not mutate the input state", func() {
		before := s.Clone()
		_ = v.Step(s, p)
		Expect(s).To(Equal(before))
	})

	It("counts steps and keeps the run identity", func() {
		p.RunID = 3
		s = v.Reset(p)
		for i := 0; i < 4; i++ {
			s = v.Step(s, p)
		}
		Expect(s.Step).To(Equal(uint64(4)))
		Expect(s.RunID).To(Equal(uint64(3)))
	})

	DescribeTable("bounds the trail",
		func(limit, steps, want int) {
			p.TrailLength = limit
			s = v.Reset(p)
			for i := 0; i < steps; i++ {
				s = v.Step(s, p)
				Expect(len(s.Trail)).To(BeNumerically("<=", limit))
				Expect(s.Trail[0]).To(Equal(s.P2))
			}
			Expect(s.Trail).To(HaveLen(want))
		},
		Entry("single entry", 1, 10, 1),
		Entry("not yet saturated", 50, 20, 21),
		Entry("exactly saturated", 50, 49, 50),
		Entry("saturated", 50, 200, 50),
	)

	It("keeps the trail in most recent first order", func() {
		var heads []dynamo.Vec3
		for i := 0; i < 5; i++ {
			s = v.Step(s, p)
			heads = append([]dynamo.Vec3{s.P2}, heads...)
		}
		Expect(s.Trail[:5]).To(Equal(heads))
	})

	It("is deterministic", func() {
		run := func() dynamo.State {
			vv, ss := integrators.NewVerlet(p)
			for i := 0; i < 1000; i++ {
				ss = vv.Step(ss, p)
			}
			return ss
		}
		Expect(run()).To(Equal(run()))
	})

	It("ignores masses", func() {
		heavy := p
		heavy.M1, heavy.M2 = 50, 1

		va, sa := integrators.NewVerlet(p)
		vb, sb := integrators.NewVerlet(heavy)
		for i := 0; i < 100; i++ {
			sa = va.Step(sa, p)
			sb = vb.Step(sb, heavy)
		}
		Expect(sa.P2).To(Equal(sb.P2))
	})

	Context("reset", func() {
		It("matches initialize for the new parameters", func() {
			for i := 0; i < 100; i++ {
				s = v.Step(s, p)
			}
			next := p
			next.Theta1 = 45
			next.TrailLength = 50

			s = v.Reset(next)

			Expect(s).To(Equal(integrators.Initialize(next)))
			prev1, prev2 := v.Previous()
			Expect(prev1).To(Equal(s.P1))
			Expect(prev2).To(Equal(s.P2))
		})

		It("drops a saturated trail instead of truncating it", func() {
			for i := 0; i < 600; i++ {
				s = v.Step(s, p)
			}
			Expect(s.Trail).To(HaveLen(500))

			p.TrailLength = 50
			s = v.Reset(p)
			Expect(s.Trail).To(HaveLen(1))
		})
	})

	It("falls under gravity on the first step", func() {
		p.Theta1, p.Theta2, p.Phi2 = 90, 90, 0
		s = v.Reset(p)
		s = v.Step(s, p)

		Expect(s.P1.Z).To(BeNumerically("<", 0))
		Expect(math.Abs(s.P1.Z)).To(BeNumerically("<", 9.8*integrators.FixedDt*integrators.FixedDt+eps))
	})
})
