package sim_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/sim"
)

func testParams() dynamo.Params {
	return dynamo.Params{
		M1: 20, M2: 20, L1: 100, L2: 100, G: 9.8,
		Theta1: 90, Phi1: 0, Theta2: 90, Phi2: 180,
		TrailLength: 500,
	}
}

type countingMetric struct {
	observed int
	resets   int
}

func (c *countingMetric) Name() string                        { return "count" }
func (c *countingMetric) Observe(dynamo.State, dynamo.Params) { c.observed++ }
func (c *countingMetric) Value() float64                      { return float64(c.observed) }

func (c *countingMetric) Reset() {
	c.observed = 0
	c.resets++
}

type recordingObserver struct {
	steps []uint64
}

func (r *recordingObserver) OnStep(s dynamo.State) { r.steps = append(r.steps, s.Step) }

var _ = Describe("Simulator", func() {
	var s *sim.Simulator

	BeforeEach(func() {
		s = sim.New(testParams())
	})

	It("starts running with the initial configuration", func() {
		Expect(s.RunState()).To(Equal(sim.Running))

		snap := s.Snapshot()
		want := integrators.Initialize(s.Params())
		Expect(snap).To(Equal(want))
		Expect(snap.RunID).NotTo(BeZero())
	})

	It("hands out snapshots that do not alias internal state", func() {
		s.Step()
		snap := s.Snapshot()
		snap.Trail[0] = dynamo.Vec3{X: 1e9}

		Expect(s.Snapshot().Trail[0]).NotTo(Equal(dynamo.Vec3{X: 1e9}))
	})

	It("only ticks while running", func() {
		Expect(s.Tick()).To(BeTrue())
		s.Pause()
		Expect(s.RunState()).To(Equal(sim.Paused))

		before := s.Snapshot()
		Expect(s.Tick()).To(BeFalse())
		Expect(s.Snapshot()).To(Equal(before))

		s.Resume()
		Expect(s.Tick()).To(BeTrue())
		Expect(s.Snapshot().Step).To(Equal(uint64(2)))
	})

	It("toggles between running and paused without touching state", func() {
		before := s.Snapshot()
		Expect(s.Toggle()).To(Equal(sim.Paused))
		Expect(s.Toggle()).To(Equal(sim.Running))
		Expect(s.Snapshot()).To(Equal(before))
	})

	It("steps explicitly even when paused", func() {
		s.Pause()
		st := s.Step()
		Expect(st.Step).To(Equal(uint64(1)))
	})

	Context("reset", func() {
		It("produces exactly the initial state for the new parameters", func() {
			for i := 0; i < 30; i++ {
				s.Step()
			}
			next := testParams()
			next.Theta2 = 30

			st := s.Reset(next)

			next.RunID = st.RunID
			Expect(st).To(Equal(integrators.Initialize(next)))
			Expect(s.Snapshot()).To(Equal(st))
		})

		It("assigns a new increasing run identity", func() {
			first := s.Snapshot().RunID
			second := s.Reset(testParams()).RunID
			Expect(second).To(BeNumerically(">", first))
		})

		It("resumes a paused run", func() {
			s.Pause()
			s.Reset(testParams())
			Expect(s.RunState()).To(Equal(sim.Running))
		})

		It("shrinks the trail to the fresh initial point", func() {
			for i := 0; i < 600; i++ {
				s.Step()
			}
			Expect(s.Snapshot().Trail).To(HaveLen(500))

			p := testParams()
			p.TrailLength = 50
			Expect(s.Reset(p).Trail).To(HaveLen(1))

			for i := 0; i < 100; i++ {
				s.Step()
			}
			Expect(s.Snapshot().Trail).To(HaveLen(50))
		})

		It("resets metrics", func() {
			m := &countingMetric{}
			s.AddMetric(m)
			s.Step()
			s.Reset(testParams())
			Expect(m.observed).To(BeZero())
			Expect(m.resets).To(Equal(1))
		})
	})

	It("notifies metrics and observers on each step", func() {
		m := &countingMetric{}
		o := &recordingObserver{}
		s.AddMetric(m)
		s.AddObserver(o)

		for i := 0; i < 3; i++ {
			s.Step()
		}

		Expect(m.observed).To(Equal(3))
		Expect(o.steps).To(Equal([]uint64{1, 2, 3}))
	})

	Context("RunSteps", func() {
		It("records every step", func() {
			s.AddMetric(&countingMetric{})

			res, err := s.RunSteps(context.Background(), 120)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(120))
			Expect(res.Samples).To(HaveLen(121))
			Expect(res.Samples[0].Step).To(BeZero())
			Expect(res.Samples[120].Time).To(BeNumerically("~", 2.0, 1e-9))
			Expect(res.Final.P2).To(Equal(res.Samples[120].P2))
			Expect(res.Metrics).To(HaveKeyWithValue("count", 120.0))
		})

		It("is deterministic across runs", func() {
			a, err := sim.New(testParams()).RunSteps(context.Background(), 500)
			Expect(err).NotTo(HaveOccurred())
			b, err := sim.New(testParams()).RunSteps(context.Background(), 500)
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Final.P1).To(Equal(b.Final.P1))
			Expect(a.Final.P2).To(Equal(b.Final.P2))
			Expect(a.Final.Trail).To(Equal(b.Final.Trail))
		})

		It("stops at cancellation and returns the partial result", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := s.RunSteps(ctx, 10)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
			Expect(res.Samples).To(HaveLen(1))
		})

		It("rejects a negative step count", func() {
			_, err := s.RunSteps(context.Background(), -1)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Run", func() {
		It("steps on each tick and stops on cancellation", func() {
			ticks := make(chan time.Time)
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- s.Run(ctx, ticks) }()

			for i := 0; i < 5; i++ {
				ticks <- time.Now()
			}
			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))

			steps := s.Snapshot().Step
			Expect(steps).To(BeNumerically(">=", 4))
			Expect(steps).To(BeNumerically("<=", 5))

			select {
			case ticks <- time.Now():
				Fail("tick accepted after cancellation")
			case <-time.After(20 * time.Millisecond):
			}
			Expect(s.Snapshot().Step).To(Equal(steps))
		})

		It("ignores ticks while paused", func() {
			s.Pause()
			ticks := make(chan time.Time)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = s.Run(ctx, ticks) }()

			ticks <- time.Now()
			ticks <- time.Now()
			Consistently(func() uint64 { return s.Snapshot().Step }, 30*time.Millisecond).Should(BeZero())
		})

		It("returns once the tick source is closed", func() {
			ticks := make(chan time.Time)
			close(ticks)
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			Expect(s.Run(ctx, ticks)).To(Succeed())
			Expect(s.Snapshot().Step).To(BeZero())
		})
	})

	Context("RunPaced", func() {
		feed := func(n int) chan time.Time {
			ticks := make(chan time.Time, n)
			for i := 0; i < n; i++ {
				ticks <- time.Now()
			}
			return ticks
		}

		It("stops after the requested steps and matches a headless run", func() {
			m := &countingMetric{}
			s.AddMetric(m)

			res, err := s.RunPaced(context.Background(), feed(30), 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(20))
			Expect(res.Samples).To(HaveLen(21))
			Expect(res.Samples[0].Step).To(BeZero())
			Expect(res.Final.Step).To(Equal(uint64(20)))
			Expect(res.Metrics).To(HaveKeyWithValue("count", 20.0))

			headless, err := sim.New(testParams()).RunSteps(context.Background(), 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Final.P2).To(Equal(headless.Final.P2))
		})

		It("keeps notifying registered observers", func() {
			o := &recordingObserver{}
			s.AddObserver(o)

			_, err := s.RunPaced(context.Background(), feed(5), 5)
			Expect(err).NotTo(HaveOccurred())
			s.Step()

			Expect(o.steps).To(Equal([]uint64{1, 2, 3, 4, 5, 6}))
		})

		It("returns a partial result when the ticks run out", func() {
			ticks := feed(3)
			close(ticks)

			res, err := s.RunPaced(context.Background(), ticks, 10)
			Expect(err).To(MatchError(sim.ErrTicksClosed))
			Expect(res.StepsTaken).To(Equal(3))
			Expect(res.Samples).To(HaveLen(4))
		})

		It("returns a partial result on cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := s.RunPaced(ctx, make(chan time.Time), 10)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
		})

		It("rejects a negative step count", func() {
			_, err := s.RunPaced(context.Background(), nil, -1)
			Expect(err).To(HaveOccurred())
		})
	})

	It("never exposes a partially applied step to concurrent readers", func() {
		p := s.Params()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Step()
			}
			cancel()
		}()

		for ctx.Err() == nil {
			snap := s.Snapshot()
			e1, e2 := snap.RodErrors(p)
			Expect(e1).To(BeNumerically("<", 1e-6))
			Expect(e2).To(BeNumerically("<", 1e-6))
			Expect(snap.Trail[0]).To(Equal(snap.P2))
		}
		wg.Wait()
	})
})

var _ = Describe("Trace", func() {
	It("records up to its limit and signals once", func() {
		calls := 0
		s := sim.New(testParams())
		trace := sim.NewTrace(s.Snapshot(), 2, func() { calls++ })
		s.AddObserver(trace)

		Expect(trace.Complete()).To(BeFalse())
		for i := 0; i < 4; i++ {
			s.Step()
		}

		Expect(trace.Complete()).To(BeTrue())
		Expect(calls).To(Equal(1))
		samples := trace.Samples()
		Expect(samples).To(HaveLen(3))
		Expect(samples[2].Step).To(Equal(uint64(2)))
	})

	It("is complete immediately for a zero limit", func() {
		calls := 0
		trace := sim.NewTrace(sim.New(testParams()).Snapshot(), 0, func() { calls++ })
		Expect(trace.Complete()).To(BeTrue())
		Expect(calls).To(Equal(1))
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every parameter set independently", func() {
		a := testParams()
		b := testParams()
		b.Theta1 = 45

		results, err := sim.NewEnsemble([]dynamo.Params{a, b}, func() []dynamo.Metric {
			return []dynamo.Metric{&countingMetric{}}
		}).Run(context.Background(), 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))

		solo, err := sim.New(a).RunSteps(context.Background(), 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Final.P2).To(Equal(solo.Final.P2))
		Expect(results[1].Final.P2).NotTo(Equal(solo.Final.P2))
		Expect(results[1].Metrics["count"]).To(Equal(60.0))
	})
})
