package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
)

var runCounter atomic.Uint64

// NextRunID returns a fresh, monotonically increasing run identity.
func NextRunID() uint64 {
	return runCounter.Add(1)
}

// Simulator owns one pendulum run. Step and Reset are the only writers;
// they are serialised and publish each new state with a single atomic
// swap, so Snapshot never observes a half-applied step.
type Simulator struct {
	mu         sync.Mutex
	integrator *integrators.Verlet
	params     dynamo.Params
	state      atomic.Pointer[dynamo.State]
	run        atomic.Int32
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

// New creates a running simulator initialised from p. p.RunID is replaced
// with a fresh identity.
func New(p dynamo.Params) *Simulator {
	s := &Simulator{}
	p.RunID = NextRunID()
	integ, st := integrators.NewVerlet(p)
	s.integrator = integ
	s.params = p
	s.state.Store(&st)
	s.run.Store(int32(Running))
	return s
}

func (s *Simulator) AddMetric(m dynamo.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

func (s *Simulator) AddObserver(o dynamo.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Params returns the parameters of the current run.
func (s *Simulator) Params() dynamo.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Snapshot returns a private copy of the latest published state.
func (s *Simulator) Snapshot() dynamo.State {
	return s.state.Load().Clone()
}

func (s *Simulator) RunState() RunState {
	return RunState(s.run.Load())
}

// Pause stops future ticks from stepping. A step already in progress
// completes before Pause returns.
func (s *Simulator) Pause() {
	s.mu.Lock()
	s.run.Store(int32(Paused))
	s.mu.Unlock()
}

func (s *Simulator) Resume() {
	s.run.Store(int32(Running))
}

// Toggle flips between Running and Paused and returns the new state.
func (s *Simulator) Toggle() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Running
	if s.RunState() == Running {
		next = Paused
	}
	s.run.Store(int32(next))
	return next
}

// Step advances one fixed timestep regardless of the run state and returns
// the published state. The returned trail must not be modified.
func (s *Simulator) Step() dynamo.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepLocked()
}

// Tick steps only while Running. It reports whether a step was applied.
func (s *Simulator) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RunState() != Running {
		return false
	}
	s.stepLocked()
	return true
}

func (s *Simulator) stepLocked() dynamo.State {
	next := s.integrator.Step(*s.state.Load(), s.params)
	s.state.Store(&next)
	for _, m := range s.metrics {
		m.Observe(next, s.params)
	}
	for _, o := range s.observers {
		o.OnStep(next)
	}
	return next
}

// Reset starts a new run from p, discarding the trail and the position
// history. The simulator is Running afterwards, even if it was paused.
func (s *Simulator) Reset(p dynamo.Params) dynamo.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.RunID = NextRunID()
	st := s.integrator.Reset(p)
	s.params = p
	s.state.Store(&st)
	for _, m := range s.metrics {
		m.Reset()
	}
	s.run.Store(int32(Running))
	return st
}

// Run drives the simulator from ticks until ctx is cancelled or ticks is
// closed. Once the cancellation is observed no further step is applied.
func (s *Simulator) Run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.Tick()
		}
	}
}

// RunPaced applies one step per tick until n steps are recorded. It
// returns the partial result with ctx's error on cancellation, or with
// ErrTicksClosed if ticks runs dry first.
func (s *Simulator) RunPaced(ctx context.Context, ticks <-chan time.Time, n int) (*Result, error) {
	if n < 0 {
		return nil, fmt.Errorf("steps must be non-negative, got %d", n)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	s.mu.Lock()
	for _, m := range s.metrics {
		m.Reset()
	}
	trace := NewTrace(*s.state.Load(), n, stop)
	s.observers = append(s.observers, trace)
	s.mu.Unlock()
	defer s.removeObserver(trace)

	var err error
	if !trace.Complete() {
		err = s.Run(runCtx, ticks)
	}
	switch {
	case trace.Complete():
		err = nil
	case ctx.Err() != nil:
		err = ctx.Err()
	case err == nil:
		err = ErrTicksClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	samples := trace.Samples()
	result := &Result{
		Params:     s.params,
		Samples:    samples,
		Final:      s.state.Load().Clone(),
		Metrics:    make(map[string]float64, len(s.metrics)),
		StepsTaken: len(samples) - 1,
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

func (s *Simulator) removeObserver(o dynamo.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.observers {
		if cur == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// RunSteps advances n steps headlessly and records every position. On
// cancellation the partial result is returned with ctx's error.
func (s *Simulator) RunSteps(ctx context.Context, n int) (*Result, error) {
	if n < 0 {
		return nil, fmt.Errorf("steps must be non-negative, got %d", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.metrics {
		m.Reset()
	}

	cur := *s.state.Load()
	result := &Result{
		Params:  s.params,
		Samples: make([]Sample, 0, n+1),
		Metrics: make(map[string]float64),
	}
	result.Samples = append(result.Samples, sampleOf(cur))

	var err error
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		cur = s.stepLocked()
		result.Samples = append(result.Samples, sampleOf(cur))
		result.StepsTaken++
	}

	result.Final = cur.Clone()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

func sampleOf(st dynamo.State) Sample {
	return Sample{
		Step: st.Step,
		Time: float64(st.Step) * integrators.FixedDt,
		P1:   st.P1,
		P2:   st.P2,
	}
}
