package sim

import (
	"errors"
	"sync"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// ErrTicksClosed reports a paced run whose tick source closed before the
// requested number of steps was reached.
var ErrTicksClosed = errors.New("sim: tick source closed")

// Trace is an Observer that records a Sample per published step, starting
// from an initial state, and calls done once limit steps are held.
// Steps past the limit are ignored.
type Trace struct {
	mu      sync.Mutex
	samples []Sample
	limit   int
	done    func()
}

func NewTrace(start dynamo.State, limit int, done func()) *Trace {
	t := &Trace{
		samples: make([]Sample, 1, limit+1),
		limit:   limit,
		done:    done,
	}
	t.samples[0] = sampleOf(start)
	if limit <= 0 && done != nil {
		done()
	}
	return t
}

func (t *Trace) OnStep(s dynamo.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples)-1 >= t.limit {
		return
	}
	t.samples = append(t.samples, sampleOf(s))
	if len(t.samples)-1 == t.limit && t.done != nil {
		t.done()
	}
}

// Complete reports whether limit steps have been recorded.
func (t *Trace) Complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)-1 >= t.limit
}

// Samples returns a copy of what has been recorded so far.
func (t *Trace) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}
