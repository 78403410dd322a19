package sim

import (
	"context"
	"sync"

	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// Ensemble runs independent simulations side by side, one goroutine per
// parameter set. Runs share nothing.
type Ensemble struct {
	params     []dynamo.Params
	newMetrics func() []dynamo.Metric
}

func NewEnsemble(params []dynamo.Params, newMetrics func() []dynamo.Metric) *Ensemble {
	return &Ensemble{params: params, newMetrics: newMetrics}
}

// Run returns results in the order of the parameter sets.
func (e *Ensemble) Run(ctx context.Context, steps int) ([]*Result, error) {
	results := make([]*Result, len(e.params))
	errs := make([]error, len(e.params))

	var wg sync.WaitGroup
	for i := range e.params {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			s := New(e.params[idx])
			if e.newMetrics != nil {
				for _, m := range e.newMetrics() {
					s.AddMetric(m)
				}
			}

			results[idx], errs[idx] = s.RunSteps(ctx, steps)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
