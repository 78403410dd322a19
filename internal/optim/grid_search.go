// Package optim searches the starting configuration space for runs that
// extremise a metric.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendulum3d/internal/config"
	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/sim"
)

// GridSearch evaluates every combination of the candidate values. Param
// names are config keys such as theta1 or l2.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Objective names the metric to optimise and its direction.
type Objective struct {
	Metric   string
	Maximize bool
	Steps    int
	// NewMetrics builds fresh metrics for each evaluation. It must include
	// Metric.
	NewMetrics func() []dynamo.Metric
}

// Search runs base with every grid point applied and returns the best
// point and its metric value. Points that fail validation are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, obj Objective) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, obj, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("no valid grid point for metric %q", obj.Metric)
	}

	if obj.Maximize {
		best = -best
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	obj Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		val, ok, err := evaluate(ctx, current, base, obj)
		if err != nil || !ok {
			return err
		}
		if obj.Maximize {
			val = -val
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, obj, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// evaluate reports ok=false for points outside the allowed ranges.
func evaluate(ctx context.Context, point map[string]float64, base *config.Config, obj Objective) (float64, bool, error) {
	cfg := base.Clone()
	for k, v := range point {
		if err := cfg.Set(k, v); err != nil {
			return 0, false, err
		}
	}
	if cfg.Validate() != nil {
		return 0, false, nil
	}

	s := sim.New(cfg.Params())
	for _, m := range obj.NewMetrics() {
		s.AddMetric(m)
	}
	result, err := s.RunSteps(ctx, obj.Steps)
	if err != nil {
		return 0, false, err
	}

	val, ok := result.Metrics[obj.Metric]
	if !ok {
		return 0, false, fmt.Errorf("unknown metric %q", obj.Metric)
	}
	return val, true, nil
}
