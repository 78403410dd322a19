package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
)

// LyapunovEstimate releases the pendulum twice, the second time with
// Theta1 offset by perturbation degrees, and returns the least squares
// growth rate (per second) of ln|ΔP2|. Samples stop once the separation
// reaches a tenth of the total rod length, where it saturates.
func LyapunovEstimate(p dynamo.Params, perturbation float64, steps int) float64 {
	q := p
	q.Theta1 += perturbation

	va, sa := integrators.NewVerlet(p)
	vb, sb := integrators.NewVerlet(q)

	limit := 0.1 * (p.L1 + p.L2)
	var ts, ys []float64
	for i := 1; i <= steps; i++ {
		sa = va.Step(sa, p)
		sb = vb.Step(sb, q)

		sep := sa.P2.Distance(sb.P2)
		if sep >= limit {
			break
		}
		if sep > 0 {
			ts = append(ts, float64(i)*integrators.FixedDt)
			ys = append(ys, math.Log(sep))
		}
	}

	return slope(ts, ys)
}

func slope(xs, ys []float64) float64 {
	if len(xs) < 2 || stat.Variance(xs, nil) == 0 {
		return 0
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}
