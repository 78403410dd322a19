package metrics

import (
	"github.com/san-kum/pendulum3d/internal/dynamo"
)

// Default returns the metrics recorded for every stored run.
func Default(dt float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergy(dt),
		NewEnergyDrift(dt),
		NewRodError(),
		NewFlips(),
	}
}
