// Package automation runs scripted batches of headless simulations.
package automation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulum3d/internal/config"
	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/logging"
	"github.com/san-kum/pendulum3d/internal/metrics"
	"github.com/san-kum/pendulum3d/internal/sim"
	"github.com/san-kum/pendulum3d/internal/storage"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run. Params override the preset (or the
// defaults) by yaml key, e.g. theta1 or l2.
type ScenarioStep struct {
	Preset string             `yaml:"preset"`
	Steps  int                `yaml:"steps"`
	Params map[string]float64 `yaml:"params"`
	SaveAs string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, logging.WrapError(err, "parse scenario %s", path)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Config resolves the step into a validated configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	// Sorted so the first bad key reported is stable.
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cfg.Set(k, s.Params[k]); err != nil {
			return nil, err
		}
	}

	if s.Steps > 0 {
		cfg.Steps = s.Steps
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s ScenarioStep) name(i int) string {
	switch {
	case s.SaveAs != "":
		return s.SaveAs
	case s.Preset != "":
		return s.Preset
	}
	return fmt.Sprintf("step%d", i+1)
}

// RunScenario executes every step in order and stores each run. It
// returns the ids of the runs saved so far, even on error.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, log *logging.Logger) ([]string, error) {
	ids := make([]string, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Config()
		if err != nil {
			return ids, fmt.Errorf("step %d: %w", i+1, err)
		}

		s := sim.New(cfg.Params())
		for _, m := range metrics.Default(integrators.FixedDt) {
			s.AddMetric(m)
		}
		stepCtx := logging.WithRunID(ctx, s.Snapshot().RunID)
		log.Info(stepCtx, "scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "steps", cfg.Steps)

		result, err := s.RunSteps(ctx, cfg.Steps)
		if err != nil {
			return ids, fmt.Errorf("step %d run: %w", i+1, err)
		}

		id, err := store.Save(step.name(i), result)
		if err != nil {
			return ids, fmt.Errorf("step %d save: %w", i+1, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ParameterSweep varies one parameter evenly between Min and Max, keeping
// the rest of Base fixed.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	Min, Max  float64
	Points    int
	Steps     int
}

// SweepResult holds the outcome of one sweep point.
type SweepResult struct {
	ParamValue float64
	Final      dynamo.State
	Metrics    map[string]float64
}

// RunSweep runs every point of the sweep concurrently and returns results
// in sweep order, from Min to Max.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	if sweep.Points < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 points, got %d", sweep.Points)
	}

	values := floats.Span(make([]float64, sweep.Points), sweep.Min, sweep.Max)
	params := make([]dynamo.Params, sweep.Points)

	for i := range values {
		cfg := sweep.Base.Clone()
		if err := cfg.Set(sweep.ParamName, values[i]); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("sweep point %s=%.4g: %w", sweep.ParamName, values[i], err)
		}
		params[i] = cfg.Params()
	}

	ens := sim.NewEnsemble(params, func() []dynamo.Metric { return metrics.Default(integrators.FixedDt) })
	results, err := ens.Run(ctx, sweep.Steps)
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(results))
	for i, r := range results {
		out[i] = SweepResult{
			ParamValue: values[i],
			Final:      r.Final,
			Metrics:    r.Metrics,
		}
	}
	return out, nil
}
