package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/pendulum3d/internal/automation"
	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/logging"
	"github.com/san-kum/pendulum3d/internal/metrics"
	"github.com/san-kum/pendulum3d/internal/optim"
	"github.com/san-kum/pendulum3d/internal/storage"
)

func runScenario(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger()

	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ids, err := automation.RunScenario(ctx, sc, st, log)
	for _, id := range ids {
		fmt.Println(id)
	}
	if err != nil {
		log.Error(ctx, "scenario failed", err, "scenario", sc.Name, "completed", len(ids))
		return err
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		Min:       sweepMin,
		Max:       sweepMax,
		Points:    sweepPoints,
		Steps:     cfg.Steps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("sweep %s over %d steps (%.1fs simulated)\n\n", sweepParam, cfg.Steps, float64(cfg.Steps)*integrators.FixedDt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL_X2\tFINAL_Z2\tENERGY_DRIFT\tFLIPS\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.2f\t%.3f\t%.3f\t%.2e\t%.0f\n",
			r.ParamValue,
			r.Final.P2.X,
			r.Final.P2.Z,
			r.Metrics["energy_drift"],
			r.Metrics["flips"],
		)
	}
	return w.Flush()
}

// parseGrid reads specs of the form name=v1,v2,...
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("invalid grid %q (want name=v1,v2,...)", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid grid %q: %w", spec, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	names, ranges, err := parseGrid(gridSpecs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	g := optim.NewGridSearch(names, ranges)
	best, val, err := g.Search(ctx, cfg, optim.Objective{
		Metric:     metricName,
		Maximize:   maximize,
		Steps:      cfg.Steps,
		NewMetrics: func() []dynamo.Metric { return metrics.Default(integrators.FixedDt) },
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("best %s: %.6g\n", metricName, val)
	for _, k := range keys {
		fmt.Printf("  %s = %g\n", k, best[k])
	}
	return nil
}
