package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pendulum3d/internal/analysis"
	"github.com/san-kum/pendulum3d/internal/config"
	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/export"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/logging"
	"github.com/san-kum/pendulum3d/internal/metrics"
	"github.com/san-kum/pendulum3d/internal/sim"
	"github.com/san-kum/pendulum3d/internal/storage"
	"github.com/san-kum/pendulum3d/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	log := logging.NewLogger()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	name := "run"
	if len(args) > 0 {
		name = args[0]
	} else if preset != "" {
		name = preset
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s := sim.New(cfg.Params())
	for _, m := range metrics.Default(integrators.FixedDt) {
		s.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx = logging.WithRunID(ctx, s.Snapshot().RunID)

	log.Info(ctx, "run started", "name", name, "steps", cfg.Steps, "realtime", realtime)
	start := time.Now()
	result, err := advance(ctx, s, cfg)
	if err != nil {
		if result == nil {
			return err
		}
		log.Warn(ctx, "run interrupted, saving partial result", "steps_taken", result.StepsTaken, "error", err)
	}

	id, err := st.Save(name, result)
	if err != nil {
		log.Error(ctx, "save failed", err)
		return logging.WrapError(err, "save run %s", name)
	}
	log.Info(ctx, "run saved", "id", id, "elapsed", time.Since(start).String())

	fmt.Printf("run: %s\n", id)
	fmt.Printf("steps: %d (%.2fs simulated)\n", result.StepsTaken, float64(result.StepsTaken)*integrators.FixedDt)
	fmt.Printf("bob 2: (%.2f, %.2f, %.2f)\n", result.Final.P2.X, result.Final.P2.Y, result.Final.P2.Z)
	printMetrics(result.Metrics)
	return nil
}

// advance runs cfg.Steps steps, flat out or paced at cfg.FPS with --realtime.
func advance(ctx context.Context, s *sim.Simulator, cfg *config.Config) (*sim.Result, error) {
	if !realtime {
		return s.RunSteps(ctx, cfg.Steps)
	}
	ticker := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer ticker.Stop()
	return s.RunPaced(ctx, ticker.C, cfg.Steps)
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("%s: %.6g\n", k, m[k])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	log, closeLog, err := tuiLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	return viz.RunLive(sim.New(cfg.Params()), cfg.FPS, log)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tDURATION\tTHETA1\tTHETA2")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2fs\t%.0f\t%.0f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Duration(),
			run.Params.Theta1,
			run.Params.Theta2,
		)
	}

	return w.Flush()
}

var axes = map[string]func(dynamo.Vec3) float64{
	"x": func(v dynamo.Vec3) float64 { return v.X },
	"y": func(v dynamo.Vec3) float64 { return v.Y },
	"z": func(v dynamo.Vec3) float64 { return v.Z },
}

func loadResult(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s: %w", runID, dynamo.ErrEmptyRun)
	}

	return meta, &sim.Result{
		Params:     meta.Params.Params(meta.RunID),
		Samples:    samples,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
	}, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	names := []string{"x", "y", "z"}
	if axis != "" {
		if _, ok := axes[axis]; !ok {
			return fmt.Errorf("unknown axis %q (want x, y or z)", axis)
		}
		names = []string{axis}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(result.Samples))

	for _, name := range names {
		graph := asciigraph.Plot(result.Series(axes[name]),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("bob 2 %s vs time", name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n\n", meta.ID)

	x := result.Series(axes["x"])
	ps := analysis.PowerSpectrum(x)
	if len(ps) > 8 {
		graph := asciigraph.Plot(ps[:len(ps)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (bob 2 x)"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AXIS\tFREQ\tPERIOD\tPOWER")
	for _, name := range []string{"x", "y", "z"} {
		freq, power := analysis.DominantFrequency(result.Series(axes[name]), meta.Dt)
		period := "-"
		if freq > 0 {
			period = fmt.Sprintf("%.3fs", 1/freq)
		}
		fmt.Fprintf(w, "%s\t%.3f hz\t%s\t%.3g\n", name, freq, period, power)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	lambda := analysis.LyapunovEstimate(result.Params, perturb, lyapunovSteps)
	fmt.Printf("\ndivergence rate: %.3f /s (theta1 offset %g deg)\n", lambda, perturb)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	return export.WriteCSV(os.Stdout, result.Samples)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadResult(args[0])
	if err != nil {
		return err
	}
	return export.WriteJSON(os.Stdout, meta, result.Samples)
}

// finalState rebuilds the last state of a stored run. The trail is the
// most recent bob 2 samples, newest first.
func finalState(result *sim.Result) dynamo.State {
	last := result.Samples[len(result.Samples)-1]
	n := min(max(result.Params.TrailLength, 1), len(result.Samples))

	trail := make([]dynamo.Vec3, n)
	for i := range trail {
		trail[i] = result.Samples[len(result.Samples)-1-i].P2
	}

	return dynamo.State{
		P1:    last.P1,
		P2:    last.P2,
		Trail: trail,
		Step:  last.Step,
		RunID: result.Params.RunID,
	}
}

func exportSVG(cmd *cobra.Command, args []string) error {
	p, err := export.ParsePlane(plane)
	if err != nil {
		return err
	}

	_, result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	svg := export.StateToSVG(finalState(result), result.Params, p, svgSize, svgSize, svgColor)
	if svgOut == "" {
		_, err := fmt.Fprintln(os.Stdout, svg)
		return err
	}
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return logging.WrapError(err, "write %s", svgOut)
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	out := pngOut
	if out == "" {
		out = meta.ID + ".png"
	}
	f, err := os.Create(out)
	if err != nil {
		return logging.WrapError(err, "create %s", out)
	}
	defer f.Close()

	title := fmt.Sprintf("%s (%s)", meta.Name, meta.ID)
	if err := export.WritePNG(f, result.Samples, title, pngWidth, pngHeight); err != nil {
		return logging.WrapError(err, "write %s", out)
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}

func comparePresets(cmd *cobra.Command, args []string) error {
	params := make([]dynamo.Params, len(args))
	for i, name := range args {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		params[i] = cfg.Params()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	ens := sim.NewEnsemble(params, func() []dynamo.Metric { return metrics.Default(integrators.FixedDt) })
	results, err := ens.Run(ctx, steps)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("comparing presets (%d steps, %.1fs simulated)\n\n", steps, float64(steps)*integrators.FixedDt)
	fmt.Printf("%-12s  %10s  %10s  %12s  %12s  %6s\n", "preset", "final_x2", "final_z2", "energy_drift", "rod_error", "flips")
	fmt.Println(strings.Repeat("-", 70))

	for i, r := range results {
		fmt.Printf("%-12s  %10.3f  %10.3f  %12.2e  %12.2e  %6.0f\n",
			args[i],
			r.Final.P2.X,
			r.Final.P2.Z,
			r.Metrics["energy_drift"],
			r.Metrics["rod_error"],
			r.Metrics["flips"],
		)
	}

	fmt.Printf("\ntotal time: %v\n", elapsed)
	return nil
}

func benchIntegrator(cmd *cobra.Command, args []string) error {
	p := config.DefaultConfig().Params()

	fmt.Println("benchmarking verlet + constraint solver")
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPS\tSIMULATED\tTIME\tSTEPS/SEC")

	for _, n := range []int{600, 6000, 60000} {
		integ, s := integrators.NewVerlet(p)
		start := time.Now()
		for i := 0; i < n; i++ {
			s = integ.Step(s, p)
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%d\t%.0fs\t%v\t%.0f\n",
			n, float64(n)*integrators.FixedDt, elapsed, float64(n)/elapsed.Seconds())
	}

	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTHETA1\tPHI1\tTHETA2\tPHI2\tL1\tL2\tG")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.1f\n",
			name,
			cfg.Initial.Theta1, cfg.Initial.Phi1,
			cfg.Initial.Theta2, cfg.Initial.Phi2,
			cfg.Physics.L1, cfg.Physics.L2,
			cfg.Physics.Gravity,
		)
	}
	return w.Flush()
}
