package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/pendulum3d/internal/config"
	"github.com/san-kum/pendulum3d/internal/logging"
	"github.com/san-kum/pendulum3d/internal/viz"
)

var (
	dataDir    string
	logFile    string
	configFile string
	preset     string
	steps      int
	frameRate  int
	trail      int
	m1, m2     float64
	l1, l2     float64
	gravity    float64
	theta1     float64
	phi1       float64
	theta2     float64
	phi2       float64
	// run
	realtime bool
	// analyze
	perturb       float64
	lyapunovSteps int
	// plot
	axis string
	// sweep and search
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	gridSpecs   []string
	metricName  string
	maximize    bool
	// export-svg
	plane    string
	svgOut   string
	svgSize  int
	svgColor string
	// export-png
	pngOut    string
	pngWidth  float64
	pngHeight float64
)

// main registers the commands and runs the root command. With no
// subcommand the interactive preset menu opens.
func main() {
	rootCmd := &cobra.Command{
		Use:   "pendulum3d",
		Short: "3D double pendulum on rigid rods",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := tuiLogger()
			if err != nil {
				return err
			}
			defer closeLog()
			return viz.RunInteractive(log)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendulum3d", "data directory")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs of terminal UI sessions to this file")

	runCmd := &cobra.Command{
		Use:   "run [name]",
		Short: "run a headless simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addParamFlags(runCmd)
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace steps at --fps instead of running flat out")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addParamFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot bob positions over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&axis, "axis", "", "plot only this axis of bob 2 (x, y or z)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and divergence analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&perturb, "perturbation", 1e-3, "theta1 offset in degrees for the divergence estimate")
	analyzeCmd.Flags().IntVar(&lyapunovSteps, "lyapunov-steps", 3000, "steps for the divergence estimate")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the final state and trail of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&plane, "plane", "xz", "projection plane (xz, yz or xy)")
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgSize, "size", 800, "image width and height in pixels")
	exportSVGCmd.Flags().StringVar(&svgColor, "color", "#ff00ff", "trail color")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "chart bob 2 coordinates of a run as PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVarP(&pngOut, "out", "o", "", "output file (default <run_id>.png)")
	exportPNGCmd.Flags().Float64Var(&pngWidth, "width", 8, "width in inches")
	exportPNGCmd.Flags().Float64Var(&pngHeight, "height", 4, "height in inches")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [preset] ...",
		Short: "run several presets side by side",
		Args:  cobra.MinimumNArgs(1),
		RunE:  comparePresets,
	}
	compareCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark the integrator",
		Args:  cobra.NoArgs,
		RunE:  benchIntegrator,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return logging.WrapError(err, "write config")
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and store every step of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one parameter and compare the runs",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addParamFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "theta1", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 180, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 7, "number of values")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "grid search the starting configuration for a metric extreme",
		Args:  cobra.NoArgs,
		RunE:  runSearch,
	}
	addParamFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&gridSpecs, "grid", []string{"theta1=0,45,90,135,180"}, "param=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVar(&metricName, "metric", "flips", "metric to optimise")
	searchCmd.Flags().BoolVar(&maximize, "maximize", true, "maximise instead of minimise")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, analyzeCmd, exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, exportPNGCmd, compareCmd, benchCmd, presetsCmd, initCmd, scenarioCmd, sweepCmd, searchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&steps, "steps", def.Steps, "number of steps (headless runs)")
	cmd.Flags().IntVar(&frameRate, "fps", def.FPS, "frame rate")
	cmd.Flags().IntVar(&trail, "trail", def.TrailLength, "trail length")
	cmd.Flags().Float64Var(&m1, "m1", def.Physics.M1, "mass of bob 1")
	cmd.Flags().Float64Var(&m2, "m2", def.Physics.M2, "mass of bob 2")
	cmd.Flags().Float64Var(&l1, "l1", def.Physics.L1, "length of rod 1")
	cmd.Flags().Float64Var(&l2, "l2", def.Physics.L2, "length of rod 2")
	cmd.Flags().Float64Var(&gravity, "g", def.Physics.Gravity, "gravity")
	cmd.Flags().Float64Var(&theta1, "theta1", def.Initial.Theta1, "polar angle of rod 1 from straight down (degrees)")
	cmd.Flags().Float64Var(&phi1, "phi1", def.Initial.Phi1, "azimuth of rod 1 (degrees)")
	cmd.Flags().Float64Var(&theta2, "theta2", def.Initial.Theta2, "polar angle of rod 2 from straight down (degrees)")
	cmd.Flags().Float64Var(&phi2, "phi2", def.Initial.Phi2, "azimuth of rod 2 (degrees)")
}

// buildConfig layers defaults, preset, config file and explicitly set
// flags, in that order, and validates the result.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	// Config file overrides the preset
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	floats := []struct {
		name string
		src  float64
		dst  *float64
	}{
		{"m1", m1, &cfg.Physics.M1},
		{"m2", m2, &cfg.Physics.M2},
		{"l1", l1, &cfg.Physics.L1},
		{"l2", l2, &cfg.Physics.L2},
		{"g", gravity, &cfg.Physics.Gravity},
		{"theta1", theta1, &cfg.Initial.Theta1},
		{"phi1", phi1, &cfg.Initial.Phi1},
		{"theta2", theta2, &cfg.Initial.Theta2},
		{"phi2", phi2, &cfg.Initial.Phi2},
	}
	for _, f := range floats {
		if flags.Changed(f.name) {
			*f.dst = f.src
		}
	}
	if flags.Changed("trail") {
		cfg.TrailLength = trail
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("fps") {
		cfg.FPS = frameRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// tuiLogger returns a file logger when --log-file is set; otherwise logs
// are dropped since the terminal belongs to the UI.
func tuiLogger() (*logging.Logger, func(), error) {
	if logFile == "" {
		return logging.Discard(), func() {}, nil
	}
	log, f, err := logging.OpenFile(logFile)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { f.Close() }, nil
}
