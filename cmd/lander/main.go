package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/logging"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       uint64
	integrator string
	controller string
	policy     string
	horizon    int
	height     float64
	gravity    float64
	maxThrust  float64
	sigmaM     float64
	logLevel   string
	logFile    string

	// solve
	dump bool

	// plot
	series string

	// export
	output  string
	svgPlot string

	// tune
	tuneParams []string
	tuneMetric string
	tuneRuns   int

	// ensemble
	runs    int
	workers int

	// filter
	csvOut bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lander",
		Short:         "falling-body lander: Kalman estimation and LQR descent control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".lander", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a named preset")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "TRACE, DEBUG, INFO, WARN or ERROR")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also log to this file, rotated")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "fly one mission and store it",
		RunE:  runMission,
	}
	addMissionFlags(runCmd)

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve the finite-horizon regulator and print the gain schedule",
		RunE:  solveRegulator,
	}
	addMissionFlags(solveCmd)
	solveCmd.Flags().BoolVar(&dump, "dump", false, "print every matrix of the recursion")

	filterCmd := &cobra.Command{
		Use:   "filter [measurements.csv]",
		Short: "run the Kalman filter over recorded height measurements (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  filterMeasurements,
	}
	addMissionFlags(filterCmd)
	filterCmd.Flags().BoolVar(&csvOut, "csv", false, "write estimates as CSV")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&series, "series", "all", "height, velocity, gravity, control, innovation, gains or all")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&svgPlot, "svg", "", "write an SVG chart of height, velocity, gravity, thrust or innovation instead of JSON")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search controller and filter parameters",
		Long:  "Flies the mission at every combination of --param values and ranks them by the mean of --metric.",
		RunE:  tuneParameters,
	}
	addMissionFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "touchdown_speed", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneRuns, "runs", 5, "seeds per grid point")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "concurrent missions (default NumCPU)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fly a mission with a live terminal view",
		RunE:  liveMission,
	}
	addMissionFlags(liveCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "fly the same mission over many seeds and summarize",
		RunE:  runEnsemble,
	}
	addMissionFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 20, "number of missions")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "concurrent missions (default NumCPU)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "fly a scripted sequence of missions and store each one",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, solveCmd, filterCmd, listCmd, plotCmd, exportCmd, liveCmd, ensembleCmd, tuneCmd, scenarioCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addMissionFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", d.Dt, "time step")
	f.Float64VarP(&duration, "time", "t", d.Duration, "mission duration")
	f.Uint64Var(&seed, "seed", d.Seed, "noise seed")
	f.StringVar(&integrator, "integrator", d.Integrator, "euler or rk4")
	f.StringVar(&controller, "controller", d.Controller.Type, "lqr, pid or none")
	f.StringVar(&policy, "policy", d.Controller.Policy, "LQR gain policy: receding or schedule")
	f.IntVar(&horizon, "horizon", d.Regulator.Horizon, "LQR horizon N")
	f.Float64Var(&height, "height", d.Plant.Height, "initial height")
	f.Float64Var(&gravity, "gravity", d.Plant.Gravity, "true gravity")
	f.Float64Var(&maxThrust, "max-thrust", d.Controller.MaxThrust, "thrust limit, 0 for none")
	f.Float64Var(&sigmaM, "sigma-m", d.Plant.SigmaM, "measurement noise standard deviation")
}

// loadConfig layers defaults, then the preset, then the config file, then
// the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller.Type = controller
	}
	if flags.Changed("policy") {
		cfg.Controller.Policy = policy
	}
	if flags.Changed("horizon") {
		cfg.Regulator.Horizon = horizon
	}
	if flags.Changed("height") {
		cfg.Plant.Height = height
	}
	if flags.Changed("gravity") {
		cfg.Plant.Gravity = gravity
	}
	if flags.Changed("max-thrust") {
		cfg.Controller.MaxThrust = maxThrust
	}
	if flags.Changed("sigma-m") {
		cfg.Plant.SigmaM = sigmaM
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.Filename = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return log, closer, nil
}

// runName labels stored runs by preset, or by controller when none was
// chosen.
func runName(cfg *config.Config) string {
	if preset != "" {
		return preset
	}
	return cfg.Controller.Type
}
