package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/export"
	"github.com/san-kum/lander/internal/mission"
	"github.com/san-kum/lander/internal/scenario"
	"github.com/san-kum/lander/internal/storage"
	"github.com/san-kum/lander/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

var stateLabels = []string{"h", "v", "g"}

func runMission(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	r, err := mission.Build(cfg, mission.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("mission started", "controller", cfg.Controller.Type, "integrator", cfg.Integrator, "seed", cfg.Seed, "dt", cfg.Dt)
	start := time.Now()
	res, err := r.Run(ctx)
	if err != nil && res == nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	runID, saveErr := st.Save(runMetadata(runName(cfg), cfg), res, r.Schedule())
	if saveErr != nil {
		return fmt.Errorf("save run: %w", saveErr)
	}
	log.Info("run stored", "id", runID, "dir", st.Dir())

	final := res.Final()
	fmt.Println(viz.Header("mission " + runID))
	fmt.Println(viz.KV("reason", string(res.Reason)))
	fmt.Println(viz.KV("steps", fmt.Sprint(res.Steps)))
	fmt.Println(viz.KV("elapsed", elapsed.String()))
	fmt.Println(viz.KV("final h", fmt.Sprintf("%.3f (est %.3f)", final.Height, final.EstHeight)))
	fmt.Println(viz.KV("final v", fmt.Sprintf("%.3f (est %.3f)", final.Velocity, final.EstVelocity)))
	fmt.Println(viz.KV("gravity", fmt.Sprintf("%.4f (est %.4f)", cfg.Plant.Gravity, final.EstGravity)))
	fmt.Println(viz.MetricsTable(res.Metrics))
	return err
}

// runMetadata fills the configuration fields of a stored run.
func runMetadata(name string, cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Name:       name,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller.Type,
		Policy:     cfg.Controller.Policy,
		Horizon:    cfg.Regulator.Horizon,
		Gravity:    cfg.Plant.Gravity,
	}
}

func solveRegulator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := mission.NewRegulator(cfg)
	if err != nil {
		return err
	}
	if err := reg.Solve(); err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	if dump {
		return reg.Dump(os.Stdout)
	}

	schedule, err := reg.Schedule()
	if err != nil {
		return err
	}
	table, err := viz.ScheduleTable(schedule, stateLabels)
	if err != nil {
		return err
	}
	fmt.Println(viz.Header(fmt.Sprintf("gain schedule, dt=%.4g N=%d", cfg.Dt, reg.Horizon())))
	fmt.Println(table)

	x0 := mat.NewVecDense(3, append([]float64(nil), cfg.Estimator.InitialState...))
	if t := cfg.Controller.Target; len(t) == 3 {
		x0.SubVec(x0, mat.NewVecDense(3, append([]float64(nil), t...)))
	}
	cost, err := schedule.Cost(x0)
	if err != nil {
		return err
	}
	fmt.Println(viz.KV("J*(x̂0)", fmt.Sprintf("%.6g", cost)))
	return nil
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
	fmt.Println(viz.RunsTable(runs))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID := args[0]
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	records, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no trajectory", runID)
	}

	o := viz.DefaultPlotOptions
	want := func(name string) bool { return series == "all" || series == name }
	var plots []string
	if want("height") {
		plots = append(plots, viz.PlotHeight(records, o))
	}
	if want("velocity") {
		plots = append(plots, viz.PlotVelocity(records, o))
	}
	if want("gravity") {
		plots = append(plots, viz.PlotGravity(records, meta.Gravity, o))
	}
	if want("control") {
		plots = append(plots, viz.PlotControl(records, o))
	}
	if want("innovation") {
		plots = append(plots, viz.PlotInnovation(records, o))
	}
	if want("gains") {
		if gains, err := st.LoadGains(runID); err == nil {
			plots = append(plots, viz.PlotGains(gains, stateLabels, o))
		} else if series == "gains" {
			return err
		}
	}
	if len(plots) == 0 {
		return fmt.Errorf("unknown series: %s", series)
	}

	fmt.Println(viz.Header(fmt.Sprintf("%s  (%s, %d steps)", runID, meta.Reason, meta.Steps)))
	fmt.Println(strings.Join(plots, "\n\n"))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if svgPlot != "" {
		return exportSVG(st, args[0])
	}
	if output == "" {
		return st.ExportJSON(os.Stdout, args[0])
	}
	if err := st.ExportJSONFile(output, args[0]); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], output)
	return nil
}

func exportSVG(st *storage.Store, runID string) error {
	records, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	chart, err := export.TrajectoryChart(records, svgPlot, 900, 400)
	if err != nil {
		return err
	}
	chart.Title = runID + ": " + chart.Title
	if output == "" {
		return chart.WriteSVG(os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := chart.WriteSVG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("exported %s %s to %s\n", runID, svgPlot, output)
	return nil
}

func liveMission(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the terminal belongs to the live view; keep only the file log
	logCfg := cfg.Log
	logCfg.Console = false
	cfg.Log = logCfg
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	title := runName(cfg)
	model, err := viz.NewLive(title, func() (*mission.Runner, error) {
		return mission.Build(cfg.Clone(), mission.WithLogger(log))
	})
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return model.Err()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	out, err := mission.NewEnsemble(cfg, runs).Workers(workers).Run(ctx)
	if err != nil {
		return err
	}
	log.Info("ensemble finished", "runs", runs, "elapsed", time.Since(start))

	landed := 0
	for _, r := range out.Results {
		if r.Reason == mission.Landed {
			landed++
		}
	}
	fmt.Println(viz.Header(fmt.Sprintf("%d missions, seeds %d..%d", runs, out.Seeds[0], out.Seeds[len(out.Seeds)-1])))
	fmt.Println(viz.KV("landed", fmt.Sprintf("%d/%d", landed, runs)))
	fmt.Println(viz.SummaryTable(out.Summary))
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes, runErr := scenario.Run(ctx, sc, log)

	st := storage.New(dataDir)
	var stored []storage.RunMetadata
	for i, o := range outcomes {
		name := o.Step.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", sc.Name, i+1)
		}
		runID, err := st.Save(runMetadata(name, o.Config), o.Result, o.Runner.Schedule())
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		stored = append(stored, *meta)
	}

	fmt.Println(viz.Header(fmt.Sprintf("scenario %s: %d/%d steps", sc.Name, len(outcomes), len(sc.Steps))))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	if len(stored) > 0 {
		fmt.Println(viz.RunsTable(stored))
	}
	return runErr
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.Describe(name))
	}
	return w.Flush()
}
