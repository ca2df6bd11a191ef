package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/lander/internal/tune"
	"github.com/spf13/cobra"
)

// parseParam splits "name=v1,v2,..." into its name and values.
func parseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("bad --param %q, want name=v1,v2,...", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("bad --param %q: %w", s, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func tuneParameters(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required (tunable: %s)", strings.Join(tune.Params(), ", "))
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

	var (
		names  []string
		ranges [][]float64
	)
	for _, p := range tuneParams {
		name, values, err := parseParam(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := tune.NewGridSearch(names, ranges).Runs(tuneRuns).Workers(workers)
	log.Info("grid search started", "points", g.Size(), "runs", tuneRuns, "metric", tuneMetric)
	trials, err := g.Search(ctx, cfg, tuneMetric)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	fmt.Fprintf(w, "RANK\t%s\t%s\n", strings.ToUpper(strings.Join(sorted, "\t")), strings.ToUpper(tuneMetric))
	for i, tr := range trials {
		cells := make([]string, len(sorted))
		for j, name := range sorted {
			cells[j] = strconv.FormatFloat(tr.Params[name], 'g', 6, 64)
		}
		score := fmt.Sprintf("%.4g", tr.Score)
		if math.IsInf(tr.Score, 1) {
			score = "-"
			if tr.Err != nil {
				log.Debug("grid point rejected", "params", tr.Params, "err", tr.Err)
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, strings.Join(cells, "\t"), score)
	}
	return w.Flush()
}
