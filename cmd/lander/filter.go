package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/estimator"
	"github.com/san-kum/lander/internal/mission"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// measurement is one row of a measurement log: a height reading and the
// thrust applied since the previous reading.
type measurement struct {
	y float64
	u float64
}

// readMeasurements parses a CSV with a header row. The height column is
// named y (or h); an optional u column holds the thrust.
func readMeasurements(r io.Reader) ([]measurement, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty measurement file")
		}
		return nil, err
	}
	yCol, uCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "y", "h":
			if yCol < 0 {
				yCol = i
			}
		case "u":
			uCol = i
		}
	}
	if yCol < 0 {
		return nil, fmt.Errorf("no y column in header %v", header)
	}

	var out []measurement
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var m measurement
		if m.y, err = strconv.ParseFloat(row[yCol], 64); err != nil {
			return nil, fmt.Errorf("line %d: y: %w", line, err)
		}
		if uCol >= 0 && row[uCol] != "" {
			if m.u, err = strconv.ParseFloat(row[uCol], 64); err != nil {
				return nil, fmt.Errorf("line %d: u: %w", line, err)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

type estimate struct {
	step  int
	y     float64
	x     []float64
	inn   float64
	trace float64
}

// replay feeds the measurements through f in order. The thrust of row k is
// the control applied between readings k-1 and k.
func replay(f *estimator.Filter, ms []measurement) ([]estimate, error) {
	out := make([]estimate, 0, len(ms))
	for i, m := range ms {
		x, err := f.Update(mat.NewVecDense(1, []float64{m.y}), mat.NewVecDense(1, []float64{m.u}))
		if err != nil {
			return out, err
		}
		out = append(out, estimate{
			step:  i,
			y:     m.y,
			x:     []float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)},
			inn:   f.Innovation().AtVec(0),
			trace: mat.Trace(f.Covariance()),
		})
	}
	return out, nil
}

func filterMeasurements(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	in := os.Stdin
	if args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	ms, err := readMeasurements(in)
	if err != nil {
		return fmt.Errorf("read measurements: %w", err)
	}

	f, err := mission.NewFilter(cfg)
	if err != nil {
		return err
	}
	estimates, err := replay(f, ms)
	if err != nil {
		log.Error("filter stopped", "step", len(estimates), "err", err)
	}
	if werr := writeEstimates(os.Stdout, cfg, estimates); werr != nil {
		return werr
	}
	return err
}

func writeEstimates(w io.Writer, cfg *config.Config, estimates []estimate) error {
	if csvOut {
		cw := csv.NewWriter(w)
		cw.Write([]string{"step", "t", "y", "h_est", "v_est", "g_est", "innovation", "trace_p"})
		for _, e := range estimates {
			cw.Write([]string{
				strconv.Itoa(e.step),
				formatFloat(float64(e.step+1) * cfg.Dt),
				formatFloat(e.y),
				formatFloat(e.x[0]),
				formatFloat(e.x[1]),
				formatFloat(e.x[2]),
				formatFloat(e.inn),
				formatFloat(e.trace),
			})
		}
		cw.Flush()
		return cw.Error()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "STEP\tT\tY\tH_EST\tV_EST\tG_EST\tINNOV\tTR(P)\t")
	for _, e := range estimates {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%.3f\t%.4f\t%.3f\t%.4g\t\n",
			e.step, float64(e.step+1)*cfg.Dt, e.y, e.x[0], e.x[1], e.x[2], e.inn, e.trace)
	}
	return tw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
