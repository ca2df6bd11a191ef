package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/lander/internal/mission"
)

// PlotOptions sizes a chart in terminal cells.
type PlotOptions struct {
	Width  int
	Height int
}

var DefaultPlotOptions = PlotOptions{Width: 80, Height: 12}

func (o PlotOptions) graph(caption string, extra ...asciigraph.Option) []asciigraph.Option {
	opts := []asciigraph.Option{
		asciigraph.Height(o.Height),
		asciigraph.Width(o.Width),
		asciigraph.Caption(caption),
		asciigraph.Precision(2),
	}
	return append(opts, extra...)
}

func column(records []mission.Record, f func(mission.Record) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = f(r)
	}
	return out
}

// PlotHeight draws the true, measured and estimated height.
func PlotHeight(records []mission.Record, o PlotOptions) string {
	if len(records) == 0 {
		return ""
	}
	series := [][]float64{
		column(records, func(r mission.Record) float64 { return r.Measurement }),
		column(records, func(r mission.Record) float64 { return r.Height }),
		column(records, func(r mission.Record) float64 { return r.EstHeight }),
	}
	return asciigraph.PlotMany(series, o.graph("height [m]",
		asciigraph.SeriesColors(asciigraph.DarkGray, asciigraph.Green, asciigraph.Red),
		asciigraph.SeriesLegends("measured", "true", "estimate"),
	)...)
}

// PlotVelocity draws the true and estimated vertical velocity.
func PlotVelocity(records []mission.Record, o PlotOptions) string {
	if len(records) == 0 {
		return ""
	}
	series := [][]float64{
		column(records, func(r mission.Record) float64 { return r.Velocity }),
		column(records, func(r mission.Record) float64 { return r.EstVelocity }),
	}
	return asciigraph.PlotMany(series, o.graph("velocity [m/s]",
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.SeriesLegends("true", "estimate"),
	)...)
}

// PlotGravity draws the gravity estimate against the true value.
func PlotGravity(records []mission.Record, gravity float64, o PlotOptions) string {
	if len(records) == 0 {
		return ""
	}
	truth := make([]float64, len(records))
	for i := range truth {
		truth[i] = gravity
	}
	series := [][]float64{
		truth,
		column(records, func(r mission.Record) float64 { return r.EstGravity }),
	}
	return asciigraph.PlotMany(series, o.graph(fmt.Sprintf("gravity [m/s²], true %.3g", gravity),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.SeriesLegends("true", "estimate"),
	)...)
}

// PlotControl draws the commanded thrust.
func PlotControl(records []mission.Record, o PlotOptions) string {
	if len(records) == 0 {
		return ""
	}
	return asciigraph.Plot(column(records, func(r mission.Record) float64 { return r.Thrust }),
		o.graph("thrust [m/s²]", asciigraph.SeriesColors(asciigraph.Blue))...)
}

// PlotInnovation draws the measurement residual.
func PlotInnovation(records []mission.Record, o PlotOptions) string {
	if len(records) == 0 {
		return ""
	}
	return asciigraph.Plot(column(records, func(r mission.Record) float64 { return r.Innovation }),
		o.graph("innovation [m]", asciigraph.SeriesColors(asciigraph.Yellow))...)
}

// PlotGains draws every entry of a flattened gain schedule over the
// horizon. names labels the columns.
func PlotGains(gains [][]float64, names []string, o PlotOptions) string {
	if len(gains) == 0 || len(gains[0]) == 0 {
		return ""
	}
	series := make([][]float64, len(gains[0]))
	for j := range series {
		series[j] = make([]float64, len(gains))
		for i, row := range gains {
			if j < len(row) {
				series[j][i] = row[j]
			}
		}
	}
	colors := []asciigraph.AnsiColor{asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan}
	opts := []asciigraph.Option{asciigraph.SeriesColors(colors[:min(len(series), len(colors))]...)}
	if len(names) == len(series) {
		opts = append(opts, asciigraph.SeriesLegends(names...))
	}
	return asciigraph.PlotMany(series, o.graph("gain K[i]", opts...)...)
}
