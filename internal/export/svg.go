// Package export renders stored trajectories in formats meant for other
// tools.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/lander/internal/mission"
)

// Series is one polyline of a chart.
type Series struct {
	Name  string
	Color string
	X, Y  []float64
}

// Chart is a set of series drawn on shared axes.
type Chart struct {
	Title         string
	Width, Height int
	Series        []Series
}

type bounds struct{ minX, maxX, minY, maxY float64 }

func (c *Chart) bounds() (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	found := false
	for _, s := range c.Series {
		for i := range s.X {
			x, y := s.X[i], s.Y[i]
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(y, 0) {
				continue
			}
			found = true
			b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
			b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
		}
	}
	if !found {
		return b, false
	}

	// pad by 10% so lines do not touch the frame
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	if b.maxX == b.minX {
		b.maxX = b.minX + rangeX
	}
	return b, true
}

// WriteSVG renders the chart. NaN points break the polyline.
func (c *Chart) WriteSVG(w io.Writer) error {
	for _, s := range c.Series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("export: series %q has %d x and %d y values", s.Name, len(s.X), len(s.Y))
		}
	}
	b, ok := c.bounds()
	if !ok {
		return errors.New("export: nothing to plot")
	}

	const margin = 40.0
	width, height := float64(c.Width), float64(c.Height)
	plotW, plotH := width-2*margin, height-2*margin
	px := func(x float64) float64 { return margin + (x-b.minX)/(b.maxX-b.minX)*plotW }
	py := func(y float64) float64 { return margin + plotH - (y-b.minY)/(b.maxY-b.minY)*plotH }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g font-family="monospace" font-size="11" fill="#888">
`, c.Width, c.Height, c.Width, c.Height)
	if c.Title != "" {
		fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\" fill=\"#ccc\" font-size=\"13\">%s</text>\n", margin, margin/2, escape(c.Title))
	}
	fmt.Fprintf(&sb, "<rect x=\"%.1f\" y=\"%.1f\" width=\"%.1f\" height=\"%.1f\" fill=\"none\" stroke=\"#333\"/>\n", margin, margin, plotW, plotH)
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\">%.3g</text>\n", 2.0, margin+4, b.maxY)
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\">%.3g</text>\n", 2.0, margin+plotH, b.minY)
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\">%.3g</text>\n", margin, height-margin/2, b.minX)
	fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\" text-anchor=\"end\">%.3g</text>\n", margin+plotW, height-margin/2, b.maxX)
	if b.minY < 0 && b.maxY > 0 {
		fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\" stroke=\"#444\" stroke-dasharray=\"4 4\"/>\n", margin, py(0), margin+plotW, py(0))
	}
	sb.WriteString("</g>\n")

	for i, s := range c.Series {
		color := s.Color
		if color == "" {
			color = palette[i%len(palette)]
		}
		path := polyline(s, px, py)
		if path != "" {
			fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"%s\"/>\n", color, path)
		}
		fmt.Fprintf(&sb, "<text x=\"%.1f\" y=\"%.1f\" font-family=\"monospace\" font-size=\"11\" fill=\"%s\">%s</text>\n",
			margin+plotW-120, margin+14*float64(i+1), color, escape(s.Name))
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

var palette = []string{"#00ff00", "#00bfff", "#ff8c00", "#ff00ff", "#ffff00"}

func polyline(s Series, px, py func(float64) float64) string {
	var sb strings.Builder
	pen := false
	for i := range s.X {
		x, y := s.X[i], s.Y[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(y, 0) {
			pen = false
			continue
		}
		cmd := "L"
		if !pen {
			cmd = "M"
			pen = true
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, px(x), py(y))
	}
	return sb.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return escaper.Replace(s) }

// Quantities that TrajectoryChart can draw.
const (
	Height     = "height"
	Velocity   = "velocity"
	Gravity    = "gravity"
	Thrust     = "thrust"
	Innovation = "innovation"
)

// TrajectoryChart builds the chart of one quantity over time: truth and
// estimate for the state quantities, the raw measurement too for height.
func TrajectoryChart(records []mission.Record, quantity string, width, height int) (*Chart, error) {
	t := make([]float64, len(records))
	for i, r := range records {
		t[i] = r.Time
	}
	col := func(f func(mission.Record) float64) []float64 {
		out := make([]float64, len(records))
		for i, r := range records {
			out[i] = f(r)
		}
		return out
	}

	c := &Chart{Title: quantity + " vs time", Width: width, Height: height}
	switch quantity {
	case Height:
		c.Series = []Series{
			{Name: "measured", Color: "#555", X: t, Y: col(func(r mission.Record) float64 { return r.Measurement })},
			{Name: "true", X: t, Y: col(func(r mission.Record) float64 { return r.Height })},
			{Name: "estimated", X: t, Y: col(func(r mission.Record) float64 { return r.EstHeight })},
		}
	case Velocity:
		c.Series = []Series{
			{Name: "true", X: t, Y: col(func(r mission.Record) float64 { return r.Velocity })},
			{Name: "estimated", X: t, Y: col(func(r mission.Record) float64 { return r.EstVelocity })},
		}
	case Gravity:
		c.Series = []Series{
			{Name: "estimated", X: t, Y: col(func(r mission.Record) float64 { return r.EstGravity })},
		}
	case Thrust:
		c.Series = []Series{
			{Name: "thrust", X: t, Y: col(func(r mission.Record) float64 { return r.Thrust })},
		}
	case Innovation:
		c.Series = []Series{
			{Name: "innovation", X: t, Y: col(func(r mission.Record) float64 { return r.Innovation })},
		}
	default:
		return nil, fmt.Errorf("export: unknown quantity %q", quantity)
	}
	return c, nil
}
