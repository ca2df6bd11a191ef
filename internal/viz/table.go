package viz

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/san-kum/lander/internal/metrics"
	"github.com/san-kum/lander/internal/regulator"
	"github.com/san-kum/lander/internal/storage"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("#00ffff"))
			}
			if col > 0 {
				return s.Align(lipgloss.Right)
			}
			return s
		})
}

func num(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

// MetricsTable lists metric values by name.
func MetricsTable(m map[string]float64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable("metric", "value")
	for _, name := range names {
		t.Row(name, num(m[name]))
	}
	return t.Render()
}

// SummaryTable lists ensemble statistics per metric.
func SummaryTable(sum []metrics.Summary) string {
	t := newTable("metric", "mean", "std", "min", "median", "max")
	for _, s := range sum {
		t.Row(s.Name, num(s.Mean), num(s.StdDev), num(s.Min), num(s.Median), num(s.Max))
	}
	return t.Render()
}

// RunsTable lists stored runs.
func RunsTable(runs []storage.RunMetadata) string {
	t := newTable("id", "controller", "seed", "steps", "reason", "g err", "touchdown")
	for _, r := range runs {
		t.Row(r.ID, r.Controller, fmt.Sprint(r.Seed), fmt.Sprint(r.Steps), r.Reason,
			metricCell(r.Metrics, "gravity_error"), metricCell(r.Metrics, "touchdown_speed"))
	}
	return t.Render()
}

func metricCell(m map[string]float64, name string) string {
	v, ok := m[name]
	if !ok {
		return "-"
	}
	return num(v)
}

// ScheduleTable lists K[i] and the trace of P[i] for every step of the
// horizon. labels names the state components.
func ScheduleTable(s *regulator.GainSchedule, labels []string) (string, error) {
	k0, err := s.Gain(0)
	if err != nil {
		return "", err
	}
	p, n := k0.Dims()

	headers := []string{"i"}
	for r := 0; r < p; r++ {
		for c := 0; c < n; c++ {
			name := fmt.Sprint(c)
			if c < len(labels) {
				name = labels[c]
			}
			if p > 1 {
				name = fmt.Sprintf("u%d·%s", r, name)
			}
			headers = append(headers, "K "+name)
		}
	}
	headers = append(headers, "tr P")

	t := newTable(headers...)
	for i := 0; i < s.Len(); i++ {
		k, err := s.Gain(i)
		if err != nil {
			return "", err
		}
		cost, err := s.CostToGo(i)
		if err != nil {
			return "", err
		}
		row := []string{fmt.Sprint(i)}
		for r := 0; r < p; r++ {
			for c := 0; c < n; c++ {
				row = append(row, num(k.At(r, c)))
			}
		}
		tr := 0.0
		for j := 0; j < n; j++ {
			tr += cost.At(j, j)
		}
		t.Row(append(row, num(tr))...)
	}
	return t.Render(), nil
}
