package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/lander/internal/dynamo"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestControlEffort(t *testing.T) {
	c := NewControlEffort()
	if c.Value() != 0 {
		t.Error("empty metric should be 0")
	}
	c.Observe(dynamo.Sample{Control: dynamo.Control{2}})
	c.Observe(dynamo.Sample{Control: dynamo.Control{-4}})
	if !approx(c.Value(), 3) {
		t.Errorf("expected 3, got %f", c.Value())
	}
	c.Observe(dynamo.Sample{Control: dynamo.Control{0}, Terminal: true})
	if !approx(c.Value(), 3) {
		t.Errorf("terminal sample counted: got %f", c.Value())
	}
	c.Reset()
	if c.Value() != 0 {
		t.Error("reset should clear samples")
	}
}

func TestHeightRMSE(t *testing.T) {
	m := NewHeightRMSE()
	m.Observe(dynamo.Sample{Truth: dynamo.State{10, 0}, Estimate: dynamo.State{13, 0, 0}})
	m.Observe(dynamo.Sample{Truth: dynamo.State{10, 0}, Estimate: dynamo.State{6, 0, 0}})
	// sqrt((9 + 16) / 2)
	if want := math.Sqrt(12.5); !approx(m.Value(), want) {
		t.Errorf("expected %f, got %f", want, m.Value())
	}

	// samples without an estimate are ignored
	m.Observe(dynamo.Sample{Truth: dynamo.State{10, 0}})
	if want := math.Sqrt(12.5); !approx(m.Value(), want) {
		t.Errorf("expected %f, got %f", want, m.Value())
	}
}

func TestGravityError(t *testing.T) {
	m := NewGravityError(9.81)
	if !math.IsNaN(m.Value()) {
		t.Error("unobserved gravity error should be NaN")
	}
	m.Observe(dynamo.Sample{Estimate: dynamo.State{0, 0, 5}})
	m.Observe(dynamo.Sample{Estimate: dynamo.State{0, 0, 9.5}})
	if !approx(m.Value(), 0.31) {
		t.Errorf("expected 0.31, got %f", m.Value())
	}
	m.Reset()
	if !math.IsNaN(m.Value()) {
		t.Error("reset should clear the estimate")
	}
}

func TestTouchdownSpeed(t *testing.T) {
	m := NewTouchdownSpeed()
	m.Observe(dynamo.Sample{Truth: dynamo.State{5, -3}})
	m.Observe(dynamo.Sample{Truth: dynamo.State{0, -7}})
	if m.Value() != 7 {
		t.Errorf("expected 7, got %f", m.Value())
	}
}

func TestInnovationSpread(t *testing.T) {
	m := NewInnovationSpread()
	m.Observe(dynamo.Sample{Innovation: []float64{1}})
	if m.Value() != 0 {
		t.Error("single sample has no spread")
	}
	m.Observe(dynamo.Sample{Innovation: []float64{-1}})
	// unbiased: sqrt(((1)^2 + (-1)^2) / 1)
	if !approx(m.Value(), math.Sqrt2) {
		t.Errorf("expected sqrt2, got %f", m.Value())
	}
}

func TestStandard(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Standard(1) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
	for _, name := range []string{"height_rmse", "gravity_error", "control_effort", "touchdown_speed"} {
		if !seen[name] {
			t.Errorf("missing metric %s", name)
		}
	}
}

func TestSummarize(t *testing.T) {
	runs := []map[string]float64{
		{"a": 1, "b": math.NaN()},
		{"a": 3, "b": 5},
		{"a": 2},
	}
	sum := Summarize(runs)
	if len(sum) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sum))
	}
	a := sum[0]
	if a.Name != "a" || !approx(a.Mean, 2) || !approx(a.StdDev, 1) || a.Min != 1 || a.Max != 3 || a.Median != 2 {
		t.Errorf("unexpected summary %+v", a)
	}
	b := sum[1]
	if b.Name != "b" || b.Mean != 5 || b.StdDev != 0 {
		t.Errorf("unexpected summary %+v", b)
	}
}
