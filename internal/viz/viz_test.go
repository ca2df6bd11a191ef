package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/lander/internal/config"
	"github.com/san-kum/lander/internal/metrics"
	"github.com/san-kum/lander/internal/mission"
	"github.com/san-kum/lander/internal/regulator"
	"github.com/san-kum/lander/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	w, h := c.Dots()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)

	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	assert.Equal(t, rune(brailleBlank|0x1), c.Grid[0][0])
	assert.Equal(t, rune(brailleBlank|0x80), c.Grid[0][1])

	c.Clear()
	assert.Equal(t, string([]rune{brailleBlank, brailleBlank})+"\n", c.String())
}

func TestCanvasShapes(t *testing.T) {
	c := NewCanvas(4, 2)
	c.DrawRect(0, 0, 7, 7)
	for _, row := range c.Grid {
		for _, cell := range row {
			assert.NotEqual(t, rune(brailleBlank), cell)
		}
	}

	c.Clear()
	c.DrawDashedHLine(0, 7, 0)
	assert.NotEqual(t, rune(brailleBlank), c.Grid[0][0])
	assert.Equal(t, rune(brailleBlank), c.Grid[0][1])
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▄█", Sparkline([]float64{0, 0.5, 1}, 10))
	assert.Equal(t, "▁█", Sparkline([]float64{5, 0, 1}, 2))
	assert.Equal(t, "───", Sparkline(nil, 3))
}

func noiselessRecords(t *testing.T) (*mission.Result, *config.Config) {
	t.Helper()
	cfg := config.GetPreset("noiseless")
	cfg.Duration = 2
	r, err := mission.Build(cfg)
	require.NoError(t, err)
	res, err := r.Run(t.Context())
	require.NoError(t, err)
	return res, cfg
}

func TestPlots(t *testing.T) {
	res, cfg := noiselessRecords(t)
	o := PlotOptions{Width: 40, Height: 6}

	assert.Contains(t, PlotHeight(res.Records, o), "height [m]")
	assert.Contains(t, PlotVelocity(res.Records, o), "velocity")
	assert.Contains(t, PlotGravity(res.Records, cfg.Plant.Gravity, o), "gravity")
	assert.Contains(t, PlotControl(res.Records, o), "thrust")
	assert.Contains(t, PlotInnovation(res.Records, o), "innovation")

	assert.Empty(t, PlotHeight(nil, o))
	assert.Empty(t, PlotGains(nil, nil, o))
	assert.Contains(t, PlotGains([][]float64{{1, 2}, {0.5, 1}}, []string{"h", "v"}, o), "gain")
}

func TestTables(t *testing.T) {
	out := MetricsTable(map[string]float64{"height_rmse": 0.25, "gravity_error": 0.01})
	assert.Contains(t, out, "height_rmse")
	assert.Contains(t, out, "0.25")
	assert.Less(t, strings.Index(out, "gravity_error"), strings.Index(out, "height_rmse"))

	out = SummaryTable([]metrics.Summary{{Name: "touchdown_speed", Mean: 2, StdDev: 0.1}})
	assert.Contains(t, out, "touchdown_speed")

	out = RunsTable([]storage.RunMetadata{{ID: "moon_1", Controller: "lqr", Metrics: map[string]float64{"gravity_error": 0.5}}})
	assert.Contains(t, out, "moon_1")
	assert.Contains(t, out, "0.5")
}

func TestScheduleTable(t *testing.T) {
	reg, err := mission.NewRegulator(config.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, reg.Solve())
	s, err := reg.Schedule()
	require.NoError(t, err)

	out, err := ScheduleTable(s, []string{"h", "v", "g"})
	require.NoError(t, err)
	assert.Contains(t, out, "K h")
	assert.Contains(t, out, "tr P")

	var empty regulator.GainSchedule
	_, err = ScheduleTable(&empty, nil)
	assert.ErrorIs(t, err, regulator.ErrIndexOutOfRange)
}

func newLive(t *testing.T) *Live {
	t.Helper()
	cfg := config.GetPreset("noiseless")
	cfg.Duration = 1
	m, err := NewLive("noiseless", func() (*mission.Runner, error) { return mission.Build(cfg) })
	require.NoError(t, err)
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLiveTicks(t *testing.T) {
	m := newLive(t)
	assert.NotNil(t, m.Init())

	m.Update(TickMsg{})
	assert.Equal(t, 1, m.Runner().Steps())

	m.Update(key("+"))
	m.Update(TickMsg{})
	assert.Equal(t, 3, m.Runner().Steps())

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m.Update(TickMsg{})
	assert.Equal(t, 3, m.Runner().Steps())
	assert.Contains(t, m.View(), "PAUSED")

	m.Update(key("s"))
	assert.Equal(t, 4, m.Runner().Steps())
}

func TestLiveRunsToEndAndResets(t *testing.T) {
	m := newLive(t)
	for i := 0; i < 10; i++ {
		m.Update(key("+"))
	}
	for i := 0; i < 5 && !m.Runner().Done(); i++ {
		m.Update(TickMsg{})
	}
	require.True(t, m.Runner().Done())
	assert.NoError(t, m.Err())
	view := m.View()
	assert.Contains(t, view, "NOISELESS")
	assert.Contains(t, view, "DURATION")

	m.Update(key("r"))
	assert.Zero(t, m.Runner().Steps())
	assert.False(t, m.Runner().Done())
}

func TestLiveQuit(t *testing.T) {
	m := newLive(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
