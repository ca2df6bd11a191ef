package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/lander/internal/mission"
)

const (
	canvasWidth     = 24
	canvasHeight    = 20
	historyCapacity = 600
	frameRate       = 30
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

type TickMsg time.Time

// Factory builds a fresh mission; the live view calls it on start and on
// every reset.
type Factory func() (*mission.Runner, error)

// Live is a bubbletea model that steps a mission on a timer and draws the
// descent next to the filter's estimates.
type Live struct {
	title   string
	factory Factory
	runner  *mission.Runner
	canvas  *Canvas

	top     float64
	last    mission.Record
	heights []float64
	gravity []float64

	running bool
	speed   int
	err     error
}

// NewLive builds the first mission. title is shown in the header.
func NewLive(title string, factory Factory) (*Live, error) {
	m := &Live{title: title, factory: factory, canvas: NewCanvas(canvasWidth, canvasHeight)}
	if err := m.reset(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Live) reset() error {
	r, err := m.factory()
	if err != nil {
		return err
	}
	m.runner = r
	m.top = math.Max(1, r.Plant().Height()*1.1)
	m.last = mission.Record{Height: r.Plant().Height()}
	m.heights = m.heights[:0]
	m.gravity = m.gravity[:0]
	m.running = true
	m.speed = 1
	m.err = nil
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Live) Init() tea.Cmd {
	return tick()
}

// Update handles keys and advances the mission by speed steps per tick.
func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "+", "=":
			m.speed = min(m.speed*2, 64)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "s":
			m.step()
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.speed && !m.runner.Done(); i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m *Live) step() {
	if m.runner.Done() {
		return
	}
	rec, err := m.runner.Step()
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	if term, ok := m.runner.Terminal(); ok {
		m.heights = appendCapped(m.heights, rec.Height)
		m.gravity = appendCapped(m.gravity, rec.EstGravity)
		rec = term
	}
	m.last = rec
	m.heights = appendCapped(m.heights, rec.Height)
	m.gravity = appendCapped(m.gravity, rec.EstGravity)
	if m.runner.Done() {
		m.running = false
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// draw puts the lander at its true height and a dashed marker at the
// estimated height.
func (m *Live) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	ground := h - 1
	m.canvas.DrawLine(0, ground, w-1, ground)

	y := func(height float64) int {
		frac := math.Max(0, math.Min(1, height/m.top))
		return ground - 1 - int(frac*float64(ground-5))
	}

	cx := w / 2
	ly := y(m.last.Height)
	m.canvas.DrawRect(cx-3, ly-4, cx+3, ly)
	m.canvas.DrawLine(cx-3, ly, cx-5, ly+2)
	m.canvas.DrawLine(cx+3, ly, cx+5, ly+2)
	if m.last.Thrust > 0 {
		flame := min(6, int(m.last.Thrust/3)+1)
		m.canvas.DrawLine(cx, ly+1, cx, ly+flame)
	}

	m.canvas.DrawDashedHLine(0, w-1, y(m.last.EstHeight))
}

func (m *Live) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render("FAILED")
	case m.runner.Done():
		return StatusLanded.Render(strings.ToUpper(string(m.runner.Reason())))
	case !m.running:
		return StatusPaused.Render("PAUSED")
	default:
		return StatusRunning.Render(fmt.Sprintf("RUNNING x%d", m.speed))
	}
}

func (m *Live) View() string {
	m.draw()
	r := m.last
	p := m.runner.Plant()

	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.title)) + "  " + m.status() + "\n\n")
	s.WriteString(KV("time", fmt.Sprintf("%.2fs", p.Time())) + "\n")
	s.WriteString(KV("height", fmt.Sprintf("%8.2f  est %8.2f", r.Height, r.EstHeight)) + "\n")
	s.WriteString(KV("velocity", fmt.Sprintf("%8.2f  est %8.2f", r.Velocity, r.EstVelocity)) + "\n")
	s.WriteString(KV("gravity", fmt.Sprintf("%8.3f  est %8.3f", p.Gravity(), r.EstGravity)) + "\n")
	s.WriteString(KV("thrust", fmt.Sprintf("%8.2f", r.Thrust)) + "\n")
	s.WriteString(KV("innovation", fmt.Sprintf("%8.2f", r.Innovation)) + "\n")
	s.WriteString(KV("trace P", fmt.Sprintf("%8.4f", r.CovTrace)) + "\n")
	s.WriteString(KV("descent", ProgressBar(1-math.Max(0, r.Height)/m.top, 20)) + "\n")
	s.WriteString(KV("profile", Sparkline(m.heights, 30)) + "\n")

	if len(m.gravity) > 1 {
		chart := asciigraph.Plot(m.gravity, asciigraph.Height(5), asciigraph.Width(36), asciigraph.Caption("gravity estimate"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if m.err != nil {
		s.WriteString(StatusFailed.Render(m.err.Error()) + "\n")
	}
	s.WriteString(KeyHint.Render("space:pause  s:step  +/-:speed  r:reset  q:quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(s.String()))
}

// Runner exposes the mission being shown.
func (m *Live) Runner() *mission.Runner { return m.runner }

// Err is the error that stopped the mission, if any.
func (m *Live) Err() error { return m.err }
