package viz

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pendulum3d/internal/config"
	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/export"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/logging"
	"github.com/san-kum/pendulum3d/internal/metrics"
	"github.com/san-kum/pendulum3d/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	gifPath         = "pendulum.gif"
)

type TickMsg time.Time

// tunable is a parameter adjustable from the live view. key names its
// entry in config.Ranges.
type tunable struct {
	key   string
	step  float64
	field func(*dynamo.Params) *float64
}

var tunables = []tunable{
	{"g", 0.5, func(p *dynamo.Params) *float64 { return &p.G }},
	{"l1", 5, func(p *dynamo.Params) *float64 { return &p.L1 }},
	{"l2", 5, func(p *dynamo.Params) *float64 { return &p.L2 }},
	{"theta1", 5, func(p *dynamo.Params) *float64 { return &p.Theta1 }},
	{"phi1", 15, func(p *dynamo.Params) *float64 { return &p.Phi1 }},
	{"theta2", 5, func(p *dynamo.Params) *float64 { return &p.Theta2 }},
	{"phi2", 15, func(p *dynamo.Params) *float64 { return &p.Phi2 }},
	{"m1", 1, func(p *dynamo.Params) *float64 { return &p.M1 }},
	{"m2", 1, func(p *dynamo.Params) *float64 { return &p.M2 }},
}

// Model drives a Simulator from Bubble Tea ticks and renders the
// pendulum onto a braille canvas.
type Model struct {
	sim           *sim.Simulator
	energy        *metrics.Energy
	rodError      *metrics.RodError
	log           *logging.Logger
	fps           int
	width, height int
	canvas        *Canvas
	plane         export.Plane
	theme         Theme
	styles        styles
	heights       []float64
	runID         uint64
	lastStep      uint64
	selected      int
	recorder      *Recorder
	message       string
	showHelp      bool
}

// NewModel attaches the live metrics to s and prepares the view. A nil
// logger discards.
func NewModel(s *sim.Simulator, fps int, log *logging.Logger) Model {
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	if log == nil {
		log = logging.Discard()
	}
	energy := metrics.NewEnergy(integrators.FixedDt)
	rodError := metrics.NewRodError()
	s.AddMetric(energy)
	s.AddMetric(rodError)

	theme := Themes[0]
	m := Model{
		sim:      s,
		energy:   energy,
		rodError: rodError,
		log:      log,
		fps:      fps,
		width:    width,
		height:   height,
		canvas:   NewCanvas(width, height),
		plane:    export.PlaneXZ,
		theme:    theme,
		styles:   newStyles(theme),
		heights:  make([]float64, 0, historyCapacity),
		runID:    s.Snapshot().RunID,
	}
	m.draw(s.Snapshot(), s.Params())
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	m.log.Info(m.ctx(), "live view started", "fps", m.fps, "params", m.sim.Params())
	return m.tick()
}

func (m Model) ctx() context.Context {
	return logging.WithRunID(context.Background(), m.runID)
}

// Update handles input events and advances the simulation on ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.stopRecording()
			return m, tea.Quit
		case " ":
			state := m.sim.Toggle()
			m.log.Info(m.ctx(), "run state changed", "state", state.String())
		case "r":
			m.reset(m.sim.Params())
		case "tab":
			m.selected = (m.selected + 1) % len(tunables)
		case "up", "k":
			m.adjust(1)
		case "down", "j":
			m.adjust(-1)
		case "v":
			m.plane = (m.plane + 1) % 3
		case "t":
			m.theme = nextTheme(m.theme)
			m.styles = newStyles(m.theme)
		case "s":
			m.saveSVG()
		case "g":
			if m.recorder != nil {
				m.stopRecording()
			} else {
				m.recorder = NewRecorder(m.fps)
				m.message = "recording..."
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.sim.Tick()
		m.observe(m.sim.Snapshot())
		if m.recorder != nil {
			m.recorder.Capture(m.canvas)
		}
		return m, m.tick()
	}
	return m, nil
}

// observe records the newest snapshot and redraws the canvas. A change of
// run identity clears the height history.
func (m *Model) observe(s dynamo.State) {
	switch {
	case s.RunID != m.runID:
		m.runID = s.RunID
		m.heights = append(m.heights[:0], s.P2.Z)
	case s.Step != m.lastStep:
		m.heights = append(m.heights, s.P2.Z)
		if len(m.heights) > historyCapacity {
			m.heights = m.heights[1:]
		}
	}
	m.lastStep = s.Step
	m.draw(s, m.sim.Params())
}

// reset restarts the run with p. The simulator resumes even if it was
// paused.
func (m *Model) reset(p dynamo.Params) {
	st := m.sim.Reset(p)
	m.log.Info(logging.WithRunID(context.Background(), st.RunID), "run reset", "previous_run", m.runID)
	m.observe(st)
}

func (m *Model) adjust(dir float64) {
	t := tunables[m.selected]
	p := m.sim.Params()
	v := t.field(&p)
	*v = config.Ranges[t.key].Clamp(*v + dir*t.step)
	m.reset(p)
}

func (m *Model) saveSVG() {
	s := m.sim.Snapshot()
	path := fmt.Sprintf("pendulum_%d_%s.svg", s.RunID, m.plane)
	svg := export.StateToSVG(s, m.sim.Params(), m.plane, 800, 800, string(m.theme.Primary))
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		m.log.Error(m.ctx(), "svg snapshot failed", err, "path", path)
		m.message = "svg failed: " + err.Error()
		return
	}
	m.message = "saved " + path
}

func (m *Model) stopRecording() {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Save(gifPath); err != nil {
		m.log.Error(m.ctx(), "gif save failed", err, "frames", m.recorder.Len())
		m.message = "gif failed: " + err.Error()
	} else {
		m.log.Info(m.ctx(), "gif saved", "path", gifPath, "frames", m.recorder.Len())
		m.message = "saved " + gifPath
	}
	m.recorder = nil
}

// toScreen maps a pendulum position to canvas sub-pixels. The view is fitted
// to the total rod length so the whole swing stays visible.
func (m *Model) toScreen(v dynamo.Vec3, p dynamo.Params) (int, int) {
	cw, ch := m.width*2, m.height*4
	reach := 1.1 * (p.L1 + p.L2)
	if reach <= 0 {
		reach = 1
	}
	scale := math.Min(float64(cw), float64(ch)) / (2 * reach)
	a, b := m.plane.Project(v)
	return cw/2 + int(math.Round(a*scale)), ch/2 - int(math.Round(b*scale))
}

func (m *Model) draw(s dynamo.State, p dynamo.Params) {
	m.canvas.Clear()

	for i := 0; i+1 < len(s.Trail); i++ {
		x0, y0 := m.toScreen(s.Trail[i], p)
		x1, y1 := m.toScreen(s.Trail[i+1], p)
		m.canvas.DrawLine(x0, y0, x1, y1)
	}

	ox, oy := m.toScreen(dynamo.Vec3{}, p)
	b1x, b1y := m.toScreen(s.P1, p)
	b2x, b2y := m.toScreen(s.P2, p)
	m.canvas.DrawLine(ox, oy, b1x, b1y)
	m.canvas.DrawLine(b1x, b1y, b2x, b2y)
	m.canvas.Set(ox, oy)
	m.canvas.Dot(b1x, b1y, 1)
	m.canvas.Dot(b2x, b2y, 2)
}

// View renders the TUI interface.
func (m Model) View() string {
	st := m.styles
	s := m.sim.Snapshot()
	p := m.sim.Params()

	canvasView := st.canvas.Render(m.canvas.String())

	var b strings.Builder
	b.WriteString(st.header.Render("PENDULUM 3D") + "\n")
	if m.sim.RunState() == sim.Running {
		b.WriteString(st.running.Render("RUNNING"))
	} else {
		b.WriteString(st.paused.Render("PAUSED"))
	}
	if m.recorder != nil {
		b.WriteString("  " + st.rec.Render(fmt.Sprintf("REC %d", m.recorder.Len())))
	}
	b.WriteString("\n")

	if len(m.heights) > 1 {
		chart := asciigraph.Plot(m.heights, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("bob 2 height"))
		b.WriteString(st.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		b.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Run", fmt.Sprintf("#%d", s.RunID))
	row("Time", fmt.Sprintf("%.2fs", float64(s.Step)*integrators.FixedDt))
	row("Step", fmt.Sprintf("%d", s.Step))
	row("View", m.plane.String())
	if e, ok := m.energy.Current(); ok {
		row("Energy", fmt.Sprintf("%.1f", e))
	} else {
		row("Energy", "-")
	}
	row("Rod error", fmt.Sprintf("%.2e", m.rodError.Value()))
	row("Trail", fmt.Sprintf("%d/%d", len(s.Trail), p.TrailLength))

	b.WriteString("\nPARAMETERS\n")
	for i, t := range tunables {
		v := *t.field(&p)
		line := fmt.Sprintf("%-8s %8.2f", t.key, v)
		if i == m.selected {
			b.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + st.label.Render(line) + "\n")
		}
	}

	if m.message != "" {
		b.WriteString("\n" + st.value.Render(m.message) + "\n")
	}
	b.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\nTab:Param ↑↓:Tune V:View"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(b.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `
  Space    pause / resume
  R        reset (resumes if paused)
  Tab      select parameter
  Up/K     increase parameter and restart
  Down/J   decrease parameter and restart
  V        cycle view plane (xz, yz, xy)
  T        cycle theme
  S        save SVG snapshot
  G        start / stop GIF recording
  Q        quit
`
