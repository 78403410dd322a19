package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/pendulum3d/internal/config"
	"github.com/san-kum/pendulum3d/internal/logging"
	"github.com/san-kum/pendulum3d/internal/sim"
)

var presetInfo = map[string]string{
	"horizontal": "both rods level, opposite sides",
	"rest":       "hanging straight down",
	"gentle":     "small swing in one plane",
	"conical":    "out of plane release",
	"inverted":   "balanced near the top",
	"heavy":      "long upper rod, strong gravity",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

type field struct {
	key string
	ptr func(*config.Config) *float64
}

var configFields = []field{
	{"theta1", func(c *config.Config) *float64 { return &c.Initial.Theta1 }},
	{"phi1", func(c *config.Config) *float64 { return &c.Initial.Phi1 }},
	{"theta2", func(c *config.Config) *float64 { return &c.Initial.Theta2 }},
	{"phi2", func(c *config.Config) *float64 { return &c.Initial.Phi2 }},
	{"l1", func(c *config.Config) *float64 { return &c.Physics.L1 }},
	{"l2", func(c *config.Config) *float64 { return &c.Physics.L2 }},
	{"g", func(c *config.Config) *float64 { return &c.Physics.Gravity }},
}

// App is the interactive entry point: pick a preset, tweak its starting
// angles and rods, then watch it in a live Model.
type App struct {
	state, cursor int
	presets       []string
	selected      string
	cfg           *config.Config
	fieldCursor   int
	live          Model
	log           *logging.Logger
}

func NewApp(log *logging.Logger) App {
	return App{
		state:   stateMenu,
		presets: config.ListPresets(),
		log:     log,
	}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch a.state {
		case stateMenu:
			return a.menuKey(msg)
		case stateConfig:
			return a.configKey(msg)
		}
		if msg.String() == "esc" {
			a.live.stopRecording()
			a.live.sim.Pause()
			a.state = stateConfig
			return a, nil
		}
		return a.forward(msg)
	case TickMsg:
		if a.state != stateSim {
			// Drop ticks still in flight from a closed live view.
			return a, nil
		}
		return a.forward(msg)
	}
	return a, nil
}

func (a App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := a.live.Update(msg)
	a.live = next.(Model)
	return a, cmd
}

func (a App) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.presets)-1 {
			a.cursor++
		}
	case "enter", " ":
		a.selected = a.presets[a.cursor]
		a.cfg = config.GetPreset(a.selected)
		a.state, a.fieldCursor = stateConfig, 0
	}
	return a, nil
}

func (a App) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "q", "esc":
		a.state = stateMenu
	case "up", "k":
		if a.fieldCursor > 0 {
			a.fieldCursor--
		}
	case "down", "j":
		if a.fieldCursor < len(configFields)-1 {
			a.fieldCursor++
		}
	case "left", "h":
		a.nudge(-1)
	case "right", "l":
		a.nudge(1)
	case "s", "enter":
		a.live = NewModel(sim.New(a.cfg.Params()), a.cfg.FPS, a.log)
		a.state = stateSim
		return a, a.live.Init()
	}
	return a, nil
}

// nudge moves the selected field by 5 units within its allowed range.
func (a *App) nudge(dir float64) {
	f := configFields[a.fieldCursor]
	cfg := *a.cfg
	v := f.ptr(&cfg)
	*v = config.Ranges[f.key].Clamp(*v + 5*dir)
	a.cfg = &cfg
}

func (a App) View() string {
	switch a.state {
	case stateMenu:
		return a.viewMenu()
	case stateConfig:
		return a.viewConfig()
	}
	return a.live.View() + "\n" + a.live.styles.help.Render("esc: back to settings")
}

var (
	menuTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuKey.Render(pairs[i]) + menuIdle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (a App) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("PENDULUM 3D") + "\n    " + menuSub.Render("double pendulum on rigid rods") + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, name := range a.presets {
		desc := presetInfo[name]
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-12s", name)), menuDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", menuIdle.Render(fmt.Sprintf("  %-12s", name)), menuIdle.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (a App) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(a.selected)) + "\n    " + menuSub.Render(presetInfo[a.selected]) + "\n    " + menuSub.Render("─────────────────────────") + "\n\n")
	for i, f := range configFields {
		val := fmt.Sprintf("%8.1f", *f.ptr(a.cfg))
		if i == a.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuCursor.Render("▸"), menuActive.Render(fmt.Sprintf("%-10s", f.key)), menuDesc.Bold(true).Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuIdle.Render(fmt.Sprintf("  %-10s", f.key)), menuIdle.Render(val)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset menu in the alternate screen.
func RunInteractive(log *logging.Logger) error {
	_, err := tea.NewProgram(NewApp(log), tea.WithAltScreen()).Run()
	return err
}

// RunLive opens the live view for s directly.
func RunLive(s *sim.Simulator, fps int, log *logging.Logger) error {
	_, err := tea.NewProgram(NewModel(s, fps, log), tea.WithAltScreen()).Run()
	return err
}
