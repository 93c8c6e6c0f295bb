// Package tui provides the Bubble Tea companion interface.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/types"
)

const (
	intervalStep = 5000
	pixelStep    = 1
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1)
	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0B0B0B")).
			Background(lipgloss.Color("#5BC26A")).
			Bold(true).
			Padding(0, 1)
	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Background(lipgloss.Color("#4A4A4A")).
			Padding(0, 1)
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// Controller is what the UI drives; a local companion satisfies it
type Controller interface {
	State() types.State
	Toggle() (bool, error)
	SetInterval(ms int) error
	SetPixelDistance(px int) error
	SetKeyButton(name string) error
	Subscribe() (<-chan types.State, func())
}

type stateMsg types.State

type closedMsg struct{}

// Model implements the Bubble Tea companion UI.
type Model struct {
	ctrl        Controller
	states      <-chan types.State
	unsubscribe func()

	state  types.State
	errMsg string
	width  int
}

// NewModel subscribes to ctrl; call Close when the program exits
func NewModel(ctrl Controller) *Model {
	states, unsubscribe := ctrl.Subscribe()
	return &Model{
		ctrl:        ctrl,
		states:      states,
		unsubscribe: unsubscribe,
		state:       ctrl.State(),
	}
}

func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return closedMsg{}
		}
		return stateMsg(state)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForState()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case stateMsg:
		m.state = types.State(msg)
		return m, m.waitForState()
	case closedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		m.errMsg = ""
		m.handleKey(msg.String())
		m.state = m.ctrl.State()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(key string) {
	var err error
	switch key {
	case " ", "enter", "t":
		_, err = m.ctrl.Toggle()
	case "+", "=", "up":
		err = m.ctrl.SetInterval(m.state.Interval + intervalStep)
	case "-", "down":
		err = m.ctrl.SetInterval(m.state.Interval - intervalStep)
	case "]", "right":
		err = m.ctrl.SetPixelDistance(m.state.PixelDistance + pixelStep)
	case "[", "left":
		err = m.ctrl.SetPixelDistance(m.state.PixelDistance - pixelStep)
	case "k":
		err = m.ctrl.SetKeyButton(string(nextKey(settings.KeyButton(m.state.KeyButton))))
	}
	if err != nil {
		m.errMsg = err.Error()
	}
}

func nextKey(current settings.KeyButton) settings.KeyButton {
	for i, k := range settings.KeyButtons {
		if k == current {
			return settings.KeyButtons[(i+1)%len(settings.KeyButtons)]
		}
	}
	return settings.KeyNone
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.state

	status := idleStyle.Render("IDLE")
	if s.IsActive {
		status = activeStyle.Render("ACTIVE")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, titleStyle.Render("afkcli"), status)

	session := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Next action", s.NextActionFormatted),
		card("Running", s.RunningTimeFormatted),
		card("Actions", fmt.Sprintf("%d", s.ActionCount)),
	)
	config := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Interval", fmt.Sprintf("%ds", s.Interval/1000)),
		card("Distance", fmt.Sprintf("%dpx", s.PixelDistance)),
		card("Key", s.KeyButton),
	)
	totals := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Sessions", fmt.Sprintf("%d", s.TotalSessions)),
		card("Total time", s.TotalTimeFormatted),
		card("Total actions", fmt.Sprintf("%d", s.TotalActions)),
		card("Avg session", s.AvgSessionDurationFormatted),
	)

	var b strings.Builder
	b.WriteString(header + "\n\n")
	b.WriteString(session + "\n")
	b.WriteString(config + "\n")
	b.WriteString(totals + "\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString(helpStyle.Render("space toggle · +/- interval · [/] distance · k key · q quit"))
	return b.String()
}

func card(title, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(title) + "\n" + cardValueStyle.Render(value))
}
