// Package teleop drives the base setpoint from the keyboard.
package teleop

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bft-labs/basepilot/internal/app"
	"github.com/bft-labs/basepilot/internal/domain"
)

const (
	DefaultLinearSpeed  float32 = 0.1
	DefaultAngularSpeed float32 = 0.5

	// FirstPressHold is how long a key counts as held after its first
	// press. Terminals only report presses, so the keyboard repeat delay
	// has to be bridged.
	FirstPressHold = 500 * time.Millisecond
	// RepeatHold is how long a key counts as held after an auto-repeat.
	RepeatHold = 100 * time.Millisecond
	// TickInterval is how often held keys are checked for expiry.
	TickInterval = 50 * time.Millisecond
	// ErrorDisplay is how long an error or warning stays on screen.
	ErrorDisplay = 3 * time.Second
)

// VelocitySetter receives the target velocity.
type VelocitySetter interface {
	Set(target domain.Velocity) error
}

// Options tunes a Model. Zero fields take defaults.
type Options struct {
	LinearSpeed  float32
	AngularSpeed float32
	Keys         KeyMap
	Now          func() time.Time
}

type action int

const (
	actionForward action = iota
	actionBackward
	actionLeft
	actionRight
	actionRotateLeft
	actionRotateRight
)

// Messages delivered to the model.
type (
	StateMsg struct {
		Previous, Current app.State
		Reason            string
	}
	SnapshotMsg struct {
		Snapshot domain.OdometrySnapshot
	}
	WarningMsg struct {
		Kind, Detail string
	}
	// DoneMsg reports that the control loop returned.
	DoneMsg struct {
		Summary domain.RunSummary
		Err     error
	}

	tickMsg time.Time
)

// Model is the bubbletea model of the teleoperation screen.
type Model struct {
	keys    KeyMap
	help    help.Model
	target  VelocitySetter
	stop    func()
	now     func() time.Time
	linear  float32
	angular float32

	held    map[action]time.Time
	current domain.Velocity

	state    app.State
	snapshot *domain.OdometrySnapshot
	message  string
	isError  bool
	msgUntil time.Time

	quitting bool
	done     *DoneMsg
}

// NewModel returns a model writing to target. stop is called once when the
// operator quits; the program exits when the loop reports DoneMsg.
func NewModel(target VelocitySetter, stop func(), opts Options) Model {
	if opts.LinearSpeed == 0 {
		opts.LinearSpeed = DefaultLinearSpeed
	}
	if opts.AngularSpeed == 0 {
		opts.AngularSpeed = DefaultAngularSpeed
	}
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if stop == nil {
		stop = func() {}
	}
	return Model{
		keys:    opts.Keys,
		help:    help.New(),
		target:  target,
		stop:    stop,
		now:     opts.Now,
		linear:  opts.LinearSpeed,
		angular: opts.AngularSpeed,
		held:    make(map[action]time.Time),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Target returns the velocity last written to the setter.
func (m Model) Target() domain.Velocity {
	return m.current
}

// Done returns the loop result once DoneMsg has arrived.
func (m Model) Done() (DoneMsg, bool) {
	if m.done == nil {
		return DoneMsg{}, false
	}
	return *m.done, true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.expire()
		m.apply()
		if !m.msgUntil.IsZero() && !m.now().Before(m.msgUntil) {
			m.message = ""
			m.msgUntil = time.Time{}
		}
		return m, tick()

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case StateMsg:
		m.state = msg.Current
		return m, nil

	case SnapshotMsg:
		s := msg.Snapshot
		m.snapshot = &s
		return m, nil

	case WarningMsg:
		m.show(fmt.Sprintf("%s: %s", msg.Kind, msg.Detail), false)
		return m, nil

	case DoneMsg:
		m.done = &msg
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		if m.quitting {
			return m, tea.Quit
		}
		m.quitting = true
		clear(m.held)
		m.apply()
		m.stop()
		return m, nil
	}
	if m.quitting {
		return m, nil
	}

	a, ok := m.action(msg)
	if !ok {
		return m, nil
	}
	now := m.now()
	hold := FirstPressHold
	if until, held := m.held[a]; held && now.Before(until) {
		hold = RepeatHold
	}
	m.held[a] = now.Add(hold)
	m.apply()
	return m, nil
}

func (m Model) action(msg tea.KeyMsg) (action, bool) {
	switch {
	case key.Matches(msg, m.keys.Forward):
		return actionForward, true
	case key.Matches(msg, m.keys.Backward):
		return actionBackward, true
	case key.Matches(msg, m.keys.Left):
		return actionLeft, true
	case key.Matches(msg, m.keys.Right):
		return actionRight, true
	case key.Matches(msg, m.keys.RotateLeft):
		return actionRotateLeft, true
	case key.Matches(msg, m.keys.RotateRight):
		return actionRotateRight, true
	}
	return 0, false
}

func (m *Model) expire() {
	now := m.now()
	for a, until := range m.held {
		if !now.Before(until) {
			delete(m.held, a)
		}
	}
}

func (m *Model) velocity() domain.Velocity {
	var v domain.Velocity
	for a := range m.held {
		switch a {
		case actionForward:
			v.LinearX += m.linear
		case actionBackward:
			v.LinearX -= m.linear
		case actionLeft:
			v.LinearY += m.linear
		case actionRight:
			v.LinearY -= m.linear
		case actionRotateLeft:
			v.AngularZ += m.angular
		case actionRotateRight:
			v.AngularZ -= m.angular
		}
	}
	return v
}

// apply writes the held-key velocity to the setter when it changed.
func (m *Model) apply() {
	v := m.velocity()
	if v == m.current {
		return
	}
	if err := m.target.Set(v); err != nil {
		m.show(err.Error(), true)
		return
	}
	m.current = v
}

func (m *Model) show(text string, isError bool) {
	m.message = text
	m.isError = isError
	m.msgUntil = m.now().Add(ErrorDisplay)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("basepilot teleop"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
		b.WriteString("\n")
	}

	state := m.state.String()
	if m.quitting && !m.state.Terminal() {
		state += " (stopping)"
	}
	row("state", stateStyle(m.state.String()).Render(state))
	row("target", fmt.Sprintf("x=%+.2f y=%+.2f wz=%+.2f",
		m.current.LinearX, m.current.LinearY, m.current.AngularZ))
	if s := m.snapshot; s != nil {
		actual := fmt.Sprintf("x=%+.3f y=%+.3f yaw=%+.3f vx=%+.2f vy=%+.2f wz=%+.2f %s",
			s.X, s.Y, s.Heading, s.LinearX, s.LinearY, s.AngularZ, s.Control)
		if s.EmergencyStop {
			actual += " " + stoppedStyle.Render("STOP")
		}
		row("actual", actual)
	} else {
		row("actual", "waiting for telemetry")
	}
	if m.message != "" {
		style := stoppedStyle
		if m.isError {
			style = errorStyle
		}
		row("", style.Render(m.message))
	}

	return panelStyle.Render(b.String()) + "\n" + m.help.View(m.keys) + "\n"
}
