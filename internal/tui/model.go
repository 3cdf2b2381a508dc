// Package tui is the interactive front-end: a voice profile picker, a text
// box and a status line showing what the speech controller is doing.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/murmur/internal/controller"
	"github.com/dgnsrekt/murmur/internal/profile"
	"github.com/dgnsrekt/murmur/internal/tts"
)

// refreshInterval is how often the status line polls the controller.
const refreshInterval = 250 * time.Millisecond

// Voice is the part of the controller the TUI drives.
type Voice interface {
	State() controller.State
	Profile() (profile.Profile, bool)
	Registry() *profile.Registry
	ConfigureIndex(ctx context.Context, index int) error
	SynthesizeWith(ctx context.Context, req tts.Request) (controller.Result, error)
	Stop()
}

// field is the input that receives key presses.
type field int

const (
	fieldText field = iota
	fieldSpeaker
	fieldSpeed
	fieldCount
)

// Model is the bubbletea model.
type Model struct {
	ctx   context.Context
	voice Voice

	profiles []string
	selected int

	text    textinput.Model
	speaker textinput.Model
	speed   textinput.Model
	focus   field

	spinner     spinner.Model
	switching   bool
	speaking    bool
	state       controller.State
	active      string
	lastOutcome string
	err         error

	width int
}

// New creates the model. ctx bounds every Configure and Synthesize call the
// TUI makes.
func New(ctx context.Context, voice Voice) Model {
	text := textinput.New()
	text.Placeholder = "Type something to say"
	text.CharLimit = 1000
	text.Prompt = "> "
	text.Focus()

	speaker := textinput.New()
	speaker.Placeholder = "profile"
	speaker.CharLimit = 6
	speaker.Width = 8
	speaker.Prompt = "speaker: "

	speed := textinput.New()
	speed.Placeholder = "profile"
	speed.CharLimit = 5
	speed.Width = 8
	speed.Prompt = "speed: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	m := Model{
		ctx:      ctx,
		voice:    voice,
		profiles: voice.Registry().Names(),
		text:     text,
		speaker:  speaker,
		speed:    speed,
		spinner:  sp,
		state:    voice.State(),
	}
	if p, ok := voice.Profile(); ok {
		m.active = p.Name
		m.selected = indexOf(m.profiles, p.Name)
	}
	return m
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return 0
}

// Init starts the spinner and the status refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.text.Width = max(msg.Width-4, 10)
		return m, nil

	case configuredMsg:
		m.switching = false
		m.state = m.voice.State()
		if msg.err != nil {
			m.err = fmt.Errorf("%s: %w", msg.name, msg.err)
			m.active = ""
			return m, nil
		}
		m.err = nil
		m.active = msg.name
		m.selected = msg.index
		return m, nil

	case spokeMsg:
		m.speaking = false
		m.state = m.voice.State()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.lastOutcome = fmt.Sprintf("%s, %s", msg.result.Outcome, msg.result.Duration.Round(time.Millisecond))
		return m, nil

	case tickMsg:
		m.state = m.voice.State()
		if names := m.voice.Registry().Names(); !equalNames(names, m.profiles) {
			m.profiles = names
			m.selected = min(m.selected, max(len(names)-1, 0))
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateFocused(msg)
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.voice.Stop()
		return m, tea.Quit

	case tea.KeyEsc:
		m.voice.Stop()
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		return m.moveSelection(msg.Type == tea.KeyDown)

	case tea.KeyTab, tea.KeyShiftTab:
		step := field(1)
		if msg.Type == tea.KeyShiftTab {
			step = fieldCount - 1
		}
		m.focus = (m.focus + step) % fieldCount
		m.text.Blur()
		m.speaker.Blur()
		m.speed.Blur()
		return m, m.focusedInput().Focus()

	case tea.KeyEnter:
		return m.submit()
	}

	return m.updateFocused(msg)
}

// moveSelection cycles the profile picker and switches the controller to
// the newly selected profile.
func (m Model) moveSelection(down bool) (tea.Model, tea.Cmd) {
	if len(m.profiles) == 0 || m.switching {
		return m, nil
	}
	if down {
		m.selected = (m.selected + 1) % len(m.profiles)
	} else {
		m.selected = (m.selected - 1 + len(m.profiles)) % len(m.profiles)
	}
	m.switching = true
	m.state = controller.Initializing
	return m, m.configure(m.selected, m.profiles[m.selected])
}

func (m Model) configure(index int, name string) tea.Cmd {
	ctx, voice := m.ctx, m.voice
	return func() tea.Msg {
		return configuredMsg{index: index, name: name, err: voice.ConfigureIndex(ctx, index)}
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.text.Value())
	if text == "" || m.speaking {
		return m, nil
	}

	req, err := m.request(text)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.speaking = true
	m.err = nil
	m.state = controller.Synthesizing
	m.text.SetValue("")

	ctx, voice := m.ctx, m.voice
	return m, func() tea.Msg {
		result, err := voice.SynthesizeWith(ctx, req)
		return spokeMsg{result: result, err: err}
	}
}

// request builds a synthesis request. Blank speaker and speed fields use
// the profile's values.
func (m Model) request(text string) (tts.Request, error) {
	req := tts.Request{Text: text, SpeakerID: -1}

	if s := strings.TrimSpace(m.speaker.Value()); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil || id < 0 {
			return req, fmt.Errorf("speaker must be a non-negative integer, got %q", s)
		}
		req.SpeakerID = id
	}

	if s := strings.TrimSpace(m.speed.Value()); s != "" {
		speed, err := strconv.ParseFloat(s, 32)
		if err != nil || speed <= 0 {
			return req, fmt.Errorf("speed must be a positive number, got %q", s)
		}
		req.Speed = float32(speed)
	}

	return req, nil
}

func (m *Model) focusedInput() *textinput.Model {
	switch m.focus {
	case fieldSpeaker:
		return &m.speaker
	case fieldSpeed:
		return &m.speed
	default:
		return &m.text
	}
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	input := m.focusedInput()
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	return m, cmd
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("murmur"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Voice"))
	b.WriteString("\n")
	for i, name := range m.profiles {
		label := name
		if name == m.active {
			label += " •"
		}
		if i == m.selected {
			b.WriteString(selectedStyle.Render(label))
		} else {
			b.WriteString(itemStyle.Render(label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.text.View())
	b.WriteString("\n")
	b.WriteString(m.speaker.View())
	b.WriteString("   ")
	b.WriteString(m.speed.View())
	b.WriteString("\n")

	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ voice • tab field • enter speak • esc stop • ctrl+c quit"))

	return b.String()
}

func (m Model) statusLine() string {
	var state string
	switch {
	case m.switching || m.speaking || m.state == controller.Initializing || m.state == controller.Synthesizing:
		state = busyStyle.Render(m.spinner.View() + " " + m.state.String())
	case m.state == controller.Ready:
		state = readyStyle.Render(m.state.String())
	default:
		state = errorStyle.Render(m.state.String())
	}

	parts := []string{state}
	if m.active != "" {
		parts = append(parts, m.active)
	}
	if m.lastOutcome != "" {
		parts = append(parts, "last: "+m.lastOutcome)
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(m.err.Error()))
	}
	return strings.Join(parts, " | ")
}
