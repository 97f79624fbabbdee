package setup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tuyastrip/internal/config"
	"tuyastrip/internal/ui"
)

// ErrCancelled is returned when the user aborts the credential form
var ErrCancelled = errors.New("setup cancelled")

// Form fields, in prompt order
const (
	fieldDeviceID = iota
	fieldDeviceIP
	fieldLocalKey
	fieldVersion
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Device ID",
	"Device IP",
	"Local Key",
	"Version",
}

// Model is the credential entry form: four inputs filled top to
// bottom, enter advancing to the next field and submitting on the
// last one.
type Model struct {
	Inputs    [fieldCount]textinput.Model
	Focus     int
	Done      bool
	Cancelled bool

	// Validation message for the focused field, cleared on input
	FieldError string
}

// NewModel creates the form with all fields empty
func NewModel() Model {
	var m Model

	deviceID := textinput.New()
	deviceID.Placeholder = "bf1234567890abcdef1234"
	deviceID.CharLimit = 32
	deviceID.Width = 40
	deviceID.Focus()

	deviceIP := textinput.New()
	deviceIP.Placeholder = "192.168.1.50"
	deviceIP.CharLimit = 45
	deviceIP.Width = 40

	localKey := textinput.New()
	localKey.Placeholder = "16-character key"
	localKey.CharLimit = 32
	localKey.Width = 40
	localKey.EchoMode = textinput.EchoPassword
	localKey.EchoCharacter = '•'

	version := textinput.New()
	version.Placeholder = "3.3"
	version.CharLimit = 4
	version.Width = 40

	m.Inputs = [fieldCount]textinput.Model{deviceID, deviceIP, localKey, version}
	return m
}

// Init starts the cursor blink
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key input: enter advances, tab/shift+tab navigate,
// esc or ctrl+c cancels.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateFocused(msg)
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		m.Cancelled = true
		return m, tea.Quit

	case "enter":
		if err := m.validateFocused(); err != nil {
			m.FieldError = err.Error()
			return m, nil
		}
		if m.Focus == fieldCount-1 {
			m.Done = true
			return m, tea.Quit
		}
		return m.setFocus(m.Focus + 1)

	case "tab", "down":
		if err := m.validateFocused(); err != nil {
			m.FieldError = err.Error()
			return m, nil
		}
		return m.setFocus((m.Focus + 1) % fieldCount)

	case "shift+tab", "up":
		return m.setFocus((m.Focus + fieldCount - 1) % fieldCount)
	}

	m.FieldError = ""
	return m.updateFocused(msg)
}

// updateFocused forwards a message to the focused input
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.Inputs[m.Focus], cmd = m.Inputs[m.Focus].Update(msg)
	return m, cmd
}

// setFocus moves focus to field i
func (m Model) setFocus(i int) (tea.Model, tea.Cmd) {
	m.Inputs[m.Focus].Blur()
	m.Focus = i
	m.FieldError = ""
	m.Inputs[i].Focus()
	return m, textinput.Blink
}

// validateFocused checks the focused field's value before advancing.
// The first three fields must be non-empty; the version must parse as
// a number when given.
func (m Model) validateFocused() error {
	value := strings.TrimSpace(m.Inputs[m.Focus].Value())

	switch m.Focus {
	case fieldVersion:
		if value == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("version must be a number, e.g. 3.3")
		}
	default:
		if value == "" {
			return fmt.Errorf("%s is required", fieldLabels[m.Focus])
		}
	}
	return nil
}

// Credentials builds the credential record from the form values.
// Only meaningful once Done is set.
func (m Model) Credentials() (*config.Credentials, error) {
	version := strings.TrimSpace(m.Inputs[fieldVersion].Value())
	if version == "" {
		version = "3.3"
	}
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", version, err)
	}

	return &config.Credentials{
		DeviceID: strings.TrimSpace(m.Inputs[fieldDeviceID].Value()),
		DeviceIP: strings.TrimSpace(m.Inputs[fieldDeviceIP].Value()),
		LocalKey: strings.TrimSpace(m.Inputs[fieldLocalKey].Value()),
		Version:  v,
	}, nil
}

// View renders the form
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(ui.HeaderStyle.Render("Tuya Device Setup"))
	b.WriteString("\n\n")
	b.WriteString("Enter your device credentials:\n\n")

	for i, input := range m.Inputs {
		label := fieldLabels[i]
		if i == fieldVersion {
			label += " (default 3.3)"
		}
		if i == m.Focus {
			b.WriteString(ui.FocusedLabelStyle.Render(fmt.Sprintf("%-22s", label+":")))
		} else {
			b.WriteString(ui.LabelStyle.Render(fmt.Sprintf("%-22s", label+":")))
		}
		b.WriteString(input.View())
		b.WriteString("\n")
	}

	if m.FieldError != "" {
		b.WriteString("\n")
		b.WriteString(ui.ErrorTextStyle.Render("✗ " + m.FieldError))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("enter next • tab/shift+tab navigate • esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Prompt runs the interactive form and returns the entered
// credentials, or ErrCancelled when the user aborts.
func Prompt() (*config.Credentials, error) {
	final, err := tea.NewProgram(NewModel()).Run()
	if err != nil {
		return nil, fmt.Errorf("running setup form: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.Cancelled || !m.Done {
		return nil, ErrCancelled
	}
	return m.Credentials()
}
