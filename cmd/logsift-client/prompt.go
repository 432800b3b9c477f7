package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// errPromptAborted is returned when the user leaves the prompt with Esc or Ctrl+C.
var errPromptAborted = errors.New("aborted")

var (
	promptTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	promptLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	promptDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	promptErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type promptField struct {
	key      string
	label    string
	input    textinput.Model
	validate func(string) error
}

// promptModel asks for each connection and query setting in turn, the way
// an operator would answer a short questionnaire.
type promptModel struct {
	fields  []promptField
	focus   int
	err     error
	done    bool
	aborted bool
}

func newPromptModel(cfg clientConfig) promptModel {
	mk := func(key, label, placeholder, value string, validate func(string) error) promptField {
		in := textinput.New()
		in.Placeholder = placeholder
		in.CharLimit = 512
		in.SetValue(value)
		return promptField{key: key, label: label, input: in, validate: validate}
	}

	port := ""
	if cfg.Port > 0 {
		port = strconv.Itoa(cfg.Port)
	}

	fields := []promptField{
		mk("server", "Server IP", "e.g. 127.0.0.1", cfg.Server, func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("server address is required")
			}
			return nil
		}),
		mk("port", "Server Port", "e.g. 8080", port, func(s string) error {
			_, err := validatePort(s)
			return err
		}),
		mk("type", "Analysis type", "USER, IP, or LOG_LEVEL", cfg.Type, func(s string) error {
			_, err := normalizeType(s)
			return err
		}),
		mk("from", "From date", "YYYY-MM-DD, blank for none", cfg.From, func(s string) error {
			return validateDate("From", strings.TrimSpace(s))
		}),
		mk("to", "To date", "YYYY-MM-DD, blank for none", cfg.To, func(s string) error {
			return validateDate("To", strings.TrimSpace(s))
		}),
		mk("dir", "Log folder path", "directory with .json, .xml, .txt files", cfg.Dir, func(s string) error {
			return validateDir(strings.TrimSpace(s))
		}),
	}
	fields[0].input.Focus()
	return promptModel{fields: fields}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyShiftTab, tea.KeyUp:
			if m.focus > 0 {
				m.err = nil
				return m.moveFocus(m.focus - 1)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return m, cmd
}

func (m promptModel) submit() (tea.Model, tea.Cmd) {
	f := m.fields[m.focus]
	if err := f.validate(f.input.Value()); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	if m.focus == len(m.fields)-1 {
		m.fields[m.focus].input.Blur()
		m.done = true
		return m, tea.Quit
	}
	return m.moveFocus(m.focus + 1)
}

func (m promptModel) moveFocus(i int) (tea.Model, tea.Cmd) {
	m.fields[m.focus].input.Blur()
	m.focus = i
	return m, m.fields[m.focus].input.Focus()
}

func (m promptModel) View() string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("logsift client") + "\n\n")
	for i, f := range m.fields {
		marker := "  "
		if i == m.focus && !m.done {
			marker = promptTitleStyle.Render("> ")
		} else if i < m.focus || m.done {
			marker = promptDoneStyle.Render("✓ ")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, promptLabelStyle.Render(fmt.Sprintf("%-16s", f.label+":")), f.input.View()))
	}
	if m.err != nil {
		b.WriteString("\n" + promptErrStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + promptHelpStyle.Render("enter: next • shift+tab: back • esc: cancel") + "\n")
	return b.String()
}

// apply copies the answers into cfg.
func (m promptModel) apply(cfg clientConfig) clientConfig {
	for _, f := range m.fields {
		v := strings.TrimSpace(f.input.Value())
		switch f.key {
		case "server":
			cfg.Server = v
		case "port":
			if p, err := validatePort(v); err == nil {
				cfg.Port = p
			}
		case "type":
			cfg.Type = v
		case "from":
			cfg.From = v
		case "to":
			cfg.To = v
		case "dir":
			cfg.Dir = v
		}
	}
	return cfg
}

// runPrompt shows the questionnaire pre-filled from cfg and returns the
// answered configuration.
func runPrompt(cfg clientConfig) (clientConfig, error) {
	final, err := tea.NewProgram(newPromptModel(cfg)).Run()
	if err != nil {
		return cfg, fmt.Errorf("running prompt: %w", err)
	}
	m := final.(promptModel)
	if m.aborted || !m.done {
		return cfg, errPromptAborted
	}
	return m.apply(cfg), nil
}
