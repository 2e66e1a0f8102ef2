// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package prompt

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/oops"

	"github.com/cardsmith/cardsmith/internal/registry"
)

var (
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// TUI asks each question with a small bubbletea program.
type TUI struct {
	in  io.Reader
	out io.Writer
}

// NewTUI creates a terminal UI provider.
func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{in: in, out: out}
}

// AskOneTimeCode implements Provider.
func (t *TUI) AskOneTimeCode(ctx context.Context, message string) (string, error) {
	answer, err := t.ask(ctx, question{message: message, placeholder: "123456"})
	return strings.TrimSpace(answer), err
}

// AskNewPackageName implements Provider. The input starts out holding the
// suggestion; clearing it opts out.
func (t *TUI) AskNewPackageName(ctx context.Context, suggestion string) (string, error) {
	answer, err := t.ask(ctx, packageNameQuestion(suggestion))
	return strings.TrimSpace(answer), err
}

// AskCredentials implements Provider.
func (t *TUI) AskCredentials(ctx context.Context, partial registry.Credentials) (registry.Credentials, error) {
	return askCredentials(ctx, partial, t.ask)
}

func (t *TUI) ask(ctx context.Context, q question) (string, error) {
	p := tea.NewProgram(newInputModel(q),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", oops.Code("PROMPT_FAILED").With("question", q.message).Wrap(err)
	}

	m, ok := final.(inputModel)
	if !ok {
		return "", oops.Code("PROMPT_FAILED").Errorf("unexpected prompt model %T", final)
	}
	if m.canceled {
		return "", ErrCanceled
	}
	return m.input.Value(), nil
}

// inputModel is a single-line question.
type inputModel struct {
	q        question
	input    textinput.Model
	err      error
	done     bool
	canceled bool
}

func newInputModel(q question) inputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = q.placeholder
	ti.SetValue(q.initial)
	if q.secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	ti.Focus()
	return inputModel{q: q, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			if m.q.validate != nil {
				if err := m.q.validate(m.input.Value()); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	title := questionStyle.Render("? " + m.q.message)
	if m.done {
		answer := m.input.Value()
		if m.q.secret {
			answer = strings.Repeat("*", len(answer))
		}
		return title + " " + answerStyle.Render(answer) + "\n"
	}
	if m.canceled {
		return title + "\n"
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString(m.input.View() + "\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(">> "+m.err.Error()) + "\n")
	}
	return b.String()
}
