// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

// Package console renders the human-readable progress and summary lines
// printed while generating and publishing a card.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Console writes styled lines. Colors are only emitted when the writer is a
// terminal that supports them. A nil *Console discards output.
type Console struct {
	out io.Writer

	info    lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	success lipgloss.Style
	note    lipgloss.Style
	title   lipgloss.Style
}

// New creates a console writing to w. If w is nil, writes to os.Stdout.
func New(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	r := lipgloss.NewRenderer(w)
	return &Console{
		out:     w,
		info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		err:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		note:    r.NewStyle().Foreground(lipgloss.Color("8")),
		title:   r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
	}
}

// Titlef prints a heading.
func (c *Console) Titlef(format string, args ...any) { c.print(c.title, format, args...) }

// Infof prints a progress line.
func (c *Console) Infof(format string, args ...any) { c.print(c.info, format, args...) }

// Warnf prints a warning.
func (c *Console) Warnf(format string, args ...any) { c.print(c.warn, format, args...) }

// Errorf prints a failure message.
func (c *Console) Errorf(format string, args ...any) { c.print(c.err, format, args...) }

// Successf prints a success message.
func (c *Console) Successf(format string, args ...any) { c.print(c.success, format, args...) }

// Notef prints a de-emphasized hint.
func (c *Console) Notef(format string, args ...any) { c.print(c.note, format, args...) }

// Blank prints an empty line.
func (c *Console) Blank() {
	if c == nil {
		return
	}
	_, _ = fmt.Fprintln(c.out)
}

func (c *Console) print(style lipgloss.Style, format string, args ...any) {
	if c == nil {
		return
	}
	_, _ = fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, args...)))
}
