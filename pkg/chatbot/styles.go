package chatbot

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	prompt   lipgloss.Style
	reply    lipgloss.Style
	err      lipgloss.Style
	farewell lipgloss.Style
	notice   lipgloss.Style
}

// newStyles binds styles to out so colors are dropped when out is not a terminal.
func newStyles(out io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(out)
	if !color {
		plain := r.NewStyle()
		return styles{prompt: plain, reply: plain, err: plain, farewell: plain, notice: plain}
	}
	return styles{
		prompt:   r.NewStyle().Foreground(lipgloss.Color("2")),
		reply:    r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		err:      r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		farewell: r.NewStyle().Foreground(lipgloss.Color("5")),
		notice:   r.NewStyle().Foreground(lipgloss.Color("242")),
	}
}
