package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles holds the lipgloss styles used for command output.
type Styles struct {
	Path   lipgloss.Style
	LineNo lipgloss.Style
	Match  lipgloss.Style
	Label  lipgloss.Style
	Dim    lipgloss.Style
	Warn   lipgloss.Style
}

// NewStyles creates output styles; without color every style is plain.
func NewStyles(colorEnabled bool) *Styles {
	if !colorEnabled {
		plain := lipgloss.NewStyle()
		return &Styles{Path: plain, LineNo: plain, Match: plain, Label: plain, Dim: plain, Warn: plain}
	}
	return &Styles{
		Path:   lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		LineNo: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Match:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// IsColorEnabled resolves the --color mode for writer. In auto mode color is
// used only on a terminal and when NO_COLOR is unset.
func IsColorEnabled(mode string, writer io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		return isTerminal(writer)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
