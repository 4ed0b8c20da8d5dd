package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Elenyx/discordrpg/types"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// Choice buttons, keyed by action style.
	styleChoice = map[string]lipgloss.Style{
		types.StylePrimary:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		types.StyleSecondary: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		types.StyleSuccess:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		types.StyleDanger:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	}
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindTitle
	kindChoice
	kindDialogue
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of narrative line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "== ") && strings.HasSuffix(line, " =="):
		return kindTitle
	case strings.HasPrefix(line, "That choice isn't"),
		strings.HasPrefix(line, "You don't have"),
		strings.HasPrefix(line, "Something went wrong"):
		return kindError
	case containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindNarrative
	}
}

// containsQuotedSpeech checks if a line contains speech in double quotes.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '"' {
			if inQuote && quoteLen > 5 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

func choiceStyle(style string) lipgloss.Style {
	if s, ok := styleChoice[style]; ok {
		return s
	}
	return styleChoice[types.StyleSecondary]
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
