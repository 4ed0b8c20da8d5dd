package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// statusText returns the left and right halves of the status bar.
func (m Model) statusText() (left, right string) {
	st := m.session.Status()
	if st.Race == "" {
		left = fmt.Sprintf(" %s | no character", st.Name)
	} else {
		left = fmt.Sprintf(" %s | %s Lv %d | %d berries", st.Name, st.Race, st.Level, st.Berries)
	}
	if st.QuestTitle != "" {
		right = fmt.Sprintf("%s %d/%d ", st.QuestTitle, st.Step, st.Steps)
		// Past the last step the quest waits to be claimed.
		if st.Step > st.Steps {
			right = fmt.Sprintf("%s (claim rewards) ", st.QuestTitle)
		}
	}
	return left, right
}

// renderStatusBar produces a full-width inverted status line showing the
// character and quest progress.
func (m Model) renderStatusBar() string {
	left, right := m.statusText()

	// Drop the quest when both halves do not fit.
	if lipgloss.Width(left)+lipgloss.Width(right) > m.width {
		right = ""
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
