package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/onnwee/chat-replay/archive"
)

func isAction(text string) bool {
	lower := strings.ToLower(text)
	return strings.HasPrefix(lower, "/me ") || strings.HasPrefix(lower, ".me ")
}

// renderLine formats one chat line wrapped to width; width <= 0 disables wrapping.
// Deleted lines show a placeholder unless showDeleted is set.
func renderLine(m archive.Message, start int64, width int, showDeleted bool) string {
	ts := styleTimestamp.Render("[" + archive.FormatOffset(m.Timestamp()-start) + "]")
	name := styleName
	if m.Color != "" {
		name = name.Foreground(lipgloss.Color(m.Color))
	}
	var body string
	switch {
	case m.Deleted && showDeleted && m.Text != "":
		body = name.Render(m.Name()) + ": " + styleDeleted.Render(m.Text)
	case m.Deleted:
		body = name.Render(m.Name()) + " " + styleDeleted.Render("<message deleted>")
	case isAction(m.Text):
		body = styleAction.Render("* ") + name.Render(m.Name()) + " " + styleAction.Render(m.Text[4:])
	default:
		body = name.Render(m.Name()) + ": " + styleText.Render(m.Text)
	}
	line := ts + " " + body
	if width > 0 {
		line = lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}

func renderTranscript(t *archive.Transcript, width int, showDeleted bool) []string {
	out := make([]string, len(t.Lines))
	for i, m := range t.Lines {
		out[i] = renderLine(m, t.Start, width, showDeleted)
	}
	return out
}
