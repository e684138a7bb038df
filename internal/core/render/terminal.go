package render

import (
	"strings"

	"tutor-chat/internal/domain"
)

// TerminalRenderer отрисовывает фрагменты для терминала: проза выводится
// как есть, код — в рамке с подписью языка.
type TerminalRenderer struct {
	highlighter Highlighter
}

// NewTerminalRenderer создает новый экземпляр TerminalRenderer.
// highlighter может быть nil, тогда код не раскрашивается.
func NewTerminalRenderer(highlighter Highlighter) *TerminalRenderer {
	return &TerminalRenderer{highlighter: highlighter}
}

// Render реализует ports.Renderer.
func (r *TerminalRenderer) Render(segments []domain.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if !seg.IsCode() {
			sb.WriteString(strings.ReplaceAll(seg.Content, "\r\n", "\n"))
			continue
		}

		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n")
		}
		body := seg.Content
		if r.highlighter != nil {
			if highlighted, ok := r.highlighter.Highlight(seg.Language, seg.Content); ok {
				body = strings.TrimRight(highlighted, "\n")
			}
		}

		sb.WriteString("┌─ ")
		sb.WriteString(seg.Language)
		sb.WriteString("\n")
		for _, line := range strings.Split(body, "\n") {
			sb.WriteString("│ ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("└─\n")
	}
	return sb.String()
}
