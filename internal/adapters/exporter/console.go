package exporter

import (
	"fmt"
	"io"
	"strings"

	"tutor-chat/internal/core/segment"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

const defaultConsoleWidth = 80

// ConsoleExporter реализует интерфейс Exporter для вывода ленты в виде текста.
type ConsoleExporter struct {
	width int
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
// Проза переносится по ширине width; код выводится без изменений.
func NewConsoleExporter(width int) ports.Exporter {
	if width <= 0 {
		width = defaultConsoleWidth
	}
	return &ConsoleExporter{width: width}
}

// Export выводит ленту диалога в w.
func (e *ConsoleExporter) Export(w io.Writer, entries []domain.Entry) error {
	var sb strings.Builder
	sb.WriteString("--- Conversation ---\n")
	if len(entries) == 0 {
		sb.WriteString("Aucun message.\n")
	}

	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch {
		case entry.Notice != nil:
			fmt.Fprintf(&sb, "[!] %s\n", entry.Notice.Text)
		case entry.Bubble != nil:
			e.writeBubble(&sb, *entry.Bubble)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (e *ConsoleExporter) writeBubble(sb *strings.Builder, b domain.Bubble) {
	fmt.Fprintf(sb, "%s [%s]", RoleLabel(b.Role), b.CreatedAt.Format("15:04"))
	if b.ExerciseID != "" {
		fmt.Fprintf(sb, " · exercice %s", b.ExerciseID)
	}
	if b.Completed {
		sb.WriteString(" · terminé ✅")
	}
	sb.WriteString("\n")

	for _, seg := range segment.Split(b.RawTextForReplay) {
		if seg.IsCode() {
			fmt.Fprintf(sb, "  ┌─ %s\n", seg.Language)
			for _, line := range strings.Split(seg.Content, "\n") {
				fmt.Fprintf(sb, "  │ %s\n", line)
			}
			sb.WriteString("  └─\n")
			continue
		}
		for _, paragraph := range strings.Split(strings.Trim(seg.Content, "\n"), "\n") {
			for _, line := range WrapString(paragraph, e.width-2) {
				fmt.Fprintf(sb, "  %s\n", line)
			}
		}
	}
}

// RoleLabel возвращает подпись автора сообщения.
func RoleLabel(role domain.Role) string {
	switch role {
	case domain.RoleUser:
		return "Vous"
	case domain.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}
