package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"tutor-chat/internal/adapters/exporter"
	"tutor-chat/internal/domain"
)

// styles задает оформление элементов ленты в терминале.
type styles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	notice    lipgloss.Style
	meta      lipgloss.Style
	body      lipgloss.Style
}

func newStyles(color bool, width int) styles {
	s := styles{
		user:      lipgloss.NewStyle().Bold(true),
		assistant: lipgloss.NewStyle().Bold(true),
		notice:    lipgloss.NewStyle().Bold(true),
		meta:      lipgloss.NewStyle(),
		body:      lipgloss.NewStyle().PaddingLeft(2).Width(width),
	}
	if color {
		s.user = s.user.Foreground(lipgloss.Color("39"))
		s.assistant = s.assistant.Foreground(lipgloss.Color("42"))
		s.notice = s.notice.Foreground(lipgloss.Color("196"))
		s.meta = s.meta.Faint(true)
	}
	return s
}

// consoleView реализует ports.View для терминала. Пузыри нумеруются по
// порядку, номер используется в командах действий.
type consoleView struct {
	out    io.Writer
	styles styles

	mu  sync.Mutex
	ids []string
}

func newConsoleView(out io.Writer, color bool, width int) *consoleView {
	return &consoleView{out: out, styles: newStyles(color, width)}
}

func (v *consoleView) AppendBubble(b domain.Bubble) {
	v.mu.Lock()
	v.ids = append(v.ids, b.ID)
	n := len(v.ids)
	v.mu.Unlock()

	header := fmt.Sprintf("[%d] %s · %s", n, exporter.RoleLabel(b.Role), b.CreatedAt.Format("15:04"))
	if b.ExerciseID != "" {
		header += " · exercice " + b.ExerciseID
	}
	if b.Completed {
		header += " · terminé ✅"
	}

	style := v.styles.user
	if b.Role == domain.RoleAssistant {
		style = v.styles.assistant
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(style.Render(header))
	sb.WriteString("\n")
	sb.WriteString(v.styles.body.Render(strings.TrimRight(b.BodyMarkup, "\n")))
	sb.WriteString("\n")
	if hints := affordanceHints(n, b.Affordances); hints != "" {
		sb.WriteString(v.styles.meta.Render("  " + hints))
		sb.WriteString("\n")
	}
	_, _ = io.WriteString(v.out, sb.String())
}

func (v *consoleView) AppendNotice(n domain.Notice) {
	_, _ = io.WriteString(v.out, "\n"+v.styles.notice.Render(n.Text)+"\n")
}

func (v *consoleView) SetBusy(busy bool) {
	if busy {
		_, _ = io.WriteString(v.out, v.styles.meta.Render("… l'assistant réfléchit")+"\n")
	}
}

func (v *consoleView) ScrollToLatest() {}

func (v *consoleView) Typeset(string) {}

// info выводит служебное сообщение клиента.
func (v *consoleView) info(format string, args ...any) {
	_, _ = io.WriteString(v.out, v.styles.meta.Render(fmt.Sprintf(format, args...))+"\n")
}

// warn выводит сообщение об ошибке команды.
func (v *consoleView) warn(format string, args ...any) {
	_, _ = io.WriteString(v.out, v.styles.notice.Render(fmt.Sprintf(format, args...))+"\n")
}

// bubbleID возвращает идентификатор пузыря по его номеру в ленте.
func (v *consoleView) bubbleID(n int) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 1 || n > len(v.ids) {
		return "", false
	}
	return v.ids[n-1], true
}

func (v *consoleView) reset() {
	v.mu.Lock()
	v.ids = nil
	v.mu.Unlock()
}

func affordanceHints(n int, kinds []domain.AffordanceKind) string {
	hints := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		switch kind {
		case domain.AffordanceExplain:
			hints = append(hints, fmt.Sprintf(":explain %d", n))
		case domain.AffordanceReport:
			hints = append(hints, fmt.Sprintf(":report %d", n))
		case domain.AffordanceCopyPython:
			hints = append(hints, fmt.Sprintf(":copy %d python", n))
		case domain.AffordanceCopySQL:
			hints = append(hints, fmt.Sprintf(":copy %d sql", n))
		case domain.AffordanceSimilarExercise:
			hints = append(hints, fmt.Sprintf(":similar %d", n))
		case domain.AffordanceCheckCompletion:
			hints = append(hints, fmt.Sprintf(":check %d", n))
		}
	}
	return strings.Join(hints, " · ")
}
