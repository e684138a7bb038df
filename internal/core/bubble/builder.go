// Package bubble собирает описания пузырей и вычисляет применимые к ним действия.
package bubble

import (
	"regexp"
	"strings"
	"time"

	"tutor-chat/internal/domain"
)

// PlaceholderExerciseID подставляется, если маркер упражнения не содержит номера.
const PlaceholderExerciseID = "X"

// CompletionMarker — строка, которую бэкенд добавляет в ответ, когда упражнение завершено.
const CompletionMarker = "EXERCICE TERMINE : ✅"

var (
	// Маркер упражнения: символ 🧩 (возможно с селектором варианта), слово EXERCICE и номер.
	exerciseMarker = regexp.MustCompile(`(?i)🧩\x{FE0F}?\s*EXERCICE[ \t]*(\d*)`)
	blankLines     = regexp.MustCompile(`\n{2,}`)
)

// ExerciseID извлекает номер упражнения из текста.
// Если маркер есть, но номера нет, возвращается PlaceholderExerciseID.
func ExerciseID(text string) (string, bool) {
	m := exerciseMarker.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if m[1] == "" {
		return PlaceholderExerciseID, true
	}
	return m[1], true
}

// IsCompleted сообщает, содержит ли ответ маркер завершения упражнения (без учета регистра).
func IsCompleted(text string) bool {
	return strings.Contains(strings.ToUpper(text), strings.ToUpper(CompletionMarker))
}

// Affordances вычисляет действия, применимые к сообщению. Правила оцениваются
// один раз по исходному тексту и фрагментам; у пузырей пользователя действий нет.
func Affordances(msg domain.Message) []domain.AffordanceKind {
	if msg.Role != domain.RoleAssistant {
		return nil
	}

	kinds := []domain.AffordanceKind{domain.AffordanceExplain, domain.AffordanceReport}
	if msg.HasCode(domain.LanguagePython) {
		kinds = append(kinds, domain.AffordanceCopyPython)
	}
	if msg.HasCode(domain.LanguageSQL) {
		kinds = append(kinds, domain.AffordanceCopySQL)
	}
	if _, ok := ExerciseID(msg.RawText); ok {
		kinds = append(kinds, domain.AffordanceSimilarExercise, domain.AffordanceCheckCompletion)
	}
	return kinds
}

// Build собирает самодостаточное описание пузыря из сообщения и готовой разметки.
// Функция ничего не вставляет: это делает вызывающая сторона.
func Build(msg domain.Message, markup string, createdAt time.Time) domain.Bubble {
	b := domain.Bubble{
		ID:               msg.ID,
		Role:             msg.Role,
		BodyMarkup:       markup,
		RawTextForReplay: msg.ReplayText(),
		Affordances:      Affordances(msg),
		CreatedAt:        createdAt,
	}
	if msg.Role == domain.RoleAssistant {
		b.ExerciseID, _ = ExerciseID(msg.RawText)
		b.Completed = IsCompleted(msg.RawText)
	}
	return b
}

// CollapseBlankLines заменяет серии пустых строк одним переводом строки,
// как это делает пузырь исходящего сообщения.
func CollapseBlankLines(text string) string {
	return blankLines.ReplaceAllString(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// UserSegments возвращает фрагменты пузыря исходящего сообщения: видимый текст
// как проза и код из редактора отдельным блоком. Скрытая директива сюда не попадает.
func UserSegments(visible, code, language string) []domain.Segment {
	var segments []domain.Segment
	if text := CollapseBlankLines(strings.TrimSpace(visible)); text != "" {
		segments = append(segments, domain.Prose(text))
	}
	if code = strings.TrimSpace(code); code != "" {
		segments = append(segments, domain.Code(language, code))
	}
	return segments
}
