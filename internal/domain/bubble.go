package domain

import "time"

// AffordanceKind определяет действие, доступное на пузыре.
type AffordanceKind string

const (
	AffordanceExplain         AffordanceKind = "explain"
	AffordanceReport          AffordanceKind = "report"
	AffordanceCopyPython      AffordanceKind = "copy_python"
	AffordanceCopySQL         AffordanceKind = "copy_sql"
	AffordanceSimilarExercise AffordanceKind = "similar_exercise"
	AffordanceCheckCompletion AffordanceKind = "check_completion"
)

// OneShot сообщает, становится ли действие недоступным после первого использования.
func (k AffordanceKind) OneShot() bool {
	switch k {
	case AffordanceReport, AffordanceSimilarExercise:
		return true
	default:
		return false
	}
}

// CopyLanguage возвращает язык для действий «скопировать в редактор».
func (k AffordanceKind) CopyLanguage() (string, bool) {
	switch k {
	case AffordanceCopyPython:
		return LanguagePython, true
	case AffordanceCopySQL:
		return LanguageSQL, true
	default:
		return "", false
	}
}

// Label возвращает подпись кнопки.
func (k AffordanceKind) Label() string {
	switch k {
	case AffordanceExplain:
		return "❓ Expliquer"
	case AffordanceReport:
		return "🚩 Signaler"
	case AffordanceCopyPython:
		return "🐍 Éditeur Python"
	case AffordanceCopySQL:
		return "🗄 Éditeur SQL"
	case AffordanceSimilarExercise:
		return "🔁 Exercice similaire"
	case AffordanceCheckCompletion:
		return "✅ Ai-je terminé ?"
	default:
		return string(k)
	}
}

// ParseAffordanceKind разбирает строковое представление действия.
func ParseAffordanceKind(s string) (AffordanceKind, bool) {
	k := AffordanceKind(s)
	switch k {
	case AffordanceExplain, AffordanceReport, AffordanceCopyPython, AffordanceCopySQL,
		AffordanceSimilarExercise, AffordanceCheckCompletion:
		return k, true
	}
	return "", false
}

// Bubble — самодостаточное описание отрисованного сообщения, готовое к вставке.
type Bubble struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	BodyMarkup string `json:"body_markup"`
	// RawTextForReplay хранит исходный неэкранированный текст.
	RawTextForReplay string           `json:"raw_text_for_replay"`
	Affordances      []AffordanceKind `json:"affordances"`
	// ExerciseID извлекается из маркера упражнения; пусто, если маркера нет.
	ExerciseID string `json:"exercise_id,omitempty"`
	// Completed — ответ содержит маркер завершения упражнения.
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	// Echoed — пузырь исходящего сообщения, которое клиент уже показал сам.
	Echoed bool `json:"-"`
}

// Has сообщает, применимо ли действие к пузырю.
func (b Bubble) Has(kind AffordanceKind) bool {
	for _, k := range b.Affordances {
		if k == kind {
			return true
		}
	}
	return false
}

// Notice — уведомление об ошибке в ленте диалога. Это не пузырь.
type Notice struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryKind определяет тип записи ленты.
type EntryKind string

const (
	EntryBubble EntryKind = "bubble"
	EntryNotice EntryKind = "notice"
)

// Entry — элемент ленты диалога: пузырь или уведомление.
type Entry struct {
	Kind   EntryKind `json:"kind"`
	Bubble *Bubble   `json:"bubble,omitempty"`
	Notice *Notice   `json:"notice,omitempty"`
}

// ID возвращает идентификатор записи.
func (e Entry) ID() string {
	if e.Bubble != nil {
		return e.Bubble.ID
	}
	if e.Notice != nil {
		return e.Notice.ID
	}
	return ""
}

// EditorState — снимок состояния оверлея редактора.
type EditorState struct {
	Visible  bool   `json:"visible"`
	Language string `json:"language"`
	Content  string `json:"content"`
}
