// Package editor реализует оверлей редактора кода.
package editor

import (
	"sync"

	"tutor-chat/internal/domain"
)

// Overlay — вспомогательная поверхность редактирования кода.
// На одно представление приходится ровно один оверлей.
type Overlay struct {
	mu       sync.Mutex
	visible  bool
	language string
	content  string
}

// NewOverlay создает скрытый оверлей, настроенный на указанный язык.
func NewOverlay(language string) *Overlay {
	if language == "" {
		language = domain.LanguagePython
	}
	return &Overlay{language: language}
}

// Toggle показывает, скрывает или перенастраивает оверлей:
// скрытый открывается на языке language; видимый на том же языке закрывается
// без очистки содержимого; видимый на другом языке меняет только режим подсветки.
func (o *Overlay) Toggle(language string) domain.EditorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case !o.visible:
		o.visible = true
		o.language = language
	case o.language == language:
		o.visible = false
	default:
		o.language = language
	}
	return o.snapshot()
}

// Load помещает код, взятый из пузыря, в оверлей. Если оверлей уже открыт
// на этом языке, он закрывается, а содержимое не сбрасывается.
// В остальных случаях оверлей открывается и его содержимое перезаписывается.
func (o *Overlay) Load(language, text string) domain.EditorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.visible && o.language == language {
		o.visible = false
		return o.snapshot()
	}
	o.visible = true
	o.language = language
	o.content = text
	return o.snapshot()
}

// Open показывает оверлей на языке language с текстом text, независимо от
// текущего состояния.
func (o *Overlay) Open(language, text string) domain.EditorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.visible = true
	o.language = language
	o.content = text
	return o.snapshot()
}

// SetContent заменяет текст в буфере редактора.
func (o *Overlay) SetContent(text string) {
	o.mu.Lock()
	o.content = text
	o.mu.Unlock()
}

// Content возвращает текущий текст буфера.
func (o *Overlay) Content() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.content
}

// Clear очищает буфер, не меняя видимость и язык.
func (o *Overlay) Clear() {
	o.mu.Lock()
	o.content = ""
	o.mu.Unlock()
}

// Hide скрывает оверлей.
func (o *Overlay) Hide() {
	o.mu.Lock()
	o.visible = false
	o.mu.Unlock()
}

// Visible сообщает, открыт ли оверлей.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// Language возвращает текущий язык оверлея.
func (o *Overlay) Language() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.language
}

// Snapshot возвращает копию состояния оверлея.
func (o *Overlay) Snapshot() domain.EditorState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

// Take атомарно возвращает содержимое и язык открытого оверлея.
// Для скрытого оверлея возвращается пустой код.
func (o *Overlay) Take() (code, language string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.visible {
		return "", o.language
	}
	return o.content, o.language
}

func (o *Overlay) snapshot() domain.EditorState {
	return domain.EditorState{Visible: o.visible, Language: o.language, Content: o.content}
}
