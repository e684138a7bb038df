package services

import (
	"sync"

	"tutor-chat/internal/domain"
)

// ExchangeState — состояние обмена одного представления: флаг отправки
// и последний выбранный в редакторе язык.
type ExchangeState struct {
	mu               sync.Mutex
	sending          bool
	lastUsedLanguage string
}

// NewExchangeState создает состояние; пустой язык заменяется на python.
func NewExchangeState(defaultLanguage string) *ExchangeState {
	if defaultLanguage == "" {
		defaultLanguage = domain.LanguagePython
	}
	return &ExchangeState{lastUsedLanguage: defaultLanguage}
}

// TryBeginSend атомарно проверяет и выставляет флаг отправки.
// Возвращает false, если отправка уже идет.
func (s *ExchangeState) TryBeginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return false
	}
	s.sending = true
	return true
}

// EndSend сбрасывает флаг отправки.
func (s *ExchangeState) EndSend() {
	s.mu.Lock()
	s.sending = false
	s.mu.Unlock()
}

// Sending сообщает, идет ли отправка.
func (s *ExchangeState) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// LastUsedLanguage возвращает последний выбранный язык редактора.
func (s *ExchangeState) LastUsedLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedLanguage
}

// SetLastUsedLanguage запоминает выбранный язык редактора.
func (s *ExchangeState) SetLastUsedLanguage(language string) {
	if language == "" {
		return
	}
	s.mu.Lock()
	s.lastUsedLanguage = language
	s.mu.Unlock()
}
