// Package conversation хранит ленту диалога одного представления.
// Модель сообщений является источником истины; разметка пузырей — ее проекция.
package conversation

import (
	"sync"

	"tutor-chat/internal/domain"
)

type record struct {
	message domain.Message
	bubble  domain.Bubble
	used    map[domain.AffordanceKind]bool
}

// Store — упорядоченная лента записей (пузыри и уведомления). Во время сессии
// записи только добавляются; Clear уничтожает все сообщения.
type Store struct {
	mu      sync.RWMutex
	entries []domain.Entry
	records map[string]*record
}

// NewStore создает пустое хранилище.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// AppendBubble добавляет пузырь вместе с сообщением, из которого он построен.
func (s *Store) AppendBubble(msg domain.Message, b domain.Bubble) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[b.ID] = &record{message: msg, bubble: b, used: make(map[domain.AffordanceKind]bool)}
	bb := b
	s.entries = append(s.entries, domain.Entry{Kind: domain.EntryBubble, Bubble: &bb})
}

// AppendNotice добавляет уведомление об ошибке.
func (s *Store) AppendNotice(n domain.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nn := n
	s.entries = append(s.entries, domain.Entry{Kind: domain.EntryNotice, Notice: &nn})
}

// Entries возвращает копию ленты в порядке добавления.
func (s *Store) Entries() []domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Entry, len(s.entries))
	for i, e := range s.entries {
		switch {
		case e.Bubble != nil:
			b := *e.Bubble
			out[i] = domain.Entry{Kind: e.Kind, Bubble: &b}
		case e.Notice != nil:
			n := *e.Notice
			out[i] = domain.Entry{Kind: e.Kind, Notice: &n}
		}
	}
	return out
}

// Message возвращает сообщение по идентификатору.
func (s *Store) Message(id string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return domain.Message{}, false
	}
	return r.message, true
}

// Bubble возвращает пузырь по идентификатору.
func (s *Store) Bubble(id string) (domain.Bubble, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return domain.Bubble{}, false
	}
	return r.bubble, true
}

// MarkUsed помечает действие использованным. Возвращает false, если пузыря
// нет или действие уже было использовано.
func (s *Store) MarkUsed(id string, kind domain.AffordanceKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.used[kind] {
		return false
	}
	r.used[kind] = true
	return true
}

// IsUsed сообщает, использовано ли действие на пузыре.
func (s *Store) IsUsed(id string, kind domain.AffordanceKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	return ok && r.used[kind]
}

// UsedAffordances возвращает использованные действия пузыря.
func (s *Store) UsedAffordances(id string) map[domain.AffordanceKind]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.AffordanceKind]bool)
	if r, ok := s.records[id]; ok {
		for k, v := range r.used {
			out[k] = v
		}
	}
	return out
}

// MarkReported выставляет флаг reported. Флаг необратим.
func (s *Store) MarkReported(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.records[id]; ok {
		r.message.Reported = true
	}
}

// Len возвращает количество записей в ленте.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear очищает ленту.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.records = make(map[string]*record)
}
