package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutor-chat/internal/core/services"
	"tutor-chat/internal/ports"
)

// SessionFactory создает контроллер обмена и диспетчер действий для нового представления.
type SessionFactory func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher)

// Session — одно представление диалога (вкладка браузера с cookie).
type Session struct {
	ID         string
	Controller *services.ExchangeController
	Dispatcher *services.ReactionDispatcher
	CreatedAt  time.Time
	ExpiresAt  time.Time

	view  *pageView
	mu    sync.Mutex
	flash string
}

// SetFlash запоминает временное уведомление для следующей отрисовки страницы.
func (s *Session) SetFlash(text string) {
	s.mu.Lock()
	s.flash = text
	s.mu.Unlock()
}

// TakeFlash возвращает и сбрасывает временное уведомление.
func (s *Session) TakeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	flash := s.flash
	s.flash = ""
	return flash
}

// ViewStore управляет хранением и извлечением представлений
type ViewStore struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	ttl      time.Duration
	factory  SessionFactory
}

// NewViewStore создает новый экземпляр ViewStore
func NewViewStore(ttl time.Duration, factory SessionFactory) *ViewStore {
	return &ViewStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
	}
}

// Create создает новое представление
func (vs *ViewStore) Create() *Session {
	view := newPageView()
	controller, dispatcher := vs.factory(view)

	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Controller: controller,
		Dispatcher: dispatcher,
		CreatedAt:  now,
		ExpiresAt:  now.Add(vs.ttl),
		view:       view,
	}

	vs.mutex.Lock()
	vs.sessions[s.ID] = s
	vs.mutex.Unlock()
	return s
}

// Get извлекает представление по его ID и продлевает срок его жизни
func (vs *ViewStore) Get(id string) (*Session, error) {
	vs.mutex.Lock()
	defer vs.mutex.Unlock()

	s, exists := vs.sessions[id]
	if !exists || time.Now().After(s.ExpiresAt) {
		return nil, fmt.Errorf("представление с ID %s не найдено", id)
	}
	s.ExpiresAt = time.Now().Add(vs.ttl)
	return s, nil
}

// Len возвращает количество представлений
func (vs *ViewStore) Len() int {
	vs.mutex.RLock()
	defer vs.mutex.RUnlock()
	return len(vs.sessions)
}

// CleanupExpired удаляет просроченные представления из хранилища.
// Представление, в котором идет отправка, не удаляется.
func (vs *ViewStore) CleanupExpired() {
	vs.mutex.Lock()
	defer vs.mutex.Unlock()

	now := time.Now()
	for id, s := range vs.sessions {
		if now.After(s.ExpiresAt) && !s.Controller.Busy() {
			delete(vs.sessions, id)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных представлений
func (vs *ViewStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				vs.CleanupExpired()
			}
		}
	}()
}
