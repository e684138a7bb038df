package bot

import (
	"context"
	"sync"
	"time"

	"tutor-chat/internal/core/services"
	"tutor-chat/internal/ports"
)

// SessionFactory создает контроллер обмена и диспетчер действий для нового чата.
type SessionFactory func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher)

// chatSession — состояние диалога одного чата Telegram.
type chatSession struct {
	Controller *services.ExchangeController
	Dispatcher *services.ReactionDispatcher
	view       *chatView
	lastSeen   time.Time
}

// ChatStore — это потокобезопасное in-memory хранилище, сопоставляющее
// идентификатор чата Telegram с его диалогом.
type ChatStore struct {
	mu      sync.Mutex
	chats   map[int64]*chatSession // map[chatID]session
	ttl     time.Duration
	factory SessionFactory
	newView func(chatID int64) *chatView
}

// NewChatStore создает новый экземпляр ChatStore.
func NewChatStore(ttl time.Duration, factory SessionFactory, newView func(chatID int64) *chatView) *ChatStore {
	return &ChatStore{
		chats:   make(map[int64]*chatSession),
		ttl:     ttl,
		factory: factory,
		newView: newView,
	}
}

// Get возвращает диалог чата, создавая его при первом обращении.
func (s *ChatStore) Get(chatID int64) *chatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.chats[chatID]
	if !ok {
		view := s.newView(chatID)
		controller, dispatcher := s.factory(view)
		session = &chatSession{Controller: controller, Dispatcher: dispatcher, view: view}
		s.chats[chatID] = session
	}
	session.lastSeen = time.Now()
	return session
}

// Len возвращает количество активных диалогов.
func (s *ChatStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// CleanupExpired удаляет диалоги, неактивные дольше ttl.
// Диалог, в котором идет отправка, не удаляется.
func (s *ChatStore) CleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := time.Now().Add(-s.ttl)
	for chatID, session := range s.chats {
		if session.lastSeen.Before(deadline) && !session.Controller.Busy() {
			delete(s.chats, chatID)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки неактивных диалогов.
func (s *ChatStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}
