package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"tutor-chat/internal/domain"
)

// mockBackend — мок для интерфейса ports.Backend.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) SendMessage(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Report(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *mockBackend) DownloadConversation(ctx context.Context) (*domain.Attachment, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingView записывает вызовы представления.
type recordingView struct {
	mu       sync.Mutex
	bubbles  []domain.Bubble
	notices  []domain.Notice
	busy     []bool
	typeset  []string
	scrolled int
}

func (v *recordingView) AppendBubble(b domain.Bubble) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bubbles = append(v.bubbles, b)
}

func (v *recordingView) AppendNotice(n domain.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *recordingView) SetBusy(busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.busy = append(v.busy, busy)
}

func (v *recordingView) ScrollToLatest() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolled++
}

func (v *recordingView) Typeset(entryID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typeset = append(v.typeset, entryID)
}

// sequentialIDs возвращает генератор идентификаторов id-1, id-2, ...
func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}
