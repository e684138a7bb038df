package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestChatStore(t *testing.T) {
	bot, _ := newTestBot(t, defaultTestConfig(), new(mockBackend))
	store := bot.chats

	first := store.Get(1)
	assert.Same(t, first, store.Get(1))
	assert.NotSame(t, first, store.Get(2))
	assert.Equal(t, 2, store.Len())

	first.lastSeen = time.Now().Add(-3 * time.Hour)
	store.CleanupExpired()
	assert.Equal(t, 1, store.Len())
}

func TestChatStore_StartCleanupTicker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bot, _ := newTestBot(t, defaultTestConfig(), new(mockBackend), WithSessionTTL(time.Minute))
	session := bot.chats.Get(1)
	bot.chats.mu.Lock()
	session.lastSeen = time.Now().Add(-time.Hour)
	bot.chats.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	bot.chats.StartCleanupTicker(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return bot.chats.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
}
