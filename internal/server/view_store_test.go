package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tutor-chat/internal/core/render"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

func newTestViewStore(ttl time.Duration) *ViewStore {
	formatter := services.NewFormatter(render.NewHTMLRenderer())
	backend := new(mockBackend)
	return NewViewStore(ttl, func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher) {
		return services.NewViewSession(backend, formatter, domain.LanguagePython, view, nil)
	})
}

func TestViewStore(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		vs := newTestViewStore(time.Minute)
		s := vs.Create()
		require.NotNil(t, s)
		assert.NotEmpty(t, s.ID)
		assert.NotNil(t, s.Controller)
		assert.NotNil(t, s.Dispatcher)
		assert.WithinDuration(t, time.Now().Add(time.Minute), s.ExpiresAt, time.Second)

		got, err := vs.Get(s.ID)
		require.NoError(t, err)
		assert.Same(t, s, got)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		vs := newTestViewStore(time.Minute)
		_, err := vs.Get("non-existent")
		assert.Error(t, err)
	})

	t.Run("ViewsAreIndependent", func(t *testing.T) {
		vs := newTestViewStore(time.Minute)
		a, b := vs.Create(), vs.Create()
		assert.NotEqual(t, a.ID, b.ID)

		a.Controller.ToggleEditor(domain.LanguageSQL)
		assert.True(t, a.Controller.Overlay().Visible())
		assert.False(t, b.Controller.Overlay().Visible())
	})

	t.Run("GetExpired", func(t *testing.T) {
		vs := newTestViewStore(-time.Second)
		s := vs.Create()
		_, err := vs.Get(s.ID)
		assert.Error(t, err)
	})

	t.Run("CleanupExpired", func(t *testing.T) {
		vs := newTestViewStore(time.Minute)
		expired := vs.Create()
		alive := vs.Create()
		expired.ExpiresAt = time.Now().Add(-time.Second)

		vs.CleanupExpired()

		assert.Equal(t, 1, vs.Len())
		_, err := vs.Get(alive.ID)
		assert.NoError(t, err)
	})

	t.Run("Flash", func(t *testing.T) {
		vs := newTestViewStore(time.Minute)
		s := vs.Create()
		s.SetFlash("oops")
		assert.Equal(t, "oops", s.TakeFlash())
		assert.Empty(t, s.TakeFlash())
	})
}

func TestViewStore_StartCleanupTicker(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	vs := newTestViewStore(time.Minute)
	s := vs.Create()
	s.ExpiresAt = time.Now().Add(-time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	vs.StartCleanupTicker(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return vs.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	// Даем горутине тикера завершиться
	time.Sleep(50 * time.Millisecond)
}

func TestPageView(t *testing.T) {
	v := newPageView()
	v.AppendBubble(domain.Bubble{ID: "b1"})
	v.Typeset("b1")
	v.AppendNotice(domain.Notice{ID: "n1"})
	v.SetBusy(true)

	assert.Equal(t, "n1", v.Latest())
	assert.True(t, v.Busy())
	assert.Equal(t, map[string]bool{"b1": true}, v.TakeTypeset())
	assert.Empty(t, v.TakeTypeset())

	v.reset()
	assert.Empty(t, v.Latest())
}
