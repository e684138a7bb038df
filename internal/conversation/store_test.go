package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-chat/internal/domain"
)

func TestStore(t *testing.T) {
	newBubble := func(id string) (domain.Message, domain.Bubble) {
		msg := domain.Message{ID: id, Role: domain.RoleAssistant, RawText: "texte " + id}
		return msg, domain.Bubble{ID: id, Role: domain.RoleAssistant, RawTextForReplay: msg.RawText}
	}

	t.Run("записи сохраняют порядок добавления", func(t *testing.T) {
		s := NewStore()
		s.AppendBubble(newBubble("a"))
		s.AppendNotice(domain.Notice{ID: "n", Text: "Erreur"})
		s.AppendBubble(newBubble("b"))

		entries := s.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, "a", entries[0].ID())
		assert.Equal(t, domain.EntryNotice, entries[1].Kind)
		assert.Equal(t, "b", entries[2].ID())
		assert.Equal(t, 3, s.Len())
	})

	t.Run("Entries возвращает копию", func(t *testing.T) {
		s := NewStore()
		s.AppendBubble(newBubble("a"))

		entries := s.Entries()
		entries[0].Bubble.BodyMarkup = "modifié"

		b, ok := s.Bubble("a")
		require.True(t, ok)
		assert.Empty(t, b.BodyMarkup)
	})

	t.Run("одноразовое действие помечается один раз", func(t *testing.T) {
		s := NewStore()
		s.AppendBubble(newBubble("a"))

		assert.False(t, s.IsUsed("a", domain.AffordanceReport))
		assert.True(t, s.MarkUsed("a", domain.AffordanceReport))
		assert.False(t, s.MarkUsed("a", domain.AffordanceReport))
		assert.True(t, s.IsUsed("a", domain.AffordanceReport))
		assert.Equal(t, map[domain.AffordanceKind]bool{domain.AffordanceReport: true}, s.UsedAffordances("a"))
	})

	t.Run("неизвестный пузырь", func(t *testing.T) {
		s := NewStore()
		assert.False(t, s.MarkUsed("nope", domain.AffordanceReport))
		_, ok := s.Message("nope")
		assert.False(t, ok)
		_, ok = s.Bubble("nope")
		assert.False(t, ok)
		assert.Empty(t, s.UsedAffordances("nope"))
	})

	t.Run("reported выставляется на сообщении", func(t *testing.T) {
		s := NewStore()
		s.AppendBubble(newBubble("a"))
		s.MarkReported("a")

		msg, ok := s.Message("a")
		require.True(t, ok)
		assert.True(t, msg.Reported)
	})

	t.Run("Clear уничтожает все сообщения", func(t *testing.T) {
		s := NewStore()
		s.AppendBubble(newBubble("a"))
		s.MarkUsed("a", domain.AffordanceReport)
		s.Clear()

		assert.Equal(t, 0, s.Len())
		_, ok := s.Message("a")
		assert.False(t, ok)
		assert.False(t, s.IsUsed("a", domain.AffordanceReport))
	})
}

func TestStore_ConcurrentMarkUsed(t *testing.T) {
	s := NewStore()
	s.AppendBubble(domain.Message{ID: "a"}, domain.Bubble{ID: "a"})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.MarkUsed("a", domain.AffordanceSimilarExercise) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
