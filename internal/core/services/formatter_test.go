package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tutor-chat/internal/cache"
	"tutor-chat/internal/domain"
)

type countingRenderer struct {
	calls int
}

func (r *countingRenderer) Render(segments []domain.Segment) string {
	r.calls++
	return "rendered"
}

func TestFormatter_FormatReply(t *testing.T) {
	t.Run("без кэша каждый вызов отрисовывает", func(t *testing.T) {
		r := &countingRenderer{}
		f := NewFormatter(r)

		f.FormatReply("texte")
		f.FormatReply("texte")

		assert.Equal(t, 2, r.calls)
	})

	t.Run("кэш переиспользует фрагменты и разметку", func(t *testing.T) {
		r := &countingRenderer{}
		f := NewFormatter(r, WithCache(cache.NewCacheStore(), time.Minute))

		segs1, markup1 := f.FormatReply("intro ```python\nprint(1)\n``` outro")
		segs2, markup2 := f.FormatReply("intro ```python\nprint(1)\n``` outro")

		assert.Equal(t, 1, r.calls)
		assert.Equal(t, segs1, segs2)
		assert.Equal(t, markup1, markup2)
		assert.Len(t, segs1, 3)
	})
}
