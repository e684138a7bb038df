package services

import (
	"time"

	"tutor-chat/internal/cache"
	"tutor-chat/internal/core/segment"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

// Formatter разбирает текст на фрагменты и отрисовывает их.
// При наличии кэша повторная отрисовка одного и того же ответа не выполняется.
type Formatter struct {
	renderer ports.Renderer
	cache    *cache.CacheStore
	cacheTTL time.Duration
}

// FormatterOption определяет функциональную опцию для Formatter.
type FormatterOption func(*Formatter)

// WithCache подключает кэш отрисовки.
func WithCache(cs *cache.CacheStore, ttl time.Duration) FormatterOption {
	return func(f *Formatter) {
		f.cache = cs
		f.cacheTTL = ttl
	}
}

// NewFormatter создает новый экземпляр Formatter.
func NewFormatter(renderer ports.Renderer, opts ...FormatterOption) *Formatter {
	f := &Formatter{renderer: renderer, cacheTTL: time.Hour}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FormatReply разбирает и отрисовывает ответ ассистента.
func (f *Formatter) FormatReply(text string) ([]domain.Segment, string) {
	var key string
	if f.cache != nil {
		key = cache.CalculateHashFromString(domain.RoleAssistant, text)
		if item, ok := f.cache.Get(key); ok {
			return item.Segments, item.Markup
		}
	}

	segments := segment.Split(text)
	markup := f.renderer.Render(segments)

	if f.cache != nil {
		f.cache.Put(key, segments, markup, f.cacheTTL)
	}
	return segments, markup
}

// Render отрисовывает готовые фрагменты без кэширования.
func (f *Formatter) Render(segments []domain.Segment) string {
	return f.renderer.Render(segments)
}
