// Package cache хранит результаты разбора и отрисовки ответов ассистента,
// чтобы одинаковые ответы не отрисовывались повторно.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"tutor-chat/internal/domain"
)

// CacheItem — фрагменты и разметка одного отрисованного текста.
type CacheItem struct {
	Segments  []domain.Segment
	Markup    string
	ExpiresAt time.Time
}

type entry struct {
	key  string
	item *CacheItem
}

// Stats — счетчики обращений к кэшу.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// CacheStore — потокобезопасный кэш с TTL и ограничением размера.
// При переполнении вытесняется элемент, к которому дольше всего не обращались.
type CacheStore struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // начало списка — самый свежий элемент
	maxEntries int
	now        func() time.Time
	stats      Stats
}

// Option определяет функциональную опцию для CacheStore.
type Option func(*CacheStore)

// WithMaxEntries ограничивает число элементов. 0 снимает ограничение.
func WithMaxEntries(n int) Option {
	return func(cs *CacheStore) {
		if n >= 0 {
			cs.maxEntries = n
		}
	}
}

// WithClock задает источник времени.
func WithClock(now func() time.Time) Option {
	return func(cs *CacheStore) {
		cs.now = now
	}
}

// NewCacheStore создает новый экземпляр CacheStore.
func NewCacheStore(opts ...Option) *CacheStore {
	cs := &CacheStore{
		items: make(map[string]*list.Element),
		order: list.New(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// Get возвращает элемент по ключу. Просроченный элемент удаляется и считается промахом.
func (cs *CacheStore) Get(key string) (*CacheItem, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	el, ok := cs.items[key]
	if !ok {
		cs.stats.Misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if cs.now().After(e.item.ExpiresAt) {
		cs.removeElement(el)
		cs.stats.Misses++
		return nil, false
	}

	cs.order.MoveToFront(el)
	cs.stats.Hits++
	return e.item, true
}

// Put сохраняет элемент на время ttl, заменяя прежнее значение ключа.
func (cs *CacheStore) Put(key string, segments []domain.Segment, markup string, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	item := &CacheItem{Segments: segments, Markup: markup, ExpiresAt: cs.now().Add(ttl)}
	if el, ok := cs.items[key]; ok {
		el.Value.(*entry).item = item
		cs.order.MoveToFront(el)
		return
	}

	cs.items[key] = cs.order.PushFront(&entry{key: key, item: item})
	for cs.maxEntries > 0 && cs.order.Len() > cs.maxEntries {
		cs.removeElement(cs.order.Back())
		cs.stats.Evictions++
	}
}

// Len возвращает количество элементов, включая еще не удаленные просроченные.
func (cs *CacheStore) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.items)
}

// Stats возвращает снимок счетчиков.
func (cs *CacheStore) Stats() Stats {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.stats
}

// CleanupExpired удаляет просроченные элементы и возвращает их число.
func (cs *CacheStore) CleanupExpired() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	removed := 0
	for el := cs.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*entry).item.ExpiresAt) {
			cs.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// StartCleanupTicker периодически удаляет просроченные элементы до отмены ctx.
func (cs *CacheStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cs.CleanupExpired()
			}
		}
	}()
}

func (cs *CacheStore) removeElement(el *list.Element) {
	cs.order.Remove(el)
	delete(cs.items, el.Value.(*entry).key)
}

// CalculateHashFromString вычисляет ключ кэша: SHA-256 роли и текста.
// Роль входит в ключ, потому что пузыри пользователя и ассистента
// из одного и того же текста отрисовываются по-разному.
func CalculateHashFromString(role domain.Role, text string) string {
	h := sha256.New()
	h.Write([]byte(role))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
