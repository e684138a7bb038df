package server

import (
	"sync"

	"tutor-chat/internal/domain"
)

// pageView реализует ports.View для страницы браузера. Страница
// перерисовывается целиком на каждый запрос, поэтому представление лишь
// запоминает, к какой записи прокрутить и какие записи нужно перенабрать.
type pageView struct {
	mu       sync.Mutex
	busy     bool
	latestID string
	typeset  map[string]bool
}

func newPageView() *pageView {
	return &pageView{typeset: make(map[string]bool)}
}

func (v *pageView) AppendBubble(b domain.Bubble) {
	v.mu.Lock()
	v.latestID = b.ID
	v.mu.Unlock()
}

func (v *pageView) AppendNotice(n domain.Notice) {
	v.mu.Lock()
	v.latestID = n.ID
	v.mu.Unlock()
}

func (v *pageView) SetBusy(busy bool) {
	v.mu.Lock()
	v.busy = busy
	v.mu.Unlock()
}

// ScrollToLatest ничего не делает: прокрутка выполняется якорем при перенаправлении.
func (v *pageView) ScrollToLatest() {}

func (v *pageView) Typeset(entryID string) {
	v.mu.Lock()
	v.typeset[entryID] = true
	v.mu.Unlock()
}

// Latest возвращает идентификатор последней добавленной записи.
func (v *pageView) Latest() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latestID
}

// Busy сообщает, идет ли отправка.
func (v *pageView) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy
}

// TakeTypeset возвращает записи, ожидающие перенабора формул, и сбрасывает список.
func (v *pageView) TakeTypeset() map[string]bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	pending := v.typeset
	v.typeset = make(map[string]bool)
	return pending
}

func (v *pageView) reset() {
	v.mu.Lock()
	v.latestID = ""
	v.typeset = make(map[string]bool)
	v.mu.Unlock()
}
