package ports

import (
	"context"
	"io"

	"tutor-chat/internal/domain"
)

// Backend определяет интерфейс бэкенда диалога.
type Backend interface {
	// SendMessage отправляет сериализованное сообщение и возвращает ответ ассистента.
	SendMessage(ctx context.Context, message string) (string, error)
	// Report сигнализирует о проблемном сообщении.
	Report(ctx context.Context, messageID string) error
	// DownloadConversation возвращает экспорт диалога в виде вложения.
	DownloadConversation(ctx context.Context) (*domain.Attachment, error)
}

// View определяет представление, в которое выводится лента диалога.
// Методы вызываются контроллером обмена после изменения хранилища.
type View interface {
	AppendBubble(b domain.Bubble)
	AppendNotice(n domain.Notice)
	// SetBusy переключает доступность элементов отправки.
	SetBusy(busy bool)
	// ScrollToLatest прокручивает ленту к последней записи (по возможности).
	ScrollToLatest()
	// Typeset перерисовывает формулы только в указанной записи.
	Typeset(entryID string)
}

// Renderer преобразует последовательность фрагментов в разметку.
type Renderer interface {
	Render(segments []domain.Segment) string
}

// Exporter определяет интерфейс для выгрузки ленты диалога.
type Exporter interface {
	Export(w io.Writer, entries []domain.Entry) error
}

// NopView — представление, которое ничего не делает.
type NopView struct{}

func (NopView) AppendBubble(domain.Bubble) {}
func (NopView) AppendNotice(domain.Notice) {}
func (NopView) SetBusy(bool)               {}
func (NopView) ScrollToLatest()            {}
func (NopView) Typeset(string)             {}

// CodeSource поставляет исходный текст для редактора кода.
type CodeSource interface {
	// Fetch возвращает содержимое источника.
	Fetch(ctx context.Context) ([]byte, error)
	// Name возвращает имя файла. По расширению определяется язык.
	Name() string
}
