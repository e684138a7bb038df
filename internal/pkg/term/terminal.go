package term

import (
	"io"

	"golang.org/x/term"
)

// Terminal описывает поток вывода консольного клиента.
type Terminal struct {
	fd  int
	tty bool
}

// New определяет, подключен ли out к терминалу.
// Потоки без файлового дескриптора (буферы, каналы) терминалом не считаются.
func New(out io.Writer) *Terminal {
	t := &Terminal{fd: -1}
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		t.fd = int(f.Fd())
		t.tty = term.IsTerminal(t.fd)
	}
	return t
}

// IsTerminal сообщает, подключен ли вывод к терминалу.
func (t *Terminal) IsTerminal() bool {
	return t.tty
}

// Width возвращает ширину терминала в колонках или fallback,
// если ее не удалось определить.
func (t *Terminal) Width(fallback int) int {
	if !t.tty {
		return fallback
	}
	width, _, err := term.GetSize(t.fd)
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
