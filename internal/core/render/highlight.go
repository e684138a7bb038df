package render

import (
	"bytes"
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"tutor-chat/internal/domain"
)

// ChromaHighlighter раскрашивает код с помощью chroma.
// Подсвечиваются только распознанные языки; остальные выводятся как есть.
type ChromaHighlighter struct {
	formatter chroma.Formatter
	html      *chromahtml.Formatter
	style     *chroma.Style
	languages map[string]bool
}

// NewHTMLHighlighter создает подсветку для HTML-страницы (CSS-классы вместо inline-стилей).
func NewHTMLHighlighter(styleName string) *ChromaHighlighter {
	f := chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true))
	return &ChromaHighlighter{
		formatter: f,
		html:      f,
		style:     styles.Get(styleName),
		languages: editorLanguages(),
	}
}

// NewTerminalHighlighter создает подсветку с ANSI-последовательностями для терминала.
func NewTerminalHighlighter(styleName string) *ChromaHighlighter {
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &ChromaHighlighter{
		formatter: formatter,
		style:     styles.Get(styleName),
		languages: editorLanguages(),
	}
}

func editorLanguages() map[string]bool {
	langs := make(map[string]bool, len(domain.EditorLanguages))
	for _, l := range domain.EditorLanguages {
		langs[l] = true
	}
	return langs
}

// Highlight реализует интерфейс Highlighter.
func (h *ChromaHighlighter) Highlight(language, code string) (string, bool) {
	if !h.languages[language] {
		return "", false
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", false
	}
	return buf.String(), true
}

// WriteCSS выводит таблицу стилей для HTML-подсветки.
// Для терминальной подсветки ничего не делает.
func (h *ChromaHighlighter) WriteCSS(w io.Writer) error {
	if h.html == nil {
		return nil
	}
	return h.html.WriteCSS(w, h.style)
}
