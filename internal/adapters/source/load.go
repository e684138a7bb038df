package source

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/xerrors"

	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

// MaxCodeSize ограничивает размер загружаемого файла (байт).
const MaxCodeSize = 256 << 10

var (
	// ErrUnsupportedFile возвращается для файлов с неизвестным расширением.
	ErrUnsupportedFile = xerrors.New("unsupported file type")
	// ErrTooLarge возвращается, если файл превышает MaxCodeSize.
	ErrTooLarge = xerrors.New("file too large")
	// ErrNotText возвращается, если содержимое не является UTF-8 текстом.
	ErrNotText = xerrors.New("file is not valid UTF-8 text")
)

var extLanguages = map[string]string{
	".py":  domain.LanguagePython,
	".sql": domain.LanguageSQL,
}

// Language определяет язык редактора по имени файла.
func Language(name string) (string, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(name))]
	return lang, ok
}

// Load читает источник и возвращает язык и текст для редактора.
// Переводы строк приводятся к "\n".
func Load(ctx context.Context, src ports.CodeSource) (string, string, error) {
	lang, ok := Language(src.Name())
	if !ok {
		return "", "", xerrors.Errorf("%s: %w", src.Name(), ErrUnsupportedFile)
	}

	data, err := src.Fetch(ctx)
	if err != nil {
		return "", "", err
	}
	if !utf8.Valid(data) {
		return "", "", xerrors.Errorf("%s: %w", src.Name(), ErrNotText)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return lang, text, nil
}
