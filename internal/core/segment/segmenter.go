// Package segment разбивает текст сообщения на чередующиеся фрагменты
// прозы и блоков кода в ограждениях из тройных обратных кавычек.
package segment

import (
	"strings"
	"unicode"

	"tutor-chat/internal/domain"
)

const fence = "```"

// Split разбирает текст на фрагменты в порядке их появления.
//
// Грамматика ограждения: "```", сразу за ним необязательный тег языка
// (только буквы) и перевод строки, затем тело и закрывающее "```".
// Если за буквами не следует перевод строки, тега нет и тело начинается
// сразу после открывающих кавычек. Незакрытое ограждение и все, что за ним,
// остается прозой. Текст без ограждений дает ровно один фрагмент прозы,
// равный входу без обрезки. Пустой вход дает nil.
func Split(text string) []domain.Segment {
	if text == "" {
		return nil
	}

	var (
		segments []domain.Segment
		prose    strings.Builder
	)
	flush := func() {
		if prose.Len() > 0 {
			segments = append(segments, domain.Prose(prose.String()))
			prose.Reset()
		}
	}

	rest := text
	for {
		open := strings.Index(rest, fence)
		if open < 0 {
			prose.WriteString(rest)
			break
		}

		afterOpen := rest[open+len(fence):]
		lang, bodyStart := parseOpening(afterOpen)
		body := afterOpen[bodyStart:]

		closeIdx := strings.Index(body, fence)
		if closeIdx < 0 {
			// Незакрытое ограждение: остаток текста не теряется.
			prose.WriteString(rest)
			break
		}

		prose.WriteString(rest[:open])
		flush()
		segments = append(segments, domain.Code(lang, trimClosingNewline(body[:closeIdx])))
		rest = body[closeIdx+len(fence):]
	}
	flush()

	return segments
}

// parseOpening возвращает тег языка и смещение начала тела относительно
// позиции сразу после открывающего ограждения.
func parseOpening(s string) (string, int) {
	i := 0
	for i < len(s) {
		r := rune(s[i])
		if r >= 0x80 || !unicode.IsLetter(r) {
			break
		}
		i++
	}
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	switch {
	case strings.HasPrefix(s[j:], "\r\n"):
		return strings.ToLower(s[:i]), j + 2
	case strings.HasPrefix(s[j:], "\n"):
		return strings.ToLower(s[:i]), j + 1
	default:
		return "", 0
	}
}

func trimClosingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// Assemble собирает фрагменты обратно в текст, оборачивая блоки кода
// в ограждения с тегом языка. Для plaintext тег опускается.
// Split(Assemble(s)) дает те же фрагменты, что и s.
func Assemble(segments []domain.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		if !seg.IsCode() {
			sb.WriteString(seg.Content)
			continue
		}
		lang := seg.Language
		if lang == domain.LanguagePlaintext {
			lang = ""
		}
		sb.WriteString(fence)
		sb.WriteString(lang)
		sb.WriteString("\n")
		if seg.Content != "" {
			sb.WriteString(seg.Content)
			sb.WriteString("\n")
		}
		sb.WriteString(fence)
	}
	return sb.String()
}

// Languages возвращает множество языков блоков кода в порядке первого появления.
func Languages(segments []domain.Segment) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, seg := range segments {
		if seg.IsCode() && !seen[seg.Language] {
			seen[seg.Language] = true
			langs = append(langs, seg.Language)
		}
	}
	return langs
}
