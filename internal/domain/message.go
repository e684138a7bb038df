package domain

import "strings"

// Role определяет автора сообщения.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SegmentKind определяет тип фрагмента сообщения.
type SegmentKind string

const (
	SegmentProse SegmentKind = "prose"
	SegmentCode  SegmentKind = "code"
)

// Языки, которые распознаются в блоках кода и поддерживаются редактором.
const (
	LanguagePython    = "python"
	LanguageSQL       = "sql"
	LanguagePlaintext = "plaintext"
)

// EditorLanguages — языки, доступные в оверлее редактора.
var EditorLanguages = []string{LanguagePython, LanguageSQL}

// IsEditorLanguage сообщает, поддерживается ли язык оверлеем редактора.
func IsEditorLanguage(lang string) bool {
	for _, l := range EditorLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// Segment представляет непрерывный фрагмент содержимого сообщения.
// Content хранится без экранирования: экранирование — забота рендерера.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Language string      `json:"language,omitempty"` // только для SegmentCode
	Content  string      `json:"content"`
}

// Prose создает текстовый фрагмент.
func Prose(content string) Segment {
	return Segment{Kind: SegmentProse, Content: content}
}

// Code создает фрагмент кода. Пустой язык заменяется на plaintext.
func Code(language, content string) Segment {
	if language == "" {
		language = LanguagePlaintext
	}
	return Segment{Kind: SegmentCode, Language: language, Content: content}
}

// IsCode сообщает, является ли фрагмент блоком кода.
func (s Segment) IsCode() bool {
	return s.Kind == SegmentCode
}

// Message представляет одно сообщение диалога.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	// RawText — текст в том виде, в каком он был отправлен или получен.
	// Для исходящих сообщений включает скрытую директиву и код из редактора.
	RawText string `json:"raw_text"`
	// Visible — видимая пользователю часть исходящего сообщения.
	Visible string `json:"visible,omitempty"`
	// Directive — скрытая системная директива; никогда не отображается.
	Directive    string    `json:"-"`
	AttachedCode string    `json:"attached_code,omitempty"`
	CodeLanguage string    `json:"code_language,omitempty"`
	Segments     []Segment `json:"segments"`
	Reported     bool      `json:"reported"`
}

// ReplayText возвращает неэкранированный текст, который показывается в пузыре
// и цитируется при повторном использовании (например, «объяснить»).
// Скрытая директива в него никогда не попадает.
func (m Message) ReplayText() string {
	if m.Role == RoleAssistant {
		return m.RawText
	}
	return JoinParts(m.Visible, FenceCode(m.CodeLanguage, m.AttachedCode))
}

// CodeBlocks возвращает содержимое всех блоков кода на указанном языке в порядке появления.
func (m Message) CodeBlocks(language string) []string {
	var blocks []string
	for _, seg := range m.Segments {
		if seg.IsCode() && seg.Language == language {
			blocks = append(blocks, seg.Content)
		}
	}
	return blocks
}

// HasCode сообщает, содержит ли сообщение хотя бы один блок кода на указанном языке.
func (m Message) HasCode(language string) bool {
	return len(m.CodeBlocks(language)) > 0
}

// FenceCode оборачивает код в ограждение с тегом языка.
// Пустой код дает пустую строку.
func FenceCode(language, code string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}
	if language == LanguagePlaintext {
		language = ""
	}
	return "```" + language + "\n" + code + "\n```"
}

// JoinParts объединяет части переводом строки, пропуская пустые.
func JoinParts(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// OutgoingMessage — запрос на отправку. Видимая часть и скрытая директива
// хранятся раздельно и объединяются только при сериализации.
type OutgoingMessage struct {
	Visible   string
	Directive string
	Code      string
	Language  string
	// Echoed — видимый текст уже показан клиентом и повторять его не нужно.
	Echoed bool
}

// IsEmpty сообщает, пусты ли видимое сообщение и код после обрезки пробелов.
func (o OutgoingMessage) IsEmpty() bool {
	return strings.TrimSpace(o.Visible) == "" && strings.TrimSpace(o.Code) == ""
}

// Serialize собирает текст, отправляемый на бэкенд: видимое сообщение,
// затем директива, затем код в ограждении, через перевод строки.
func (o OutgoingMessage) Serialize() string {
	return JoinParts(
		strings.TrimSpace(o.Visible),
		strings.TrimSpace(o.Directive),
		FenceCode(o.Language, strings.TrimSpace(o.Code)),
	)
}

// Attachment — файл, полученный от бэкенда (например, экспорт диалога).
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
