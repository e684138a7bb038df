package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tutor-chat/internal/domain"
)

const (
	userPrefix        = "<b>Vous :</b>\n"
	completedSuffix   = "\n\n✅ <b>Exercice terminé</b>"
	longReplyCaption  = "La réponse est trop longue pour un message, elle est jointe en fichier."
	longReplyFilename = "reponse_%s.md"
)

// chatView реализует ports.View для чата Telegram: каждый пузырь становится
// отдельным сообщением, действия — кнопками под ним.
type chatView struct {
	chatID int64
	bot    *Bot

	mu         sync.Mutex
	messageIDs map[string]int // map[bubbleID]telegramMessageID
}

func newChatView(chatID int64, bot *Bot) *chatView {
	return &chatView{
		chatID:     chatID,
		bot:        bot,
		messageIDs: make(map[string]int),
	}
}

// AppendBubble отправляет пузырь в чат. Собственное сообщение пользователя
// (Echoed) уже видно в чате и не повторяется.
func (v *chatView) AppendBubble(b domain.Bubble) {
	if b.Echoed {
		return
	}

	id, err := v.bot.sendBubble(v.chatID, b)
	if err != nil {
		v.bot.logger.Error("failed to send bubble", slog.Int64("chat_id", v.chatID), slog.String("error", err.Error()))
		return
	}

	v.mu.Lock()
	v.messageIDs[b.ID] = id
	v.mu.Unlock()
}

func (v *chatView) AppendNotice(n domain.Notice) {
	v.bot.sendMessage(tgbotapi.NewMessage(v.chatID, n.Text))
}

func (v *chatView) SetBusy(busy bool) {
	if busy {
		v.bot.request(tgbotapi.NewChatAction(v.chatID, tgbotapi.ChatTyping))
	}
}

// ScrollToLatest ничего не делает: Telegram сам прокручивает чат к новому сообщению.
func (v *chatView) ScrollToLatest() {}

// Typeset ничего не делает: Telegram не отображает формулы.
func (v *chatView) Typeset(string) {}

func (v *chatView) messageID(bubbleID string) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.messageIDs[bubbleID]
	return id, ok
}

func (v *chatView) reset() {
	v.mu.Lock()
	v.messageIDs = make(map[string]int)
	v.mu.Unlock()
}

// sendBubble отправляет пузырь и возвращает идентификатор сообщения Telegram,
// к которому прикреплена клавиатура.
func (b *Bot) sendBubble(chatID int64, bubble domain.Bubble) (int, error) {
	text := bubble.BodyMarkup
	if bubble.Role == domain.RoleUser {
		text = userPrefix + text
	}
	if bubble.Completed {
		text += completedSuffix
	}
	markup := keyboard(bubble, nil)

	if utf8.RuneCountInString(text) <= b.cfg.MaxMessageLength {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if len(markup.InlineKeyboard) > 0 {
			msg.ReplyMarkup = markup
		}
		sent, err := b.sendMessageFunc(msg)
		return sent.MessageID, err
	}

	b.logger.Warn("reply is too long for one message", slog.Int64("chat_id", chatID), slog.Int("length", utf8.RuneCountInString(text)))

	if b.cfg.LongReplyAsFile {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  fmt.Sprintf(longReplyFilename, bubble.CreatedAt.Format("2006-01-02_15-04-05")),
			Bytes: []byte(bubble.RawTextForReplay),
		})
		doc.Caption = longReplyCaption
		if len(markup.InlineKeyboard) > 0 {
			doc.ReplyMarkup = markup
		}
		sent, err := b.sendMessageFunc(doc)
		return sent.MessageID, err
	}

	// Части отправляются простым текстом: разрезанная HTML-разметка некорректна
	chunks := splitText(bubble.RawTextForReplay, b.cfg.MaxMessageLength)
	var last tgbotapi.Message
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && len(markup.InlineKeyboard) > 0 {
			msg.ReplyMarkup = markup
		}
		sent, err := b.sendMessageFunc(msg)
		if err != nil {
			return 0, err
		}
		last = sent
	}
	return last.MessageID, nil
}

// splitText режет текст на части не длиннее limit символов, по возможности по переводам строк.
func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen <= limit {
			current.WriteString(line)
			currentLen += lineLen
			continue
		}
		flush()

		runes := []rune(line)
		for len(runes) > limit {
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		current.WriteString(string(runes))
		currentLen = len(runes)
	}
	flush()
	return chunks
}
