package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tutor-chat/internal/domain"
)

const (
	callbackPrefix = "a"
	callbackSep    = "|"
	buttonsPerRow  = 2
)

// callbackData кодирует действие над пузырем в данные кнопки (не более 64 байт).
func callbackData(messageID string, kind domain.AffordanceKind) string {
	return strings.Join([]string{callbackPrefix, messageID, string(kind)}, callbackSep)
}

// parseCallbackData разбирает данные кнопки, созданные callbackData.
func parseCallbackData(data string) (string, domain.AffordanceKind, bool) {
	parts := strings.Split(data, callbackSep)
	if len(parts) != 3 || parts[0] != callbackPrefix || parts[1] == "" {
		return "", "", false
	}
	kind, ok := domain.ParseAffordanceKind(parts[2])
	if !ok {
		return "", "", false
	}
	return parts[1], kind, true
}

// keyboard строит клавиатуру действий пузыря. Уже использованные
// одноразовые действия в нее не попадают.
func keyboard(b domain.Bubble, used map[domain.AffordanceKind]bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	var row []tgbotapi.InlineKeyboardButton
	for _, kind := range b.Affordances {
		if kind.OneShot() && used[kind] {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(kind.Label(), callbackData(b.ID, kind)))
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
