package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BotAPILogger направляет журнал библиотеки tgbotapi в slog.
// Сообщения о сбоях поднимаются до warn, остальное пишется на уровне debug.
type BotAPILogger struct {
	Logger *slog.Logger
}

// Println реализует интерфейс tgbotapi.BotLogger.
func (l *BotAPILogger) Println(v ...any) {
	l.log(fmt.Sprintln(v...))
}

// Printf реализует интерфейс tgbotapi.BotLogger.
func (l *BotAPILogger) Printf(format string, v ...any) {
	l.log(fmt.Sprintf(format, v...))
}

func (l *BotAPILogger) log(msg string) {
	msg = strings.TrimSpace(msg)
	level := slog.LevelDebug
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "fail") || strings.Contains(lower, "error") {
		level = slog.LevelWarn
	}
	l.Logger.Log(context.Background(), level, msg)
}
