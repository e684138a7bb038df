package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	botconfig "tutor-chat/cmd/bot/config"
	"tutor-chat/internal/adapters/backend"
	"tutor-chat/internal/adapters/exporter"
	"tutor-chat/internal/bot"
	"tutor-chat/internal/cache"
	"tutor-chat/internal/core/render"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/log"
	"tutor-chat/internal/pkg/config"
	"tutor-chat/internal/ports"
)

func main() {
	// Загрузка общей конфигурации и конфигурации бота
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	botCfg, err := botconfig.LoadBotConfig("bot_config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateBot(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate config: %v\n", err)
		os.Exit(1)
	}
	if err := botCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с маскировкой токенов и настройками из конфига
	logger := log.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.Bot.Token, cfg.Backend.Session)
	slog.SetDefault(logger)
	if err := tgbotapi.SetLogger(&log.BotAPILogger{Logger: logger.With(slog.String("component", "tgbotapi"))}); err != nil {
		slog.Warn("failed to set telegram api logger", slog.String("error", err.Error()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализация компонентов
	renderCache := cache.NewCacheStore(cache.WithMaxEntries(cfg.Render.CacheMaxEntries))
	renderCache.StartCleanupTicker(ctx, cfg.Server.CleanupInterval)
	formatter := services.NewFormatter(render.TelegramRenderer{}, services.WithCache(renderCache, cfg.Render.CacheTTL))

	// У каждого чата своя сессия бэкенда
	factory := func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher) {
		client := backend.NewClient(cfg.Backend.BaseURL,
			backend.WithTimeout(cfg.Backend.Timeout),
			backend.WithLogger(logger),
		)
		return services.NewViewSession(client, formatter, cfg.Editor.DefaultLanguage, view, logger)
	}

	b, err := bot.NewBot(cfg.Bot.Token, *botCfg, factory, exporter.NewExcelExporter(logger),
		logger.With(slog.String("component", "bot")),
		bot.WithAllowedChats(cfg.Bot.AllowedChatIDs),
		bot.WithSessionTTL(cfg.Server.SessionTTL),
	)
	if err != nil {
		slog.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Bot created successfully, starting...")

	// Start возвращается после отмены контекста, дождавшись начатых обработчиков
	b.Start(ctx)

	slog.Info("Bot stopped gracefully")
}
