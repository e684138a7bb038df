package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tutor-chat/internal/adapters/backend"
	"tutor-chat/internal/adapters/exporter"
	"tutor-chat/internal/cache"
	"tutor-chat/internal/core/render"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/log"
	"tutor-chat/internal/pkg/config"
	"tutor-chat/internal/ports"
	"tutor-chat/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	configPath := "config.yml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger := log.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format, cfg.Backend.Session)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Инициализация зависимостей
	var (
		rendererOpts []render.Option
		serverOpts   = []server.Option{server.WithLogger(logger)}
	)
	if cfg.Render.Highlight {
		highlighter := render.NewHTMLHighlighter(cfg.Render.HighlightStyle)
		rendererOpts = append(rendererOpts, render.WithHighlighter(highlighter))
		serverOpts = append(serverOpts, server.WithHighlightCSS(highlighter))
	}

	renderCache := cache.NewCacheStore(cache.WithMaxEntries(cfg.Render.CacheMaxEntries))
	renderCache.StartCleanupTicker(ctx, cfg.Server.CleanupInterval)
	formatter := services.NewFormatter(
		render.NewHTMLRenderer(rendererOpts...),
		services.WithCache(renderCache, cfg.Render.CacheTTL),
	)

	// У каждой вкладки своя сессия бэкенда: история и прогресс упражнений не смешиваются
	views := server.NewViewStore(cfg.Server.SessionTTL, func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher) {
		client := backend.NewClient(cfg.Backend.BaseURL,
			backend.WithTimeout(cfg.Backend.Timeout),
			backend.WithLogger(logger),
		)
		return services.NewViewSession(client, formatter, cfg.Editor.DefaultLanguage, view, logger)
	})

	// 5. Создание HTTP-сервера
	srv, err := server.New(cfg, views, exporter.NewExcelExporter(logger), serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	srv.StartBackground(ctx)

	// 6. Запуск сервера и graceful shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "addr", cfg.Address(), "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Signal received, shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Application exited gracefully")
	return nil
}
