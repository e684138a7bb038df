package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tutor-chat/internal/adapters/backend"
	"tutor-chat/internal/core/render"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/log"
	"tutor-chat/internal/pkg/config"
	"tutor-chat/internal/pkg/term"
)

const defaultTerminalWidth = 80

var (
	cfgFile    string
	backendURL string
	language   string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:          "tutor-client",
	Short:        "Terminal client for the tutoring assistant",
	Long:         `Interactive terminal client: chat with the assistant, attach code from the editor and react to replies.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		tm := term.New(out)
		color := tm.IsTerminal() && !noColor
		width := tm.Width(defaultTerminalWidth)

		var highlighter render.Highlighter
		if color && cfg.Render.Highlight {
			highlighter = render.NewTerminalHighlighter(cfg.Render.HighlightStyle)
		}

		client := newBackendClient(cfg, logger)
		view := newConsoleView(out, color, width)
		formatter := services.NewFormatter(render.NewTerminalRenderer(highlighter))
		controller, dispatcher := services.NewViewSession(client, formatter, cfg.Editor.DefaultLanguage, view, logger)

		return newREPL(controller, dispatcher, client, view, cmd.InOrStdin(), out, width).Run(ctx)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [dir]",
	Short: "Download the conversation file from the backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		client := newBackendClient(cfg, logger)
		view := newConsoleView(cmd.OutOrStdout(), false, defaultTerminalWidth)
		r := &repl{backend: client, view: view, out: cmd.OutOrStdout()}
		return r.download(cmd.Context(), dir)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (overrides config)")
	rootCmd.Flags().StringVar(&language, "lang", "", "default editor language: python or sql")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors and syntax highlighting")
	rootCmd.AddCommand(downloadCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig загружает конфигурацию и применяет флаги командной строки.
// Логи клиента пишутся в stderr, чтобы не смешиваться с диалогом.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}
	if language != "" {
		cfg.Editor.DefaultLanguage = language
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Logging.Level, "text", cfg.Backend.Session)
	return cfg, logger, nil
}

func newBackendClient(cfg *config.Config, logger *slog.Logger) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithSession(cfg.Backend.SessionCookie, cfg.Backend.Session),
		backend.WithLogger(logger),
	)
}
