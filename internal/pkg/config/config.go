// Package config предоставляет управление конфигурацией приложения
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"tutor-chat/internal/domain"
)

// Server содержит конфигурацию веб-интерфейса
type Server struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	// SessionTTL — время жизни представления без обращений.
	SessionTTL      time.Duration `json:"session_ttl" yaml:"session_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// Backend содержит конфигурацию бэкенда диалога
type Backend struct {
	BaseURL       string        `json:"base_url" yaml:"base_url"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	SessionCookie string        `json:"session_cookie" yaml:"session_cookie"`
	// Session — заранее полученное cookie сессии для терминального клиента.
	// Веб-сервер и бот заводят отдельную сессию бэкенда на каждое представление.
	Session string `json:"session" yaml:"session"`
}

// Editor содержит конфигурацию оверлея редактора
type Editor struct {
	DefaultLanguage string `json:"default_language" yaml:"default_language"`
}

// Render содержит конфигурацию отрисовки
type Render struct {
	Highlight      bool          `json:"highlight" yaml:"highlight"`
	HighlightStyle string        `json:"highlight_style" yaml:"highlight_style"`
	CacheTTL       time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	// CacheMaxEntries ограничивает размер кэша отрисовки; 0 — без ограничения.
	CacheMaxEntries int `json:"cache_max_entries" yaml:"cache_max_entries"`
	// MathJaxURL — адрес скрипта MathJax для веб-страницы; пустая строка отключает формулы.
	MathJaxURL string `json:"mathjax_url" yaml:"mathjax_url"`
}

// Bot содержит конфигурацию Telegram-бота
type Bot struct {
	Token          string  `json:"token" yaml:"token"`
	AllowedChatIDs []int64 `json:"allowed_chat_ids" yaml:"allowed_chat_ids"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json, text
}

// Config содержит конфигурацию приложения
type Config struct {
	Server  Server  `json:"server" yaml:"server"`
	Backend Backend `json:"backend" yaml:"backend"`
	Editor  Editor  `json:"editor" yaml:"editor"`
	Render  Render  `json:"render" yaml:"render"`
	Bot     Bot     `json:"bot" yaml:"bot"`
	Logging Logging `json:"logging" yaml:"logging"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			SessionTTL:      DefaultSessionTTL,
			CleanupInterval: DefaultCleanupInterval,
		},
		Backend: Backend{
			BaseURL:       DefaultBackendURL,
			Timeout:       DefaultBackendTimeout,
			SessionCookie: DefaultSessionCookie,
		},
		Editor: Editor{
			DefaultLanguage: DefaultEditorLanguage,
		},
		Render: Render{
			Highlight:       true,
			HighlightStyle:  DefaultHighlightStyle,
			CacheTTL:        DefaultRenderCacheTTL,
			CacheMaxEntries: DefaultRenderCacheMaxEntries,
			MathJaxURL:      DefaultMathJaxURL,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл
// (если он есть), затем переменные окружения, в том числе из .env файла.
func LoadConfig(path string) (*Config, error) {
	// Отсутствие .env файла не является ошибкой
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию из env: %w", err)
	}
	return cfg, nil
}

// loadFromYAML накладывает значения из YAML-файла на cfg. Отсутствующий файл пропускается.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	return nil
}

// applyEnv переопределяет значения переменными окружения
func applyEnv(cfg *Config) error {
	cfg.Server.Host = getEnv("TUTOR_SERVER_HOST", cfg.Server.Host)
	if v := os.Getenv("TUTOR_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый TUTOR_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	cfg.Backend.BaseURL = getEnv("TUTOR_BACKEND_URL", cfg.Backend.BaseURL)
	cfg.Backend.Session = getEnv("TUTOR_BACKEND_SESSION", cfg.Backend.Session)
	if v := os.Getenv("TUTOR_BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый TUTOR_BACKEND_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = d
	}

	cfg.Bot.Token = getEnv("TUTOR_BOT_TOKEN", cfg.Bot.Token)
	cfg.Logging.Level = getEnv("TUTOR_LOG_LEVEL", cfg.Logging.Level)
	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl должно быть положительным")
	}
	if c.Server.CleanupInterval <= 0 {
		return fmt.Errorf("server.cleanup_interval должно быть положительным")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url не может быть пустым")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout должно быть положительным")
	}

	if !domain.IsEditorLanguage(c.Editor.DefaultLanguage) {
		return fmt.Errorf("editor.default_language должен быть одним из: %v", domain.EditorLanguages)
	}

	if c.Render.CacheTTL <= 0 {
		return fmt.Errorf("render.cache_ttl должно быть положительным")
	}
	if c.Render.CacheMaxEntries < 0 {
		return fmt.Errorf("render.cache_max_entries не может быть отрицательным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format должен быть одним из: json, text")
	}

	return nil
}

// ValidateBot проверяет настройки, необходимые Telegram-боту
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" || c.Bot.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
