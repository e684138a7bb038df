package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// BotConfig содержит настройки, относящиеся только к Telegram-боту.
// Токен, адрес бэкенда и логирование задаются в общей конфигурации.
type BotConfig struct {
	UpdateTimeoutSeconds int  `yaml:"update_timeout_seconds"`
	MaxMessageLength     int  `yaml:"max_message_length"`
	MaxConcurrentUpdates int  `yaml:"max_concurrent_updates"`
	LongReplyAsFile      bool `yaml:"long_reply_as_file"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot BotConfig `yaml:"bot"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
// Если файла нет, используются значения по умолчанию.
func LoadBotConfig(filename string) (*BotConfig, error) {
	cfg := Config{Bot: BotConfig{LongReplyAsFile: true}}

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
		}
	}

	// Устанавливаем значения по умолчанию
	botCfg := &cfg.Bot
	if botCfg.UpdateTimeoutSeconds == 0 {
		botCfg.UpdateTimeoutSeconds = DefaultUpdateTimeoutSeconds
	}
	if botCfg.MaxMessageLength == 0 {
		botCfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if botCfg.MaxConcurrentUpdates == 0 {
		botCfg.MaxConcurrentUpdates = DefaultMaxConcurrentUpdates
	}

	return botCfg, nil
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.UpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.update_timeout_seconds must be positive")
	}
	if c.MaxMessageLength <= 0 || c.MaxMessageLength > DefaultMaxMessageLength {
		return fmt.Errorf("bot.max_message_length must be between 1 and %d", DefaultMaxMessageLength)
	}
	if c.MaxConcurrentUpdates <= 0 {
		return fmt.Errorf("bot.max_concurrent_updates must be positive")
	}
	return nil
}
