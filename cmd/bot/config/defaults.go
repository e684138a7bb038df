package config

// Default values for the bot configuration.
const (
	DefaultUpdateTimeoutSeconds = 60
	// Ограничение Telegram Bot API на длину текста сообщения.
	DefaultMaxMessageLength     = 4096
	DefaultMaxConcurrentUpdates = 16
)
