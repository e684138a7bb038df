package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBotConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := LoadBotConfig(filepath.Join(t.TempDir(), "absent.yml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultUpdateTimeoutSeconds, cfg.UpdateTimeoutSeconds)
		assert.Equal(t, DefaultMaxMessageLength, cfg.MaxMessageLength)
		assert.Equal(t, DefaultMaxConcurrentUpdates, cfg.MaxConcurrentUpdates)
		assert.True(t, cfg.LongReplyAsFile)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("values from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bot_config.yml")
		content := "bot:\n  max_message_length: 1000\n  long_reply_as_file: false\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadBotConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 1000, cfg.MaxMessageLength)
		assert.False(t, cfg.LongReplyAsFile)
		assert.Equal(t, DefaultUpdateTimeoutSeconds, cfg.UpdateTimeoutSeconds)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bot_config.yml")
		require.NoError(t, os.WriteFile(path, []byte("bot: {"), 0644))
		_, err := LoadBotConfig(path)
		assert.Error(t, err)
	})
}

func TestBotConfig_Validate(t *testing.T) {
	cfg := BotConfig{UpdateTimeoutSeconds: 60, MaxMessageLength: 5000, MaxConcurrentUpdates: 1}
	assert.Error(t, cfg.Validate())

	cfg.MaxMessageLength = 4096
	assert.NoError(t, cfg.Validate())

	cfg.MaxConcurrentUpdates = 0
	assert.Error(t, cfg.Validate())
}
