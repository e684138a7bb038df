package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testToken = "bot8462697481:AAEJSXuTcb2F1Js2sWiK0TVWvxbHL9xX05Q"

func TestSecretMaskHandler_Mask(t *testing.T) {
	h := NewSecretMaskHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), "s3cr3t-cookie", "")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "токен в URL Bot API",
			input:    `Post "https://api.telegram.org/` + testToken + `/getUpdates": net/http: request canceled`,
			expected: `Post "https://api.telegram.org/bot***:***masked-token***/getUpdates": net/http: request canceled`,
		},
		{
			name:     "текст без секретов",
			input:    "Отправка сообщения",
			expected: "Отправка сообщения",
		},
		{
			name:     "cookie сессии",
			input:    "Cookie: session=eyJzdHVkZW50X2lkIjo0Mn0.Zx1; lang=fr",
			expected: "Cookie: session=***masked-session***; lang=fr",
		},
		{
			name:     "имя cookie в другом регистре",
			input:    `request failed: {"Session_Id=abc123"}`,
			expected: `request failed: {"Session_Id=***masked-session***"}`,
		},
		{
			name:     "буквальный секрет из конфигурации",
			input:    "value s3cr3t-cookie rejected",
			expected: "value ***masked*** rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, h.mask(tt.input))
		})
	}
}

func TestSecretMaskHandler_Handle(t *testing.T) {
	t.Run("сообщение и атрибуты", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(NewSecretMaskHandler(slog.NewJSONHandler(&buf, nil)))

		logger.Info("call "+testToken, slog.String("url", "https://api.telegram.org/"+testToken+"/getMe"))

		output := buf.String()
		assert.NotContains(t, output, testToken)
		assert.Equal(t, 2, strings.Count(output, "***masked-token***"))
	})

	t.Run("атрибуты из With и группы", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(NewSecretMaskHandler(slog.NewJSONHandler(&buf, nil)))

		logger.With(slog.String("token", testToken)).
			WithGroup("req").
			Info("done", slog.Group("headers", slog.String("cookie", "session=abc")))

		output := buf.String()
		assert.NotContains(t, output, testToken)
		assert.NotContains(t, output, "session=abc")
		assert.Contains(t, output, "***masked-session***")
	})

	t.Run("ошибки маскируются", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(NewSecretMaskHandler(slog.NewTextHandler(&buf, nil)))

		logger.Warn("backend call failed", "error", errors.New("GET http://backend/api?session=secret-value: timeout"))

		assert.NotContains(t, buf.String(), "secret-value")
		assert.Contains(t, buf.String(), "***masked-session***")
	})

	t.Run("атрибуты не дублируются", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := slog.New(NewSecretMaskHandler(slog.NewTextHandler(&buf, nil)))

		logger.Info("once", "key", "value")

		assert.Equal(t, 1, strings.Count(buf.String(), "key=value"))
	})
}
