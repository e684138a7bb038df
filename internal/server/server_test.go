package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tutor-chat/internal/adapters/backend"
	"tutor-chat/internal/adapters/exporter"
	"tutor-chat/internal/core/render"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/pkg/config"
	"tutor-chat/internal/ports"
)

// mockBackend — мок для интерфейса ports.Backend.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) SendMessage(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Report(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *mockBackend) DownloadConversation(ctx context.Context) (*domain.Attachment, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*domain.Attachment), args.Error(1)
	}
	return nil, args.Error(1)
}

type testEnv struct {
	backend *mockBackend
	views   *ViewStore
	ts      *httptest.Server
	client  *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mb := new(mockBackend)
	formatter := services.NewFormatter(render.NewHTMLRenderer())
	env := newServerEnv(t, testConfig(), func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher) {
		return services.NewViewSession(mb, formatter, domain.LanguagePython, view, nil)
	})
	env.backend = mb
	return env
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{Host: "localhost", Port: 8080},
		Render: config.Render{MathJaxURL: config.DefaultMathJaxURL},
	}
}

func newServerEnv(t *testing.T, cfg *config.Config, factory SessionFactory) *testEnv {
	t.Helper()

	views := NewViewStore(time.Hour, factory)
	srv, err := New(cfg, views, exporter.NewExcelExporter(nil),
		WithHighlightCSS(render.NewHTMLHighlighter("github")))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.HTTPServer.Handler)
	t.Cleanup(ts.Close)

	env := &testEnv{views: views, ts: ts}
	env.client = newBrowser(t)
	return env
}

// newBrowser возвращает HTTP-клиент с собственными cookie, как отдельная вкладка браузера.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// withBrowser возвращает окружение того же сервера с другим браузером.
func (e *testEnv) withBrowser(t *testing.T) *testEnv {
	t.Helper()
	other := *e
	other.client = newBrowser(t)
	return &other
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.ts.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) upload(t *testing.T, filename, content string) (*http.Response, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.client.Post(e.ts.URL+"/editor/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) conversation(t *testing.T) conversationResponse {
	t.Helper()
	resp, body := e.get(t, "/api/conversation")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conv conversationResponse
	require.NoError(t, json.Unmarshal([]byte(body), &conv))
	return conv
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "ok", status["status"])
}

func TestServer_PageCreatesView(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="send-form"`)
	assert.Equal(t, 1, env.views.Len())

	// Повторный запрос с той же cookie не создает новое представление
	env.get(t, "/")
	assert.Equal(t, 1, env.views.Len())
}

func TestServer_SendMessage(t *testing.T) {
	env := newTestEnv(t)
	reply := "Voici la solution :\n```python\nprint(42)\n```\n🧩 EXERCICE 3"
	env.backend.On("SendMessage", mock.Anything, "Bonjour").Return(reply, nil).Once()

	resp, body := env.post(t, "/send", url.Values{"message": {"Bonjour"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Bonjour")
	assert.Contains(t, body, "Voici la solution")
	assert.Contains(t, body, `data-typeset="pending"`)
	assert.Contains(t, body, "/bubbles/")

	conv := env.conversation(t)
	require.Len(t, conv.Entries, 2)
	assert.Equal(t, domain.RoleUser, conv.Entries[0].Bubble.Role)
	assistant := conv.Entries[1].Bubble
	assert.Equal(t, domain.RoleAssistant, assistant.Role)
	assert.Equal(t, "3", assistant.ExerciseID)
	assert.Contains(t, assistant.Affordances, domain.AffordanceCopyPython)
	assert.False(t, conv.Busy)

	// После перезагрузки формулы не перенабираются повторно
	_, body = env.get(t, "/")
	assert.NotContains(t, body, `data-typeset="pending"`)
	env.backend.AssertExpectations(t)
}

func TestServer_MathTypeset(t *testing.T) {
	t.Run("перенабираются только записи последнего обмена", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.On("SendMessage", mock.Anything, "Premier").Return(`\(x^2\)`, nil).Once()
		env.backend.On("SendMessage", mock.Anything, "Second").Return(`\(y^2\)`, nil).Once()

		_, body := env.post(t, "/send", url.Values{"message": {"Premier"}})
		assert.Contains(t, body, `id="MathJax-script" defer src="`+config.DefaultMathJaxURL+`"`)
		assert.Contains(t, body, "typeset: false")
		assert.Equal(t, 2, strings.Count(body, `data-typeset="pending"`))

		_, body = env.post(t, "/send", url.Values{"message": {"Second"}})
		conv := env.conversation(t)
		require.Len(t, conv.Entries, 4)
		for _, entry := range conv.Entries[:2] {
			assert.Contains(t, body, `data-message-id="`+entry.Bubble.ID+`">`)
		}
		for _, entry := range conv.Entries[2:] {
			assert.Contains(t, body, `data-message-id="`+entry.Bubble.ID+`" data-typeset="pending"`)
		}
		assert.Equal(t, 2, strings.Count(body, `data-typeset="pending"`))
	})

	t.Run("без адреса MathJax скрипт не подключается", func(t *testing.T) {
		cfg := testConfig()
		cfg.Render.MathJaxURL = ""
		env := newServerEnv(t, cfg, func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher) {
			return services.NewViewSession(new(mockBackend), services.NewFormatter(render.NewHTMLRenderer()), domain.LanguagePython, view, nil)
		})

		_, body := env.get(t, "/")
		assert.NotContains(t, body, "MathJax")
	})
}

func TestServer_ViewsHaveSeparateBackendSessions(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
		next int
	)
	tutor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		cookie, err := r.Cookie("session")
		if err != nil {
			next++
			cookie = &http.Cookie{Name: "session", Value: fmt.Sprintf("student-%d", next), Path: "/"}
			http.SetCookie(w, cookie)
			seen = append(seen, "")
		} else {
			seen = append(seen, cookie.Value)
		}
		if r.URL.Path == "/telecharger_conversation" {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("historique de " + cookie.Value))
			return
		}
		_, _ = w.Write([]byte(`{"reply":"ok"}`))
	}))
	t.Cleanup(tutor.Close)

	formatter := services.NewFormatter(render.NewHTMLRenderer())
	first := newServerEnv(t, testConfig(), func(view ports.View) (*services.ExchangeController, *services.ReactionDispatcher) {
		return services.NewViewSession(backend.NewClient(tutor.URL), formatter, domain.LanguagePython, view, nil)
	})
	second := first.withBrowser(t)

	for _, env := range []*testEnv{first, second, first, second} {
		resp, _ := env.post(t, "/send", url.Values{"message": {"Bonjour"}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 2, first.views.Len())

	_, body := first.get(t, "/telecharger_conversation")
	assert.Equal(t, "historique de student-1", body)
	_, body = second.get(t, "/telecharger_conversation")
	assert.Equal(t, "historique de student-2", body)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "", "student-1", "student-2", "student-1", "student-2"}, seen)
}

func TestServer_SendEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/send", url.Values{"message": {"   "}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, env.conversation(t).Entries)
	env.backend.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestServer_SendFailureShowsNotice(t *testing.T) {
	env := newTestEnv(t)
	env.backend.On("SendMessage", mock.Anything, "Bonjour").Return("", errors.New("connection refused")).Once()

	_, body := env.post(t, "/send", url.Values{"message": {"Bonjour"}})
	assert.Contains(t, body, `class="notice"`)
	assert.Contains(t, body, "Impossible de contacter")

	conv := env.conversation(t)
	require.Len(t, conv.Entries, 2)
	assert.Equal(t, domain.EntryNotice, conv.Entries[1].Kind)
}

func TestServer_EditorAndSubmit(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/editor/toggle/cobol", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body := env.post(t, "/editor/toggle/sql", nil)
	assert.Contains(t, body, `id="editor"`)
	assert.Contains(t, body, `data-lang="sql"`)

	env.backend.On("SendMessage", mock.Anything, "Mon code\n```sql\nSELECT 1;\n```").Return("Correct.", nil).Once()

	_, body = env.post(t, "/send", url.Values{"message": {"Mon code"}, "code": {"SELECT 1;"}})
	assert.NotContains(t, body, `id="editor"`)

	conv := env.conversation(t)
	assert.False(t, conv.Editor.Visible)
	assert.Empty(t, conv.Editor.Content)
	env.backend.AssertExpectations(t)
}

func TestServer_Affordances(t *testing.T) {
	env := newTestEnv(t)
	env.backend.On("SendMessage", mock.Anything, "Bonjour").Return("```python\nx = 1\n```", nil).Once()
	env.post(t, "/send", url.Values{"message": {"Bonjour"}})

	conv := env.conversation(t)
	require.Len(t, conv.Entries, 2)
	userID := conv.Entries[0].Bubble.ID
	replyID := conv.Entries[1].Bubble.ID

	t.Run("неизвестное действие", func(t *testing.T) {
		resp, _ := env.post(t, "/bubbles/"+replyID+"/dance", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("неизвестное сообщение", func(t *testing.T) {
		resp, _ := env.post(t, "/bubbles/missing/explain", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("действие неприменимо к сообщению пользователя", func(t *testing.T) {
		resp, _ := env.post(t, "/bubbles/"+userID+"/report", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("копирование в редактор", func(t *testing.T) {
		_, body := env.post(t, "/bubbles/"+replyID+"/copy_python", nil)
		assert.Contains(t, body, `data-lang="python"`)
		assert.Contains(t, body, "x = 1")
	})

	t.Run("жалоба отправляется один раз", func(t *testing.T) {
		env.backend.On("Report", mock.Anything, replyID).Return(nil).Once()

		resp, body := env.post(t, "/bubbles/"+replyID+"/report", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "disabled")

		resp, _ = env.post(t, "/bubbles/"+replyID+"/report", nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		conv := env.conversation(t)
		assert.Contains(t, conv.Used[replyID], domain.AffordanceReport)
		env.backend.AssertNumberOfCalls(t, "Report", 1)
	})
}

func TestServer_Download(t *testing.T) {
	t.Run("успешное скачивание", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.On("DownloadConversation", mock.Anything).Return(&domain.Attachment{
			Filename:    "conversation.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4"),
		}, nil).Once()

		resp, body := env.get(t, "/telecharger_conversation")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "conversation.pdf")
		assert.Equal(t, "%PDF-1.4", body)
	})

	t.Run("ошибка скачивания", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.On("DownloadConversation", mock.Anything).Return(nil, errors.New("boom")).Once()

		resp, body := env.get(t, "/telecharger_conversation")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `class="flash"`)

		// Уведомление показывается один раз
		_, body = env.get(t, "/")
		assert.NotContains(t, body, `class="flash"`)
	})
}

func TestServer_ExportAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.backend.On("SendMessage", mock.Anything, "Bonjour").Return("Salut", nil).Once()
	env.post(t, "/send", url.Values{"message": {"Bonjour"}})

	resp, body := env.get(t, "/export.xlsx")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.True(t, strings.HasPrefix(body, "PK"), "xlsx должен быть zip-архивом")

	env.post(t, "/clear", nil)
	assert.Empty(t, env.conversation(t).Entries)
}

func TestServer_HighlightCSS(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/static/highlight.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	assert.NotEmpty(t, body)

	_, page := env.get(t, "/")
	assert.Contains(t, page, "/static/highlight.css")
}

func TestServer_EditorUpload(t *testing.T) {
	t.Run("файл .sql открывает редактор", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.upload(t, "query.sql", "SELECT 1;\r\nSELECT 2;")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `data-lang="sql"`)

		conv := env.conversation(t)
		assert.True(t, conv.Editor.Visible)
		assert.Equal(t, domain.LanguageSQL, conv.Editor.Language)
		assert.Equal(t, "SELECT 1;\nSELECT 2;", conv.Editor.Content)
	})

	t.Run("неподдерживаемый файл дает уведомление", func(t *testing.T) {
		env := newTestEnv(t)

		resp, body := env.upload(t, "notes.txt", "hello")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, uploadUnsupportedText)
		assert.False(t, env.conversation(t).Editor.Visible)
	})
}
