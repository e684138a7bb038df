package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tutor-chat/internal/pkg/config"
	"tutor-chat/internal/ports"
)

//go:embed templates/*.html
var templatesFS embed.FS

const sessionCookieName = "tutor_view"

// CSSWriter выводит таблицу стилей подсветки синтаксиса.
type CSSWriter interface {
	WriteCSS(w io.Writer) error
}

// Server представляет HTTP-сервер веб-интерфейса
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	views      *ViewStore
	exporter   ports.Exporter
	css        CSSWriter
	page       *template.Template
	logger     *slog.Logger
}

// Option определяет функциональную опцию для Server.
type Option func(*Server)

// WithHighlightCSS подключает таблицу стилей подсветки по адресу /static/highlight.css.
func WithHighlightCSS(css CSSWriter) Option {
	return func(s *Server) {
		s.css = css
	}
}

// WithLogger задает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New создает новый экземпляр Server. Бэкенд у каждого представления свой,
// его создает SessionFactory хранилища views.
func New(cfg *config.Config, views *ViewStore, exporter ports.Exporter, opts ...Option) (*Server, error) {
	page, err := template.ParseFS(templatesFS, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		views:    views,
		exporter: exporter,
		page:     page,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.css != nil {
		chiRouter.Get("/static/highlight.css", s.handleHighlightCSS)
	}

	chiRouter.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handlePage)
		r.Post("/send", s.handleSend)
		r.Post("/bubbles/{messageID}/{kind}", s.handleAffordance)
		r.Post("/editor/toggle/{lang}", s.handleEditorToggle)
		r.Post("/editor/content", s.handleEditorContent)
		r.Post("/editor/upload", s.handleEditorUpload)
		r.Get("/telecharger_conversation", s.handleDownload)
		r.Get("/export.xlsx", s.handleExport)
		r.Post("/clear", s.handleClear)
		r.Get("/api/conversation", s.handleConversationJSON)
	})

	return chiRouter
}

// StartBackground запускает фоновую очистку просроченных представлений
func (s *Server) StartBackground(ctx context.Context) {
	s.views.StartCleanupTicker(ctx, s.cfg.Server.CleanupInterval)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}

type sessionKey struct{}

// sessionMiddleware находит представление по cookie или создает новое.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *Session
		if c, err := r.Cookie(sessionCookieName); err == nil {
			session, _ = s.views.Get(c.Value)
		}
		if session == nil {
			session = s.views.Create()
			s.logger.Debug("Создано новое представление", "view_id", session.ID)
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    session.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func sessionFrom(r *http.Request) *Session {
	return r.Context().Value(sessionKey{}).(*Session)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
