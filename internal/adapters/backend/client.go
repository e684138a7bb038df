// Package backend реализует HTTP-клиент бэкенда диалога.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"tutor-chat/internal/domain"
)

// ErrTransport — сеть недоступна, статус не 2xx или ответ не разбирается.
var ErrTransport = xerrors.New("backend transport failure")

// ErrMalformedResponse — ответ разобран, но не содержит поля reply.
var ErrMalformedResponse = xerrors.Errorf("malformed response: %w", ErrTransport)

const (
	defaultTimeout    = 60 * time.Second
	defaultCookieName = "session"
	maxAttachmentSize = 50 << 20
	fallbackPDFName   = "conversation.pdf"
	fallbackTextName  = "conversation.txt"
	messagePath       = "/api/message"
	reportPath        = "/api/report"
	downloadPath      = "/telecharger_conversation"
	headerContentType = "Content-Type"
	headerContentDisp = "Content-Disposition"
	contentTypeJSON   = "application/json"
	contentTypePDF    = "application/pdf"
)

// Client — клиент для взаимодействия с API бэкенда диалога.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	cookieName string
	session    string
	// sessionInJar — cookie сессии передано в jar и добавляется им самим.
	sessionInJar  bool
	maxAttachment int
	logger        *slog.Logger
}

// Option определяет функциональную опцию для Client.
type Option func(*Client)

// WithTimeout задает таймаут одного запроса. Истечение таймаута — сбой связи.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSession задает cookie сессии бэкенда. Пустое имя заменяется на "session".
func WithSession(name, value string) Option {
	return func(c *Client) {
		if name != "" {
			c.cookieName = name
		}
		c.session = value
	}
}

// WithHTTPClient задает HTTP-клиент. Cookie бэкенда сохраняются между
// запросами только если у клиента есть Jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger задает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient создает новый экземпляр Client. Каждый клиент по умолчанию
// получает собственный cookie jar, то есть собственную сессию бэкенда:
// история диалога и прогресс упражнений хранятся бэкендом в этой сессии.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		timeout:       defaultTimeout,
		cookieName:    defaultCookieName,
		maxAttachment: maxAttachmentSize,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		// cookiejar.New возвращает ошибку только для некорректных опций
		jar, _ := cookiejar.New(nil)
		c.httpClient = &http.Client{Jar: jar}
	}
	c.logger = c.logger.With("component", "backend")
	c.seedSession()
	return c
}

// seedSession кладет заданное cookie сессии в jar, чтобы бэкенд мог его обновлять.
func (c *Client) seedSession() {
	if c.session == "" || c.httpClient.Jar == nil {
		return
	}
	u, err := url.Parse(c.baseURL + "/")
	if err != nil || u.Host == "" {
		return
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: c.cookieName, Value: c.session, Path: "/"}})
	c.sessionInJar = true
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply *string `json:"reply"`
}

type reportRequest struct {
	MessageID string `json:"message_id"`
}

// SendMessage отправляет сообщение и возвращает ответ ассистента.
func (c *Client) SendMessage(ctx context.Context, message string) (string, error) {
	resp, cancel, err := c.do(ctx, http.MethodPost, messagePath, messageRequest{Message: message})
	if err != nil {
		return "", err
	}
	defer cancel()
	defer resp.Body.Close()

	var result messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %v: %w", err, ErrTransport)
	}
	if result.Reply == nil {
		return "", ErrMalformedResponse
	}
	return *result.Reply, nil
}

// Report сообщает о проблемном сообщении. Тело ответа не проверяется.
func (c *Client) Report(ctx context.Context, messageID string) error {
	resp, cancel, err := c.do(ctx, http.MethodPost, reportPath, reportRequest{MessageID: messageID})
	if err != nil {
		return err
	}
	defer cancel()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// DownloadConversation скачивает экспорт диалога. Имя файла берется из
// Content-Disposition; если его нет, оно выбирается по типу содержимого.
func (c *Client) DownloadConversation(ctx context.Context) (*domain.Attachment, error) {
	resp, cancel, err := c.do(ctx, http.MethodGet, downloadPath, nil)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.maxAttachment)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %v: %w", err, ErrTransport)
	}
	if len(data) > c.maxAttachment {
		return nil, fmt.Errorf("attachment exceeds %d bytes: %w", c.maxAttachment, ErrTransport)
	}

	contentType := resp.Header.Get(headerContentType)
	return &domain.Attachment{
		Filename:    attachmentName(resp.Header.Get(headerContentDisp), contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// do выполняет запрос с таймаутом. При успехе вызывающая сторона обязана
// закрыть тело ответа и вызвать cancel.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	if c.session != "" && !c.sessionInJar {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.session})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("Таймаут запроса к бэкенду", "path", path, "timeout", c.timeout)
		}
		return nil, nil, fmt.Errorf("failed to send request: %v: %w", err, ErrTransport)
	}
	c.logger.Debug("Ответ бэкенда", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, ErrTransport)
	}
	return resp, cancel, nil
}

func attachmentName(disposition, contentType string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == contentTypePDF {
		return fallbackPDFName
	}
	return fallbackTextName
}
