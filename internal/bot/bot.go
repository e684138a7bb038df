package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"tutor-chat/cmd/bot/config"
	"tutor-chat/internal/adapters/source"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand    = "start"
	helpCommand     = "help"
	pythonCommand   = "python"
	sqlCommand      = "sql"
	codeCommand     = "code"
	submitCommand   = "submit"
	exportCommand   = "export"
	downloadCommand = "download"
	clearCommand    = "clear"

	defaultSessionTTL = 2 * time.Hour
	codePreviewWidth  = 3000

	fileDownloadTimeout = 30 * time.Second
)

const welcomeText = "Bienvenue ! Posez votre question à l'assistant.\n\n" +
	"/python, /sql — ouvrir ou fermer l'éditeur de code\n" +
	"/code <code> — remplacer le contenu de l'éditeur\n" +
	"Fichier .py ou .sql — charger son contenu dans l'éditeur\n" +
	"/submit — envoyer le code de l'éditeur seul\n" +
	"/export — transcription au format Excel\n" +
	"/download — télécharger la conversation depuis le serveur\n" +
	"/clear — effacer la conversation"

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      config.BotConfig
	exporter ports.Exporter
	chats    *ChatStore
	allowed  map[int64]bool
	logger   *slog.Logger

	sessionTTL time.Duration
	httpClient *http.Client
	sem        chan struct{}
	wg         sync.WaitGroup

	// Поля-функции позволяют подменять обращения к Telegram в тестах.
	sendMessageFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	requestFunc     func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	fileURLFunc     func(fileID string) (string, error)
}

// Option определяет функциональную опцию для Bot.
type Option func(*Bot)

// WithAllowedChats ограничивает круг чатов, которым бот отвечает.
// Пустой список разрешает все чаты.
func WithAllowedChats(ids []int64) Option {
	return func(b *Bot) {
		for _, id := range ids {
			b.allowed[id] = true
		}
	}
}

// WithSessionTTL задает время жизни неактивного диалога.
func WithSessionTTL(ttl time.Duration) Option {
	return func(b *Bot) {
		if ttl > 0 {
			b.sessionTTL = ttl
		}
	}
}

// NewBot создает и инициализирует новый экземпляр бота. Бэкенд у каждого
// чата свой, его создает factory.
func NewBot(token string, cfg config.BotConfig, factory SessionFactory, exporter ports.Exporter, logger *slog.Logger, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, factory, exporter, logger, opts...)
	b.api = api
	b.sendMessageFunc = api.Send
	b.requestFunc = api.Request
	b.fileURLFunc = api.GetFileDirectURL
	return b, nil
}

func newBot(cfg config.BotConfig, factory SessionFactory, exporter ports.Exporter, logger *slog.Logger, opts ...Option) *Bot {
	b := &Bot{
		cfg:        cfg,
		exporter:   exporter,
		allowed:    make(map[int64]bool),
		logger:     logger,
		sessionTTL: defaultSessionTTL,
		httpClient: &http.Client{Timeout: fileDownloadTimeout},
		sem:        make(chan struct{}, cfg.MaxConcurrentUpdates),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.chats = NewChatStore(b.sessionTTL, factory, func(chatID int64) *chatView {
		return newChatView(chatID, b)
	})
	return b
}

// Start запускает основной цикл обработки обновлений от Telegram.
// Возвращается после отмены ctx, дождавшись завершения начатых обработчиков.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)
	b.chats.StartCleanupTicker(ctx, b.sessionTTL/4)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return
		case update := <-updates:
			b.dispatchUpdate(ctx, update)
		}
	}
}

// dispatchUpdate обрабатывает обновление в отдельной горутине, ограничивая
// число одновременно обрабатываемых обновлений.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.sem }()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) isAllowed(chatID int64) bool {
	return len(b.allowed) == 0 || b.allowed[chatID]
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isAllowed(chatID) {
		b.logger.Warn("message from a chat that is not allowed", slog.Int64("chat_id", chatID))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Ce bot n'est pas disponible dans cette conversation."))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		b.sendMessage(tgbotapi.NewMessage(chatID, "Envoyez un message texte ou utilisez /code pour joindre du code."))
		return
	}

	// Текст пользователя уже виден в чате, повторяется только ответ
	session := b.chats.Get(chatID)
	_, err := session.Controller.SubmitEchoed(ctx, msg.Text)
	b.reportSendError(chatID, err)
}

// handleDocument загружает присланный файл с кодом в редактор.
// Подпись к файлу, если она есть, отправляется как сообщение.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("file_name", doc.FileName))

	if _, ok := source.Language(doc.FileName); !ok {
		b.sendMessage(tgbotapi.NewMessage(chatID, "Seuls les fichiers .py et .sql sont acceptés."))
		return
	}
	if doc.FileSize > source.MaxCodeSize {
		b.sendMessage(tgbotapi.NewMessage(chatID, "Le fichier est trop volumineux."))
		return
	}

	url, err := b.fileURLFunc(doc.FileID)
	if err != nil {
		logger.Error("Failed to get file url", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Impossible de récupérer le fichier."))
		return
	}

	lang, content, err := source.Load(ctx, source.NewURLSource(b.httpClient, url, doc.FileName))
	if err != nil {
		logger.Error("Failed to load code file", slog.String("error", err.Error()))
		text := "Impossible de lire le fichier."
		if errors.Is(err, source.ErrTooLarge) {
			text = "Le fichier est trop volumineux."
		}
		b.sendMessage(tgbotapi.NewMessage(chatID, text))
		return
	}

	session := b.chats.Get(chatID)
	session.Controller.OpenEditor(lang, content)
	b.sendMessage(codePreview(chatID, lang, content))

	if strings.TrimSpace(msg.Caption) == "" {
		return
	}
	_, err = session.Controller.SubmitEchoed(ctx, msg.Caption)
	b.reportSendError(chatID, err)
}

// reportSendError сообщает пользователю об отклоненной отправке. Сбой связи
// уже показан уведомлением в ленте.
func (b *Bot) reportSendError(chatID int64, err error) {
	switch {
	case err == nil:
	case errors.Is(err, services.ErrBusy):
		b.sendMessage(tgbotapi.NewMessage(chatID, "Patientez, une réponse est déjà en cours."))
	case errors.Is(err, services.ErrEmptyMessage):
		b.sendMessage(tgbotapi.NewMessage(chatID, "Le message et l'éditeur sont vides."))
	default:
		b.logger.Debug("send failed", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
	}
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	session := b.chats.Get(chatID)

	switch msg.Command() {
	case startCommand, helpCommand:
		b.sendMessage(tgbotapi.NewMessage(chatID, welcomeText))
	case pythonCommand, sqlCommand:
		state := session.Controller.ToggleEditor(msg.Command())
		b.sendMessage(tgbotapi.NewMessage(chatID, editorStateText(state)))
	case codeCommand:
		b.handleCode(chatID, session, msg.CommandArguments())
	case submitCommand:
		_, err := session.Controller.Submit(ctx, "")
		b.reportSendError(chatID, err)
	case exportCommand:
		b.sendExport(chatID, session)
	case downloadCommand:
		b.sendDownload(ctx, chatID, session)
	case clearCommand:
		if err := session.Controller.Clear(session.view.reset); err != nil {
			b.sendMessage(tgbotapi.NewMessage(chatID, "Patientez, une réponse est déjà en cours."))
			return
		}
		b.sendMessage(tgbotapi.NewMessage(chatID, "Conversation effacée."))
	default:
		b.sendMessage(tgbotapi.NewMessage(chatID, "Commande inconnue. Tapez /help."))
	}
}

// handleCode заменяет содержимое редактора, открывая его при необходимости.
func (b *Bot) handleCode(chatID int64, session *chatSession, code string) {
	overlay := session.Controller.Overlay()
	if strings.TrimSpace(code) == "" {
		if content := overlay.Content(); overlay.Visible() && content != "" {
			b.sendMessage(codePreview(chatID, overlay.Language(), content))
			return
		}
		b.sendMessage(tgbotapi.NewMessage(chatID, "L'éditeur est vide. Utilisez /code suivi de votre code."))
		return
	}

	if !overlay.Visible() {
		session.Controller.ToggleEditor(overlay.Language())
	}
	overlay.SetContent(code)

	lines := strings.Count(strings.TrimRight(code, "\n"), "\n") + 1
	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Code %s enregistré (%d lignes). Il sera joint à votre prochain message.", overlay.Language(), lines)))
}

// handleCallback обрабатывает нажатие кнопки действия под пузырем.
func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil {
		b.answerCallback(q.ID, "")
		return
	}
	chatID := q.Message.Chat.ID
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	if !b.isAllowed(chatID) {
		b.answerCallback(q.ID, "Action non autorisée.")
		return
	}

	messageID, kind, ok := parseCallbackData(q.Data)
	if !ok {
		logger.Warn("unknown callback data", slog.String("data", q.Data))
		b.answerCallback(q.ID, "Action inconnue.")
		return
	}

	session := b.chats.Get(chatID)
	reaction, err := session.Dispatcher.Dispatch(ctx, messageID, kind)
	switch {
	case errors.Is(err, services.ErrUnknownMessage):
		b.answerCallback(q.ID, "Ce message n'est plus disponible.")
		return
	case errors.Is(err, services.ErrNotApplicable):
		b.answerCallback(q.ID, "Action indisponible pour ce message.")
		return
	case errors.Is(err, services.ErrAlreadyUsed):
		b.answerCallback(q.ID, "Action déjà utilisée.")
		b.refreshKeyboard(chatID, session, messageID)
		return
	case errors.Is(err, services.ErrBusy):
		b.answerCallback(q.ID, "Patientez, une réponse est déjà en cours.")
		return
	case err != nil:
		logger.Debug("reaction failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
	}

	switch {
	case kind == domain.AffordanceReport:
		b.answerCallback(q.ID, "Merci, le message a été signalé.")
	case reaction != nil && reaction.Editor != nil:
		b.answerCallback(q.ID, "Code copié dans l'éditeur.")
		b.sendMessage(codePreview(chatID, reaction.Editor.Language, reaction.Editor.Content))
	default:
		b.answerCallback(q.ID, "")
	}

	if kind.OneShot() {
		b.refreshKeyboard(chatID, session, messageID)
	}
}

// refreshKeyboard убирает из клавиатуры пузыря использованные одноразовые действия.
func (b *Bot) refreshKeyboard(chatID int64, session *chatSession, bubbleID string) {
	tgMessageID, ok := session.view.messageID(bubbleID)
	if !ok {
		return
	}
	bubble, ok := session.Controller.Store().Bubble(bubbleID)
	if !ok {
		return
	}
	markup := keyboard(bubble, session.Controller.Store().UsedAffordances(bubbleID))
	b.request(tgbotapi.NewEditMessageReplyMarkup(chatID, tgMessageID, markup))
}

// sendExport отправляет транскрипт диалога в виде Excel-файла.
func (b *Bot) sendExport(chatID int64, session *chatSession) {
	entries := session.Controller.Store().Entries()
	if len(entries) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "La conversation est vide."))
		return
	}

	var buf bytes.Buffer
	if err := b.exporter.Export(&buf, entries); err != nil {
		b.logger.Error("failed to export conversation", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Impossible de générer le fichier Excel."))
		return
	}

	fileName := fmt.Sprintf("conversation_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("Transcription : %d entrées.", len(entries))
	b.sendMessage(doc)
}

// sendDownload передает в чат файл диалога, полученный от бэкенда этого чата.
func (b *Bot) sendDownload(ctx context.Context, chatID int64, session *chatSession) {
	att, err := session.Controller.Backend().DownloadConversation(ctx)
	if err != nil {
		b.logger.Warn("failed to download conversation", slog.Int64("chat_id", chatID), slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Le téléchargement de la conversation a échoué."))
		return
	}
	b.sendMessage(tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: att.Filename, Bytes: att.Data}))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// request выполняет запрос, ответом на который не является сообщение.
func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.requestFunc(c); err != nil {
		b.logger.Error("failed to perform request", slog.String("error", err.Error()))
	}
}

func (b *Bot) answerCallback(id, text string) {
	b.request(tgbotapi.NewCallback(id, text))
}

func editorStateText(state domain.EditorState) string {
	if !state.Visible {
		return "Éditeur fermé."
	}
	return fmt.Sprintf("Éditeur %s ouvert. Envoyez /code suivi de votre code, puis votre message.", state.Language)
}

// codePreview показывает содержимое редактора; длинный код обрезается.
func codePreview(chatID int64, language, content string) tgbotapi.MessageConfig {
	if content == "" {
		return tgbotapi.NewMessage(chatID, editorStateText(domain.EditorState{Visible: true, Language: language}))
	}
	preview := runewidth.Truncate(content, codePreviewWidth, "…")
	text := fmt.Sprintf("Éditeur %s :\n<pre><code class=\"language-%s\">%s</code></pre>",
		html.EscapeString(language), html.EscapeString(language), html.EscapeString(preview))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}
