package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tutor-chat/internal/adapters/source"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/domain"
)

const (
	downloadFailedText    = "Le téléchargement de la conversation a échoué. Réessayez plus tard."
	uploadUnsupportedText = "Seuls les fichiers .py et .sql sont acceptés."
	uploadFailedText      = "Impossible de lire le fichier."
	uploadTooLargeText    = "Le fichier est trop volumineux."
)

type affordanceView struct {
	Kind     domain.AffordanceKind
	Label    string
	Disabled bool
}

type entryView struct {
	ID          string
	IsNotice    bool
	NoticeText  string
	Role        domain.Role
	Body        template.HTML
	Affordances []affordanceView
	Completed   bool
	Typeset     bool
}

type pageData struct {
	Entries         []entryView
	Editor          domain.EditorState
	EditorLanguages []string
	Busy            bool
	Flash           string
	HasHighlightCSS bool
	MathJaxURL      string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	store := session.Controller.Store()
	typeset := session.view.TakeTypeset()

	data := pageData{
		Editor:          session.Controller.Overlay().Snapshot(),
		EditorLanguages: domain.EditorLanguages,
		Busy:            session.Controller.Busy(),
		Flash:           session.TakeFlash(),
		HasHighlightCSS: s.css != nil,
		MathJaxURL:      s.cfg.Render.MathJaxURL,
	}

	for _, entry := range store.Entries() {
		if entry.Notice != nil {
			data.Entries = append(data.Entries, entryView{
				ID:         entry.Notice.ID,
				IsNotice:   true,
				NoticeText: entry.Notice.Text,
			})
			continue
		}

		b := entry.Bubble
		used := store.UsedAffordances(b.ID)
		view := entryView{
			ID:        b.ID,
			Role:      b.Role,
			Body:      template.HTML(b.BodyMarkup), // разметка уже экранирована рендерером
			Completed: b.Completed,
			Typeset:   typeset[b.ID],
		}
		for _, kind := range b.Affordances {
			view.Affordances = append(view.Affordances, affordanceView{
				Kind:     kind,
				Label:    kind.Label(),
				Disabled: kind.OneShot() && used[kind],
			})
		}
		data.Entries = append(data.Entries, view)
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.Error("Не удалось отрисовать страницу", "error", err)
		http.Error(w, "Не удалось отрисовать страницу", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}

	overlay := session.Controller.Overlay()
	if code, ok := r.PostForm["code"]; ok && overlay.Visible() {
		overlay.SetContent(code[0])
	}

	_, err := session.Controller.Submit(r.Context(), r.PostFormValue("message"))
	switch {
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrBusy):
		// Пустые и параллельные отправки молча игнорируются
	case err != nil:
		// Уведомление об ошибке уже добавлено в ленту
		s.logger.Debug("Отправка завершилась ошибкой", "view_id", session.ID, "error", err)
	}
	s.redirectToLatest(w, r, session)
}

func (s *Server) handleAffordance(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	messageID := chi.URLParam(r, "messageID")

	kind, ok := domain.ParseAffordanceKind(chi.URLParam(r, "kind"))
	if !ok {
		http.Error(w, "Неизвестное действие", http.StatusBadRequest)
		return
	}

	_, err := session.Dispatcher.Dispatch(r.Context(), messageID, kind)
	switch {
	case errors.Is(err, services.ErrUnknownMessage):
		http.Error(w, "Сообщение не найдено", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrNotApplicable):
		http.Error(w, "Действие неприменимо к сообщению", http.StatusBadRequest)
		return
	case errors.Is(err, services.ErrAlreadyUsed):
		http.Error(w, "Действие уже использовано", http.StatusConflict)
		return
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrEmptyMessage):
	case err != nil:
		s.logger.Debug("Действие завершилось ошибкой", "view_id", session.ID, "kind", kind, "error", err)
	}

	if _, isCopy := kind.CopyLanguage(); isCopy {
		http.Redirect(w, r, "/#editor", http.StatusSeeOther)
		return
	}
	s.redirectToLatest(w, r, session)
}

func (s *Server) handleEditorToggle(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	lang := chi.URLParam(r, "lang")
	if !domain.IsEditorLanguage(lang) {
		http.Error(w, "Неподдерживаемый язык", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err == nil {
		if code, ok := r.PostForm["code"]; ok && session.Controller.Overlay().Visible() {
			session.Controller.Overlay().SetContent(code[0])
		}
	}

	state := session.Controller.ToggleEditor(lang)
	if state.Visible {
		http.Redirect(w, r, "/#editor", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditorContent(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}
	session.Controller.Overlay().SetContent(r.PostFormValue("code"))
	writeJSON(w, http.StatusOK, session.Controller.Overlay().Snapshot())
}

// handleEditorUpload открывает редактор с содержимым загруженного файла.
func (s *Server) handleEditorUpload(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, source.MaxCodeSize+64<<10)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.logger.Debug("Файл не получен", "view_id", session.ID, "error", err)
		session.SetFlash(uploadFailedText)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, source.MaxCodeSize+1))
	if err == nil && len(data) > source.MaxCodeSize {
		err = source.ErrTooLarge
	}
	var lang, content string
	if err == nil {
		lang, content, err = source.Load(r.Context(), source.NewMemorySource(header.Filename, data))
	}

	switch {
	case errors.Is(err, source.ErrUnsupportedFile):
		session.SetFlash(uploadUnsupportedText)
	case errors.Is(err, source.ErrTooLarge):
		session.SetFlash(uploadTooLargeText)
	case err != nil:
		s.logger.Warn("Не удалось загрузить файл", "view_id", session.ID, "file_name", header.Filename, "error", err)
		session.SetFlash(uploadFailedText)
	default:
		session.Controller.OpenEditor(lang, content)
		http.Redirect(w, r, "/#editor", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	att, err := session.Controller.Backend().DownloadConversation(r.Context())
	if err != nil {
		s.logger.Warn("Не удалось скачать диалог", "view_id", session.ID, "error", err)
		session.SetFlash(downloadFailedText)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))
	_, _ = w.Write(att.Data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var buf bytes.Buffer
	if err := s.exporter.Export(&buf, session.Controller.Store().Entries()); err != nil {
		s.logger.Error("Не удалось выгрузить диалог", "view_id", session.ID, "error", err)
		http.Error(w, "Не удалось выгрузить диалог", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("conversation_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := session.Controller.Clear(session.view.reset); err != nil {
		http.Error(w, "Отправка еще не завершена", http.StatusConflict)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type conversationResponse struct {
	Entries []domain.Entry                     `json:"entries"`
	Used    map[string][]domain.AffordanceKind `json:"used"`
	Editor  domain.EditorState                 `json:"editor"`
	Busy    bool                               `json:"busy"`
}

func (s *Server) handleConversationJSON(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	store := session.Controller.Store()

	resp := conversationResponse{
		Entries: store.Entries(),
		Used:    make(map[string][]domain.AffordanceKind),
		Editor:  session.Controller.Overlay().Snapshot(),
		Busy:    session.Controller.Busy(),
	}
	for _, entry := range resp.Entries {
		if entry.Bubble == nil {
			continue
		}
		for kind, used := range store.UsedAffordances(entry.Bubble.ID) {
			if used {
				resp.Used[entry.Bubble.ID] = append(resp.Used[entry.Bubble.ID], kind)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.css.WriteCSS(&buf); err != nil {
		http.Error(w, "Не удалось сформировать стили", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// redirectToLatest перенаправляет на страницу с прокруткой к последней записи.
func (s *Server) redirectToLatest(w http.ResponseWriter, r *http.Request, session *Session) {
	target := "/"
	if latest := session.view.Latest(); latest != "" {
		target += "#" + latest
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
