package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tutor-chat/internal/adapters/exporter"
	"tutor-chat/internal/adapters/source"
	"tutor-chat/internal/core/services"
	"tutor-chat/internal/domain"
	"tutor-chat/internal/ports"
)

const (
	commandPrefix   = ":"
	codeTerminator  = "."
	defaultXLSXPath = "conversation.xlsx"
)

const helpText = `Tapez votre message puis Entrée pour l'envoyer.
  :editor python|sql   ouvrir ou fermer l'éditeur
  :code                saisir le code de l'éditeur (terminer par une ligne ".")
  :load fichier        charger un fichier .py ou .sql dans l'éditeur
  :show                afficher le contenu de l'éditeur
  :send                envoyer le code de l'éditeur seul
  :explain N           réexpliquer le message N
  :report N            signaler le message N
  :copy N python|sql   copier le code du message N dans l'éditeur
  :similar N           demander un exercice similaire
  :check N             vérifier si l'exercice est terminé
  :transcript          afficher la conversation
  :export [fichier]    exporter la conversation en Excel
  :download [dossier]  télécharger la conversation depuis le serveur
  :clear               effacer la conversation
  :quit                quitter`

var errQuit = errors.New("quit")

// repl — интерактивный цикл терминального клиента.
type repl struct {
	controller *services.ExchangeController
	dispatcher *services.ReactionDispatcher
	backend    ports.Backend
	view       *consoleView
	in         *bufio.Scanner
	out        io.Writer
	width      int
}

func newREPL(controller *services.ExchangeController, dispatcher *services.ReactionDispatcher, backend ports.Backend, view *consoleView, in io.Reader, out io.Writer, width int) *repl {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &repl{
		controller: controller,
		dispatcher: dispatcher,
		backend:    backend,
		view:       view,
		in:         scanner,
		out:        out,
		width:      width,
	}
}

// Run читает строки до конца ввода, команды :quit или отмены ctx.
func (r *repl) Run(ctx context.Context) error {
	r.view.info("Tapez :help pour la liste des commandes.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		if err := r.handleLine(ctx, r.in.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			r.view.warn("%v", err)
		}
	}
}

// parseCommand разбирает строку вида ":имя арг...".
func parseCommand(line string) (string, []string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, commandPrefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, commandPrefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (r *repl) handleLine(ctx context.Context, line string) error {
	name, args, isCommand := parseCommand(line)
	if !isCommand {
		return r.send(ctx, line)
	}

	switch name {
	case "help", "h":
		fmt.Fprintln(r.out, helpText)
	case "quit", "q", "exit":
		return errQuit
	case "editor":
		if len(args) != 1 || !domain.IsEditorLanguage(args[0]) {
			return fmt.Errorf("usage : :editor python|sql")
		}
		state := r.controller.ToggleEditor(args[0])
		if state.Visible {
			r.view.info("Éditeur %s ouvert.", state.Language)
		} else {
			r.view.info("Éditeur fermé.")
		}
	case "code":
		return r.readCode()
	case "load":
		if len(args) != 1 {
			return fmt.Errorf("usage : :load fichier")
		}
		return r.load(ctx, args[0])
	case "show":
		overlay := r.controller.Overlay()
		if !overlay.Visible() || overlay.Content() == "" {
			r.view.info("L'éditeur est vide.")
			return nil
		}
		fmt.Fprintf(r.out, "┌─ %s\n", overlay.Language())
		for _, l := range strings.Split(overlay.Content(), "\n") {
			fmt.Fprintf(r.out, "│ %s\n", l)
		}
		fmt.Fprintln(r.out, "└─")
	case "send":
		return r.send(ctx, "")
	case "explain", "report", "similar", "check", "copy":
		return r.react(ctx, name, args)
	case "transcript":
		return exporter.NewConsoleExporter(r.width).Export(r.out, r.controller.Store().Entries())
	case "export":
		path := defaultXLSXPath
		if len(args) > 0 {
			path = args[0]
		}
		return r.export(path)
	case "download":
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return r.download(ctx, dir)
	case "clear":
		if err := r.controller.Clear(r.view.reset); err != nil {
			return fmt.Errorf("une réponse est déjà en cours")
		}
		r.view.info("Conversation effacée.")
	default:
		return fmt.Errorf("commande inconnue : %s (tapez :help)", name)
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string) error {
	_, err := r.controller.Submit(ctx, text)
	if errors.Is(err, services.ErrBusy) {
		return fmt.Errorf("une réponse est déjà en cours")
	}
	// Пустой ввод игнорируется, о сбое связи уже выведено уведомление
	return nil
}

// readCode читает код построчно до строки-терминатора и кладет его в редактор.
func (r *repl) readCode() error {
	overlay := r.controller.Overlay()
	if !overlay.Visible() {
		r.controller.ToggleEditor(overlay.Language())
	}
	r.view.info("Code %s (terminez par une ligne \"%s\") :", overlay.Language(), codeTerminator)

	var lines []string
	for r.in.Scan() {
		line := r.in.Text()
		if line == codeTerminator {
			break
		}
		lines = append(lines, line)
	}
	if err := r.in.Err(); err != nil {
		return err
	}

	overlay.SetContent(strings.Join(lines, "\n"))
	r.view.info("Code enregistré (%d lignes). Il sera joint à votre prochain message.", len(lines))
	return nil
}

// load открывает редактор с содержимым файла.
func (r *repl) load(ctx context.Context, path string) error {
	lang, text, err := source.Load(ctx, source.NewFileSource(path))
	switch {
	case errors.Is(err, source.ErrUnsupportedFile):
		return fmt.Errorf("seuls les fichiers .py et .sql sont acceptés")
	case err != nil:
		return fmt.Errorf("impossible de charger %s: %w", path, err)
	}

	r.controller.OpenEditor(lang, text)
	r.view.info("Fichier %s chargé dans l'éditeur %s.", filepath.Base(path), lang)
	return nil
}

func (r *repl) react(ctx context.Context, name string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage : :%s N", name)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("numéro de message invalide : %s", args[0])
	}
	id, ok := r.view.bubbleID(n)
	if !ok {
		return fmt.Errorf("message %d introuvable", n)
	}

	kind, err := reactionKind(name, args[1:])
	if err != nil {
		return err
	}

	reaction, err := r.dispatcher.Dispatch(ctx, id, kind)
	switch {
	case errors.Is(err, services.ErrNotApplicable):
		return fmt.Errorf("action indisponible pour le message %d", n)
	case errors.Is(err, services.ErrAlreadyUsed):
		return fmt.Errorf("action déjà utilisée pour le message %d", n)
	case errors.Is(err, services.ErrBusy):
		return fmt.Errorf("une réponse est déjà en cours")
	case err != nil && reaction == nil:
		return err
	}

	switch {
	case kind == domain.AffordanceReport:
		r.view.info("Message %d signalé.", n)
	case reaction != nil && reaction.Editor != nil:
		r.view.info("Code copié dans l'éditeur %s. Tapez :show pour le voir.", reaction.Editor.Language)
	}
	return nil
}

// reactionKind сопоставляет команду клиента с действием над пузырем.
func reactionKind(name string, args []string) (domain.AffordanceKind, error) {
	switch name {
	case "explain":
		return domain.AffordanceExplain, nil
	case "report":
		return domain.AffordanceReport, nil
	case "similar":
		return domain.AffordanceSimilarExercise, nil
	case "check":
		return domain.AffordanceCheckCompletion, nil
	case "copy":
		lang := domain.LanguagePython
		if len(args) > 0 {
			lang = strings.ToLower(args[0])
		}
		switch lang {
		case domain.LanguagePython:
			return domain.AffordanceCopyPython, nil
		case domain.LanguageSQL:
			return domain.AffordanceCopySQL, nil
		}
		return "", fmt.Errorf("langage non pris en charge : %s", lang)
	}
	return "", fmt.Errorf("commande inconnue : %s", name)
}

func (r *repl) export(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("impossible de créer %s: %w", path, err)
	}
	if err := exporter.NewExcelExporter(nil).Export(f, r.controller.Store().Entries()); err != nil {
		_ = f.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.view.info("Conversation exportée dans %s.", path)
	return nil
}

func (r *repl) download(ctx context.Context, dir string) error {
	att, err := r.backend.DownloadConversation(ctx)
	if err != nil {
		return fmt.Errorf("le téléchargement de la conversation a échoué: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(att.Filename))
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return fmt.Errorf("impossible d'écrire %s: %w", path, err)
	}
	r.view.info("Conversation téléchargée dans %s.", path)
	return nil
}
