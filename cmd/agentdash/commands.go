package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"agentdash/apiclient"
	"agentdash/chat"
	"agentdash/emails"
	apperrors "agentdash/internal/errors"
	"agentdash/projects"
	"agentdash/session"
)

// stringList collects a repeatable flag value.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// requireSession runs the startup check and fails when no settled
// authenticated session comes out of it.
func (a *app) requireSession(ctx context.Context) error {
	a.manager.CheckSession(ctx)
	if a.manager.State() != session.StateAuthenticated {
		return apperrors.Wrapf(apperrors.ErrNotLoggedIn, "run 'agentdash login'")
	}
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("login requires -u and -p")
	}

	if !a.manager.Login(ctx, *username, *password) {
		// Deliberately no status code here.
		return fmt.Errorf("wrong username or password")
	}

	identity := a.manager.Identity()
	fmt.Printf("Logged in as %s (%s)\n", identity.Username, identity.Role)
	return nil
}

func (a *app) cmdLogout() error {
	a.manager.Logout()
	fmt.Println("Logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	identity := a.manager.Identity()
	fmt.Printf("%s (%s)\n", identity.Username, identity.Role)
	if identity.Mailbox != "" {
		fmt.Printf("mailbox: %s\n", identity.Mailbox)
	}
	if len(identity.Permissions) > 0 {
		fmt.Printf("permissions: %s\n", strings.Join(identity.Permissions, ", "))
	}
	if expiry := a.manager.TokenExpiry(); !expiry.IsZero() {
		fmt.Printf("token expires: %s\n", expiry.Local())
	}
	return nil
}

func (a *app) cmdChat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("chat requires a subcommand")
	}

	switch args[0] {
	case "send":
		return a.cmdChatSend(ctx, args[1:])
	case "history":
		return a.cmdChatHistory(ctx, args[1:])
	case "confirm", "reject":
		return a.cmdChatAction(ctx, args[0], args[1:])
	case "export":
		return a.cmdChatExport(ctx, args[1:])
	case "generate":
		return a.cmdChatGenerate(ctx, args[1:])
	}
	return fmt.Errorf("unknown chat subcommand %q", args[0])
}

func (a *app) cmdChatSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat send", flag.ContinueOnError)
	message := fs.String("m", "", "message text")
	projektID := fs.Int("projekt", 0, "project id the message is scoped to")
	var files stringList
	fs.Var(&files, "file", "file to attach (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *message == "" {
		return fmt.Errorf("chat send requires -m")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	var scope *int
	if *projektID != 0 {
		scope = projektID
	}

	var reply *chat.Message
	var err error
	if len(files) > 0 {
		var uploads []apiclient.Upload
		var closeUploads func()
		uploads, closeUploads, err = apiclient.OpenUploads(files...)
		if err != nil {
			return err
		}
		reply, err = a.chat.SendWithFiles(ctx, *message, scope, uploads)
		closeUploads()
	} else {
		reply, err = a.chat.Send(ctx, *message, scope)
	}

	if err != nil {
		// Send failures surface as a visible system message, with the
		// actionable timeout hint kept intact.
		printMessage(chat.Message{Role: chat.RoleSystem, Content: errorText(err)})
		return err
	}

	printMessage(*reply)
	return nil
}

func (a *app) cmdChatHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat history", flag.ContinueOnError)
	projektID := fs.Int("projekt", 0, "project id to scope the history to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	var scope *int
	if *projektID != 0 {
		scope = projektID
	}

	history, err := a.chat.History(ctx, scope)
	if err != nil {
		return err
	}
	for _, message := range history {
		printMessage(message)
	}
	return nil
}

// cmdChatAction confirms or rejects a pending action. Failures here are
// deliberately quiet: the action list reflects the real state next time.
func (a *app) cmdChatAction(ctx context.Context, verb string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("chat %s requires an action id", verb)
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	if verb == "confirm" {
		downloadURL, err := a.chat.ConfirmAction(ctx, args[0])
		if err != nil {
			a.logger.Debug().Err(err).Str("action", args[0]).Msg("confirm swallowed")
			return nil
		}
		if downloadURL != "" {
			fmt.Printf("download: %s\n", downloadURL)
		}
		return nil
	}
	if err := a.chat.RejectAction(ctx, args[0]); err != nil {
		a.logger.Debug().Err(err).Str("action", args[0]).Msg("reject swallowed")
	}
	return nil
}

func (a *app) cmdChatExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat export", flag.ContinueOnError)
	title := fs.String("title", "Analiza", "document title")
	content := fs.String("content", "", "document content (stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	text, err := contentOrStdin(*content)
	if err != nil {
		return err
	}

	path, err := a.chat.ExportWord(ctx, text, *title, a.cfg.GetDownloadDir())
	if err != nil {
		return fmt.Errorf("export failed: %s", errorText(err))
	}
	fmt.Printf("saved %s\n", path)
	return nil
}

func (a *app) cmdChatGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat generate", flag.ContinueOnError)
	template := fs.String("template", "", "backend document template type")
	content := fs.String("content", "", "document content (stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *template == "" {
		return fmt.Errorf("chat generate requires -template")
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	text, err := contentOrStdin(*content)
	if err != nil {
		return err
	}

	path, err := a.chat.GenerateDocument(ctx, text, *template, a.cfg.GetDownloadDir())
	if err != nil {
		return fmt.Errorf("document generation failed: %s", errorText(err))
	}
	fmt.Printf("saved %s\n", path)
	return nil
}

func (a *app) cmdEmails(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("emails requires a subcommand")
	}

	switch args[0] {
	case "list":
		return a.cmdEmailsList(ctx, args[1:])
	case "analysis":
		return a.cmdEmailsAnalysis(ctx, args[1:], false)
	case "analyze":
		return a.cmdEmailsAnalysis(ctx, args[1:], true)
	}
	return fmt.Errorf("unknown emails subcommand %q", args[0])
}

func (a *app) cmdEmailsList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("emails list", flag.ContinueOnError)
	category := fs.String("kategorija", "", "email category filter")
	subcategory := fs.String("podkategorija", "", "RFQ subcategory filter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	list, err := a.emails.List(ctx, emails.Filter{Category: *category, RFQSubcategory: *subcategory})
	if err != nil {
		return err
	}
	for _, email := range list {
		fmt.Printf("%6d  %-12s  %-30s  %s\n", email.ID, email.Category, email.Sender, email.Subject)
	}
	return nil
}

func (a *app) cmdEmailsAnalysis(ctx context.Context, args []string, trigger bool) error {
	if len(args) != 1 {
		return fmt.Errorf("emails analysis/analyze requires an email id")
	}
	emailID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid email id %q", args[0])
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	var analysis emails.Analysis
	if trigger {
		analysis, err = a.emails.TriggerAnalysis(ctx, emailID)
	} else {
		analysis, err = a.emails.Analysis(ctx, emailID)
	}
	if err != nil {
		return err
	}
	return printJSON(analysis)
}

func (a *app) cmdProjects(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("projects requires a subcommand")
	}

	switch args[0] {
	case "list":
		return a.cmdProjectsList(ctx, args[1:])
	case "show", "full":
		return a.cmdProjectsShow(ctx, args[0], args[1:])
	}
	return fmt.Errorf("unknown projects subcommand %q", args[0])
}

func (a *app) cmdProjectsList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("projects list", flag.ContinueOnError)
	phase := fs.String("faza", "", "project phase filter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	list, err := a.projects.List(ctx, projects.Filter{Phase: *phase})
	if err != nil {
		return err
	}
	for _, projekt := range list {
		fmt.Printf("%6d  %-12s  %-10s  %s\n", projekt.ID, projekt.Number, projekt.Phase, projekt.Name)
	}
	return nil
}

func (a *app) cmdProjectsShow(ctx context.Context, verb string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("projects %s requires a project id", verb)
	}
	projektID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid project id %q", args[0])
	}
	if err := a.requireSession(ctx); err != nil {
		return err
	}

	if verb == "show" {
		projekt, err := a.projects.Get(ctx, projektID)
		if err != nil {
			return err
		}
		return printJSON(projekt)
	}

	full, err := a.projects.Full(ctx, projektID)
	if err != nil {
		return err
	}
	if err := printJSON(full.Projekt); err != nil {
		return err
	}
	fmt.Printf("\n%d linked emails, %d timeline entries\n", len(full.Emails), len(full.Timeline))
	for _, entry := range full.Timeline {
		fmt.Printf("  %s  %-20s  %s\n", entry.Date, entry.Event, entry.Details)
	}
	return nil
}

func printMessage(message chat.Message) {
	fmt.Printf("[%s] %s\n", message.Role, message.Content)
	for _, action := range message.Actions {
		fmt.Printf("  action %s (%s): %s\n", action.ID, action.Status, action.Description)
	}
	for _, command := range message.SuggestedCommands {
		fmt.Printf("  suggested: %s\n", command)
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

// errorText prefers the server's detail message on API failures so the
// user sees what the backend said, not just a status code.
func errorText(err error) string {
	if apiErr, ok := apiclient.AsAPIError(err); ok && apiErr.Body != "" {
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal([]byte(apiErr.Body), &detail) == nil && detail.Detail != "" {
			return detail.Detail
		}
		return apiErr.Error()
	}
	if apperrors.Is(err, apiclient.ErrTimeout) {
		return apiclient.ErrTimeout.Error()
	}
	return err.Error()
}

func contentOrStdin(content string) (string, error) {
	if content != "" {
		return content, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading content from stdin: %w", err)
	}
	return string(data), nil
}
