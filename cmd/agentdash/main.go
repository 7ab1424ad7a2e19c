package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"agentdash/apiclient"
	"agentdash/chat"
	"agentdash/emails"
	"agentdash/internal/config"
	"agentdash/internal/logging"
	"agentdash/projects"
	"agentdash/session"
	"agentdash/session/tokenstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "agentdash: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		displayAppname(cfg.GetAppName())
		usage()
		return nil
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return app.dispatch(ctx, args[0], args[1:])
}

// app wires the session manager, gateway, and resource services once at
// process start; commands receive them by reference.
type app struct {
	cfg      config.Config
	logger   zerolog.Logger
	manager  *session.Manager
	chat     *chat.Service
	emails   *emails.Service
	projects *projects.Service
}

func newApp(cfg config.Config) (*app, error) {
	logger := logging.New(cfg.GetLogLevel())

	store, err := tokenstore.New(cfg.GetTokenFile())
	if err != nil {
		return nil, err
	}

	gateway, err := apiclient.New(
		cfg.GetAPIBaseURL(),
		session.NewStoreTokenSource(store),
		apiclient.WithLogger(logger),
		apiclient.WithUploadTimeout(time.Duration(cfg.GetUploadTimeoutMS())*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}

	manager, err := session.NewManager(gateway, store, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	chatService, err := chat.NewService(gateway)
	if err != nil {
		return nil, err
	}
	emailService, err := emails.NewService(gateway)
	if err != nil {
		return nil, err
	}
	projectService, err := projects.NewService(gateway)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		chat:     chatService,
		emails:   emailService,
		projects: projectService,
	}, nil
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout()
	case "whoami":
		return a.cmdWhoami(ctx)
	case "chat":
		return a.cmdChat(ctx, args)
	case "emails":
		return a.cmdEmails(ctx, args)
	case "projects":
		return a.cmdProjects(ctx, args)
	}
	usage()
	return fmt.Errorf("unknown command %q", command)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

func usage() {
	fmt.Print(`Usage: agentdash <command> [flags]

  login    -u <username> -p <password>
  logout
  whoami

  chat send     -m <message> [-projekt <id>] [-file <path>]...
  chat history  [-projekt <id>]
  chat confirm  <action-id>
  chat reject   <action-id>
  chat export   -title <title> [-content <text>]        (content from stdin when omitted)
  chat generate -template <type> [-content <text>]

  emails list     [-kategorija <k>] [-podkategorija <p>]
  emails analysis <id>
  emails analyze  <id>

  projects list [-faza <f>]
  projects show <id>
  projects full <id>
`)
}
