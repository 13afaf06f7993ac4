package main

import (
	"context"
	"io"
	"os"

	"finchat/internal/app"
	"finchat/internal/chat"
	"finchat/internal/client"
	"finchat/internal/config"
	"finchat/internal/devserver"
	"finchat/internal/logging"
	"finchat/internal/store"
)

type commandRunner interface {
	Run(args []string) error
}

type apiFactory func(cfg config.Config, logger logging.Logger) chat.API

type commandWiring struct {
	ctx            context.Context
	stdout         io.Writer
	stderr         io.Writer
	loadConfig     func() (config.Config, error)
	newAPI         apiFactory
	openRepository func(logger logging.Logger) (store.Repository, error)
	runUI          func(ctx context.Context, opts app.Options) error
	serveDev       func(ctx context.Context, addr string, opts devserver.Options) error
	version        string
}

func defaultCommandWiring(ctx context.Context, stdout, stderr io.Writer) commandWiring {
	if ctx == nil {
		ctx = context.Background()
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		ctx:        ctx,
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newAPI: func(cfg config.Config, logger logging.Logger) chat.API {
			return client.NewFromConfig(cfg, logger)
		},
		openRepository: openStateRepository,
		runUI:          app.Run,
		serveDev: func(ctx context.Context, addr string, opts devserver.Options) error {
			return devserver.New(opts).ListenAndServe(ctx, addr)
		},
		version: buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"chat":      NewChatCommand(wiring),
		"ask":       NewAskCommand(wiring),
		"chats":     NewChatsCommand(wiring),
		"history":   NewHistoryCommand(wiring),
		"config":    NewConfigCommand(wiring.stdout, wiring.stderr, wiring.loadConfig),
		"devserver": NewDevServerCommand(wiring),
	}
}
