package main

import (
	"flag"
	"strings"

	"finchat/internal/app"
	"finchat/internal/logging"
)

type ChatCommand struct {
	wiring commandWiring
}

func NewChatCommand(wiring commandWiring) *ChatCommand {
	return &ChatCommand{wiring: wiring}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	chatID := fs.String("chat", "", "open an existing chat by id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	// The UI owns the terminal, so logs go to a file.
	logPath, err := cfg.LogFile()
	if err != nil {
		return err
	}
	logger, closer, err := logging.OpenFile(logPath, logging.ParseLevel(cfg.LogLevel()))
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("chat ui starting", logging.F("version", c.wiring.version), logging.F("base_url", cfg.BaseURL()))

	repo, err := c.wiring.openRepository(logger)
	if err != nil {
		logger.Warn("local state unavailable", logging.Err(err))
		repo = nil
	}
	if repo != nil {
		defer repo.Close()
	}

	api := c.wiring.newAPI(cfg, logger)
	return c.wiring.runUI(c.wiring.ctx, app.Options{
		Controller:    newController(api, cfg, logger),
		Repository:    repo,
		Logger:        logger,
		Markdown:      cfg.MarkdownEnabled(),
		SidebarWidth:  cfg.SidebarWidth(),
		InitialChatID: strings.TrimSpace(*chatID),
	})
}
