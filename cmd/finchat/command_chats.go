package main

import (
	"errors"
	"flag"
	"strings"
)

type ChatsCommand struct {
	wiring commandWiring
}

func NewChatsCommand(wiring commandWiring) *ChatsCommand {
	return &ChatsCommand{wiring: wiring}
}

func (c *ChatsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chats", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	api := c.wiring.newAPI(cfg, stderrLogger(c.wiring.stderr, cfg))
	chats, err := api.ListChats(c.wiring.ctx)
	if err != nil {
		return err
	}
	printChats(c.wiring.stdout, chats)
	return nil
}

type HistoryCommand struct {
	wiring commandWiring
}

func NewHistoryCommand(wiring commandWiring) *HistoryCommand {
	return &HistoryCommand{wiring: wiring}
}

func (c *HistoryCommand) Run(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return errors.New("usage: finchat history <chat-id>")
	}
	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	api := c.wiring.newAPI(cfg, stderrLogger(c.wiring.stderr, cfg))
	session, err := api.GetChat(c.wiring.ctx, strings.TrimSpace(fs.Arg(0)))
	if err != nil {
		return err
	}
	printMessages(c.wiring.stdout, session.Messages)
	return nil
}
