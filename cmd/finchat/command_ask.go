package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"finchat/internal/types"
)

type AskCommand struct {
	wiring commandWiring
}

func NewAskCommand(wiring commandWiring) *AskCommand {
	return &AskCommand{wiring: wiring}
}

func (c *AskCommand) Run(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	chatID := fs.String("chat", "", "continue an existing chat")
	if err := fs.Parse(args); err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return errors.New("message is required")
	}

	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logger := stderrLogger(c.wiring.stderr, cfg)
	ctrl := newController(c.wiring.newAPI(cfg, logger), cfg, logger)
	if id := strings.TrimSpace(*chatID); id != "" {
		ctrl.SelectChat(id)
	}

	var wrote bool
	err = ctrl.Run(c.wiring.ctx, message, func(event types.StreamEvent) {
		if delta, ok := event.(types.ContentDelta); ok {
			fmt.Fprint(c.wiring.stdout, delta.Text)
			wrote = true
		}
	})
	if wrote {
		fmt.Fprintln(c.wiring.stdout)
	}
	if err != nil {
		if reply := ctrl.LastAssistant(); reply != nil && reply.Local() {
			fmt.Fprintln(c.wiring.stdout, reply.Content)
		}
		return err
	}
	if ctrl.ActiveChatID() != "" && strings.TrimSpace(*chatID) == "" {
		fmt.Fprintf(c.wiring.stderr, "chat: %s\n", ctrl.ActiveChatID())
	}
	return nil
}
