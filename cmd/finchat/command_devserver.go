package main

import (
	"flag"
	"time"

	"finchat/internal/devserver"
	"finchat/internal/logging"
)

const defaultDevAddr = "127.0.0.1:3000"

type DevServerCommand struct {
	wiring commandWiring
}

func NewDevServerCommand(wiring commandWiring) *DevServerCommand {
	return &DevServerCommand{wiring: wiring}
}

func (c *DevServerCommand) Run(args []string) error {
	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	addr := fs.String("addr", defaultDevAddr, "listen address")
	token := fs.String("token", "", "require this bearer token")
	delay := fs.Duration("delay", 40*time.Millisecond, "pause between streamed words")
	level := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.wiring.serveDev(c.wiring.ctx, *addr, devserver.Options{
		Token:     *token,
		WordDelay: *delay,
		Logger:    logging.New(c.wiring.stderr, logging.ParseLevel(*level)),
	})
}
