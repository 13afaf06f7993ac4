package main

import (
	"flag"
	"io"

	"finchat/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
}

func NewConfigCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error)) *ConfigCommand {
	return &ConfigCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("defaults", false, "print default config values")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if !*defaults {
		loaded, err := c.loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// The token is a credential; never echo it.
	if cfg.Server.Token != "" {
		cfg.Server.Token = "********"
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = c.stdout.Write(out)
	return err
}
