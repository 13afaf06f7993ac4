package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const usageText = `finchat is a terminal client for the finance assistant.

Usage:
  finchat <command> [flags]

Commands:
  chat       open the chat UI
  ask        send one message and stream the reply to stdout
  chats      list chats
  history    print the messages of a chat
  config     print configuration (effective or defaults)
  devserver  run a local stub of the chat API
  help       show help

Flags:
  -h, --help   show help

Examples:
  finchat chat
  finchat ask "How much did I spend on groceries?"
  finchat ask --chat 3kTMd9 "And last month?"
  finchat history 3kTMd9
  finchat devserver --addr 127.0.0.1:3000
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wiring := defaultCommandWiring(ctx, os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	err := runner.Run(args[1:])
	stop()
	exitOnErr(args[0], err, wiring.stderr)
}
