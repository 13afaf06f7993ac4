package main

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"
	"time"

	"finchat/internal/chat"
	"finchat/internal/config"
	"finchat/internal/logging"
	"finchat/internal/store"
	"finchat/internal/types"
)

const version = "dev"

func printChats(output io.Writer, chats []*types.ChatSummary) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tUPDATED\tTITLE")
	for _, summary := range chats {
		if summary == nil {
			continue
		}
		updated := "-"
		if !summary.UpdatedAt.IsZero() {
			updated = summary.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", summary.ID, updated, summary.Title)
	}
	_ = writer.Flush()
}

func printMessages(output io.Writer, messages []*types.ChatMessage) {
	for i, msg := range messages {
		if msg == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintln(output)
		}
		header := strings.ToLower(string(msg.Role))
		if !msg.CreatedAt.IsZero() {
			header += " · " + msg.CreatedAt.Local().Format(time.DateTime)
		}
		if msg.ResponseType != "" && msg.ResponseType != types.ResponseTypeText {
			header += " · " + strings.ToLower(string(msg.ResponseType))
		}
		fmt.Fprintf(output, "[%s]\n%s\n", header, strings.TrimRight(msg.Content, "\n"))
	}
}

// newController builds a controller with the configured reload timeout.
func newController(api chat.API, cfg config.Config, logger logging.Logger) *chat.Controller {
	return chat.NewController(api,
		chat.WithLogger(logger),
		chat.WithReloadTimeout(cfg.ReloadTimeout()),
	)
}

// openStateRepository prefers the bbolt database and falls back to JSON
// files while another finchat process holds it.
func openStateRepository(logger logging.Logger) (store.Repository, error) {
	dbPath, err := config.StateDBPath()
	if err != nil {
		return nil, err
	}
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	cachePath, err := config.ChatCachePath()
	if err != nil {
		return nil, err
	}
	paths := store.RepositoryPaths{AppStatePath: statePath, ChatCachePath: cachePath, DBPath: dbPath}
	repo, err := store.OpenRepository(paths, store.RepositoryBackendBbolt)
	if errors.Is(err, store.ErrLocked) {
		logger.Warn("state database busy, using json state files", logging.F("path", dbPath))
		return store.OpenRepository(paths, store.RepositoryBackendFile)
	}
	return repo, err
}

func stderrLogger(stderr io.Writer, cfg config.Config) logging.Logger {
	return logging.New(stderr, logging.ParseLevel(cfg.LogLevel()))
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
