// Package cli implements the terminal chat client.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/hikari-ai/chat-assistant/internal/apiclient"
	"github.com/hikari-ai/chat-assistant/internal/store"
	"github.com/hikari-ai/chat-assistant/pkg/logger"
)

// Run executes the chat client command.
func Run(ctx context.Context, argv []string) error {
	var (
		apiURL      string
		historyFile string
		logLevel    string
	)

	cmd := &cli.Command{
		Name:  "chat",
		Usage: "Terminal client for the chat assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "api-url",
				Usage:       "Base URL of the chat API",
				Sources:     cli.EnvVars("CHAT_API_URL"),
				Value:       "http://localhost:8080",
				Destination: &apiURL,
			},
			&cli.StringFlag{
				Name:        "history-file",
				Usage:       "Path of the saved-history slot",
				Sources:     cli.EnvVars("CHAT_HISTORY_FILE"),
				Destination: &historyFile,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level for the client log file",
				Sources:     cli.EnvVars("CHAT_LOG_LEVEL"),
				Value:       "info",
				Destination: &logLevel,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			slotPath := historyFile
			if slotPath == "" {
				var err error
				slotPath, err = store.DefaultSlotPath()
				if err != nil {
					return err
				}
			}

			// The transcript owns stdout, so the client logs to a file
			// next to the history slot.
			log := logger.NewFile(logLevel, filepath.Join(filepath.Dir(slotPath), "client.log"))
			defer log.Sync()

			s := store.New(apiclient.New(apiURL), store.NewFileSlot(slotPath), log)
			repl := newREPL(s, c.Root().Writer)
			return repl.run(ctx)
		},
	}

	return cmd.Run(ctx, argv)
}

// Main is the entry point used by cmd/chat.
func Main() {
	if err := Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
