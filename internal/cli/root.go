// Package cli implements the forum-inbound command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/forum-inbound/internal/model"
	"github.com/nhle/forum-inbound/internal/receiver"
	"github.com/nhle/forum-inbound/internal/store"
	"github.com/nhle/forum-inbound/internal/upload"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "forum-inbound",
	Short: "Inbound email receiver for the forum",
	Long: "Accepts raw email from an IMAP inbox, a drop directory, or mbox archives,\n" +
		"extracts the human reply from each message, and turns it into forum topics\n" +
		"and replies.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(), "Path to the configuration file",
	)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired-up pipeline shared by all subcommands.
type app struct {
	cfg      *model.AppConfig
	store    *store.SQLiteStore
	receiver *receiver.Receiver
	logger   *slog.Logger
}

// newApp loads configuration, opens the database, and wires the
// receiver with its collaborators.
func newApp() (*app, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	uploads := upload.NewLocal(cfg.Storage.UploadDir, cfg.Storage.UploadBaseURL)

	rcv := receiver.New(cfg.Email, receiver.Collaborators{
		Categories: st,
		ReplyLogs:  st,
		Users:      st,
		Topics:     st,
		Posts:      st,
		Uploads:    uploads,
	}, logger)

	return &app{cfg: cfg, store: st, receiver: rcv, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing database failed", "err", err)
	}
}
