package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/forum-inbound/internal/ingest"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the spool directory for dropped .eml files",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(a.cfg.Spool.Dir, 0o755); err != nil {
		return fmt.Errorf("creating spool directory: %w", err)
	}

	watcher := ingest.NewSpoolWatcher(a.cfg.Spool.Dir, a.receiver, a.logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a.logger.Info("watching spool directory", "dir", a.cfg.Spool.Dir)
	return watcher.Run(ctx)
}
