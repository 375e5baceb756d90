package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/forum-inbound/internal/ingest"
)

var pollOnce bool

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().BoolVar(&pollOnce, "once", false, "Run a single fetch pass and exit")
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the configured IMAP inbox for new messages",
	RunE:  runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	poller := ingest.NewIMAPPoller(a.cfg.IMAP, a.receiver, a.logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if pollOnce {
		return poller.Poll(ctx)
	}
	return poller.Run(ctx)
}

// signalContext derives a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
