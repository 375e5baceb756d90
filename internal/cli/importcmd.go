package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/forum-inbound/internal/ingest"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <mbox-file>...",
	Short: "Import messages from mbox archive files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	importer := ingest.NewMboxImporter(a.receiver, a.logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	for _, path := range args {
		stats, err := importer.ImportFile(ctx, path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Printf("%s: %d processed, %d rejected\n", path, stats.Processed, stats.Rejected)
	}

	return nil
}
