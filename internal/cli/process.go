package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/forum-inbound/internal/receiver"
)

func init() {
	rootCmd.AddCommand(processCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Process a single raw email from a file or stdin",
	Long: "Reads one RFC 5322 message, runs it through the receiver pipeline, and\n" +
		"prints the created topic and post. With no argument the message is read\n" +
		"from stdin, which makes the command usable as an MTA delivery target.",
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error

	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading message file: %w", err)
		}
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading message from stdin: %w", err)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.receiver.Process(cmd.Context(), raw)
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case receiver.OutcomeNewTopic:
		fmt.Printf("Created topic %d (post %d)\n", outcome.Post.TopicID, outcome.Post.ID)
	case receiver.OutcomeReply:
		fmt.Printf("Created reply %d in topic %d (post #%d)\n",
			outcome.Post.ID, outcome.Post.TopicID, outcome.Post.PostNumber)
	}

	return nil
}
