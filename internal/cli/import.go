package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/rooted/internal/engine"
	"github.com/lazypower/rooted/internal/transcript"
)

var importCmd = &cobra.Command{
	Use:   "import [file.jsonl]",
	Short: "Replay a chat transcript into memory",
	Long: "Read a JSONL transcript and run each user message through analysis and storage. " +
		"Assistant turns are ignored; no replies are generated.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	entries, err := transcript.ParseFile(args[0])
	if err != nil {
		return err
	}
	messages := transcript.UserMessages(entries)
	if len(messages) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No user messages found.")
		return nil
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	user := currentUser()
	var total engine.Results
	for _, msg := range messages {
		res, err := a.engine.Ingest(ctx, user, a.engine.Analyze(ctx, msg))
		if err != nil {
			return fmt.Errorf("import message: %w", err)
		}
		total.Processed += res.Processed
		total.RootUpdates += res.RootUpdates
		total.NewMemories += res.NewMemories
		total.Reinforced += res.Reinforced
		total.Discarded += res.Discarded
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d messages: %d new, %d reinforced, %d root updates, %d discarded\n",
		total.Processed, total.NewMemories, total.Reinforced, total.RootUpdates, total.Discarded)
	return nil
}
