package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/rooted/internal/client"
	"github.com/lazypower/rooted/internal/engine"
)

var (
	chatLocal      bool
	chatShowMemory bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message and print the reply",
	Long: "Send one chat message. Uses the running server when it answers its health check, " +
		"otherwise runs the engine in-process.",
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatLocal, "local", false, "Skip the server and run the engine in-process")
	chatCmd.Flags().BoolVarP(&chatShowMemory, "memory", "m", false, "Print the memories used for the reply")
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	ctx := cmd.Context()

	var (
		resp *engine.ChatResponse
		err  error
	)
	c := client.New(cfg.ListenAddr(), currentUser())
	if !chatLocal && c.Healthy(ctx) {
		resp, err = c.Chat(ctx, message)
	} else {
		resp, err = chatLocally(ctx, message)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Response)
	if chatShowMemory {
		printMemoryMap(out, resp.MemoryUsed)
	}
	return nil
}

func chatLocally(ctx context.Context, message string) (*engine.ChatResponse, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.engine.Chat(ctx, currentUser(), message)
}

func printMemoryMap(w io.Writer, m engine.MemoryMap) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "--- memory used ---")
	fmt.Fprintln(w, engine.FormatContext(m))
}
