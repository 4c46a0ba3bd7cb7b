package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var contextOnly bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Long: `Send one message to the assistant and print its reply. The message goes
through the same file-command routing as chat.

Examples:
  docbot ask "what does the lease say about pets?"
  docbot ask "list files"
  docbot ask "invoice total" --context-only`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()

			if contextOnly {
				chunks, err := a.agent.ContextFor(ctx, question)
				if err != nil {
					return fmt.Errorf("retrieve context: %w", err)
				}
				if len(chunks) == 0 {
					fmt.Fprintln(os.Stderr, "No matching memory.")
					return nil
				}
				for i, c := range chunks {
					fmt.Printf("=== Chunk %d ===\n%s\n\n", i+1, c)
				}
				return nil
			}

			reply := a.agent.Respond(ctx, a.sessions.Get(chatSessionID), question)
			fmt.Println(reply.Text)
			if reply.Attachment != "" {
				fmt.Fprintf(os.Stderr, "[attachment] %s\n", reply.Attachment)
			}
			if reply.Err != nil {
				return reply.Err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&contextOnly, "context-only", false, "print the retrieved memory chunks without calling the LLM")

	return cmd
}
