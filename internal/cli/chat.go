package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/conversation"
)

// chatSessionID is the conversation used by the interactive REPL.
const chatSessionID = "cli"

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Open a conversation with the assistant on stdin/stdout.

Type a message and press Enter. Besides questions, the assistant understands
file commands such as "list files", "read notes.txt", "share report.pdf" and
"delete scan.png", and messages starting with "feedback:" become rules.

REPL commands:
  /upload <path>   copy a file into the workspace and index it
  /reset           forget this conversation's history
  /quit            exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess := a.sessions.Get(chatSessionID)
			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			return runChat(ctx, a, sess, os.Stdin, os.Stdout, interactive)
		},
	}
}

// runChat reads one message per line until EOF, /quit or ctx is done.
func runChat(ctx context.Context, a *app, sess *conversation.Session, in io.Reader, out io.Writer, interactive bool) error {
	fmt.Fprintln(out, agent.WelcomeText)
	fmt.Fprintln(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			n := sess.Clear()
			fmt.Fprintf(out, "Cleared %d turns.\n\n", n)
			continue
		case strings.HasPrefix(line, "/upload "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/upload "))
			fmt.Fprintln(out, agent.AckText(filepath.Base(path)))
			res := a.agent.Import(ctx, path)
			fmt.Fprintf(out, "%s\n\n", res.Message)
			continue
		}

		reply := a.agent.Respond(ctx, sess, line)
		fmt.Fprintln(out, reply.Text)
		if reply.Attachment != "" {
			fmt.Fprintf(out, "[attachment] %s\n", reply.Attachment)
		}
		fmt.Fprintln(out)
	}
}
