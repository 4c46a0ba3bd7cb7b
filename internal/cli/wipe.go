package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newWipeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Erase all files, memory records, rules and conversations",
		Long: `Permanently delete every stored document, every memory record and the
rules file. This cannot be undone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("refusing to wipe without --yes")
				}
				fmt.Print("This deletes every file, memory record and rule. Type 'yes' to continue: ")
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if strings.TrimSpace(strings.ToLower(line)) != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.agent.WipeAll(context.Background())
			fmt.Println(res.Summary())
			return res.Err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
