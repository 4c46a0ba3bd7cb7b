package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the behavioral rules added to every prompt",
		Long: `Rules are standing instructions appended to the system prompt. They are
usually taught in conversation with "feedback: ..." messages.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print all rules",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(appOptions{})
				if err != nil {
					return err
				}
				defer a.Close()

				all, err := a.agent.Rules().All()
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Println("No rules.")
					return nil
				}
				for i, r := range all {
					fmt.Printf("%3d. %s\n", i+1, r)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <rule>",
			Short: "Add a rule",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(appOptions{})
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.agent.AddRule(strings.Join(args, " ")); err != nil {
					return err
				}
				fmt.Println("Rule saved.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every rule",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(appOptions{})
				if err != nil {
					return err
				}
				defer a.Close()

				removed, err := a.agent.Rules().Remove()
				if err != nil {
					return err
				}
				if removed {
					fmt.Println("Rules cleared.")
				} else {
					fmt.Println("No rules.")
				}
				return nil
			},
		},
	)

	return cmd
}
