package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files [name]",
		Short: "List the documents in the workspace, or the records of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				return printRecords(cmd.Context(), a, cmd.OutOrStdout(), args[0])
			}

			names, err := a.agent.Files().List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No files stored.")
				return nil
			}

			counts := make(map[string]int)
			if stats, err := a.memory.Sources(context.Background()); err == nil {
				for _, s := range stats {
					counts[s.Source] = s.Records
				}
			}
			for _, n := range names {
				fmt.Printf("%-40s %4d records\n", n, counts[n])
			}
			return nil
		},
	}
}

// recordPreview is the number of runes of each record shown by files <name>.
const recordPreview = 80

func printRecords(ctx context.Context, a *app, out io.Writer, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	recs, err := a.agent.Records(ctx, name)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintf(out, "No records stored for %s.\n", name)
		return nil
	}
	fmt.Fprintf(out, "%s: %d records\n", recs[0].Source, len(recs))
	for i, r := range recs {
		text := strings.Join(strings.Fields(r.Content), " ")
		if rs := []rune(text); len(rs) > recordPreview {
			text = string(rs[:recordPreview]) + "..."
		}
		fmt.Fprintf(out, "%3d. %s\n", i+1, text)
	}
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete documents from disk and from memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var failed int
			for _, name := range args {
				res := a.agent.Delete(context.Background(), name)
				fmt.Println(res.Message())
				if res.Err() != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d deletions failed", failed)
			}
			return nil
		},
	}
}
