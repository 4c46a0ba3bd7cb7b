package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memvra/docbot/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format     string
		output     string
		ingestions int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an inventory of files, memory and rules",
		Long: `Render the workspace inventory: every file with its memory record count,
files that are only on disk or only in memory, the rules and the recent
ingestion log. Output goes to stdout unless --output is given.

Examples:
  docbot export --format markdown > INVENTORY.md
  docbot export --format json -o inventory.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, ok := export.Get(strings.ToLower(format))
			if !ok {
				return fmt.Errorf("unknown format %q; valid formats: %s",
					format, strings.Join(export.ValidFormats(), ", "))
			}

			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.agent.Files().List()
			if err != nil {
				return err
			}
			rules, err := a.agent.Rules().All()
			if err != nil {
				return err
			}

			workspace := filepath.Base(filepath.Dir(a.cfg.DataDir))
			data, err := export.Gather(context.Background(), workspace, names, a.memory, rules, ingestions)
			if err != nil {
				return err
			}

			rendered, err := exporter.Export(data)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if output == "" {
				_, err = os.Stdout.WriteString(rendered)
				return err
			}
			return os.WriteFile(output, []byte(rendered), 0o644)
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().IntVar(&ingestions, "ingestions", 20, "number of ingestion log entries to include")

	return cmd
}
