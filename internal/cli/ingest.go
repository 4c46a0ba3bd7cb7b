package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/scanner"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Copy files into the workspace and index them",
		Long: `Copy each file into the managed folder and index its content into
long-term memory. Text files are chunked directly, PDFs are extracted page by
page, and images are described with OCR plus the vision model.

A file that is already stored under the same name is replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			var failed int
			for _, path := range args {
				fmt.Println(agent.AckText(filepath.Base(path)))
				res := a.agent.Import(ctx, path)
				fmt.Println(res.Message)
				if res.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var (
		excludes  []string
		noRecurse bool
		maxSizeMB int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Scan a directory tree and ingest every supported file",
		Long: `Walk a directory and ingest every text, PDF and image file found.

.gitignore and .docbotignore files in <dir> are honoured, as are --exclude
patterns (gitignore syntax).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]
			if info, err := os.Stat(root); err != nil {
				return err
			} else if !info.IsDir() {
				return fmt.Errorf("%s is not a directory; use `docbot ingest` for single files", root)
			}

			result := scanner.Scan(scanner.ScanOptions{
				Root:         root,
				MaxFileSize:  int64(maxSizeMB) << 20,
				ExcludeGlobs: excludes,
				NoRecurse:    noRecurse,
			})
			for _, err := range result.Errors {
				fmt.Fprintf(os.Stderr, "  warning: %v\n", err)
			}

			if dryRun {
				for _, c := range result.Files {
					fmt.Printf("%s (%d bytes)\n", c.Rel, c.Size)
				}
				fmt.Printf("\n%d files would be imported, %d skipped.\n", len(result.Files), result.Skipped)
				return nil
			}
			if len(result.Files) == 0 {
				fmt.Println("No supported files found.")
				return nil
			}

			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			bar := progressbar.NewOptions(len(result.Files),
				progressbar.OptionSetDescription("  Importing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			ctx := context.Background()
			var stored, chunks int
			var errs []error
			for _, c := range result.Files {
				res := a.agent.Import(ctx, c.Path)
				if res.Err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", c.Rel, res.Err))
				} else if res.Stored > 0 {
					stored++
					chunks += res.Stored
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Printf("Imported %d of %d files (%d chunks), %d skipped.\n", stored, len(result.Files), chunks, result.Skipped)
			for _, err := range errs {
				fmt.Fprintf(os.Stderr, "  failed: %v\n", err)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringSliceVarP(&excludes, "exclude", "e", nil, "gitignore-style pattern to skip (repeatable)")
	cmd.Flags().BoolVar(&noRecurse, "no-recurse", false, "only import files directly inside <dir>")
	cmd.Flags().IntVar(&maxSizeMB, "max-size", 64, "skip files larger than this many megabytes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files that would be imported")

	return cmd
}
