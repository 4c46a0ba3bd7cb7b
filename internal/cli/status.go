package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the workspace state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			cfg := a.cfg

			names, err := a.agent.Files().List()
			if err != nil {
				return err
			}
			records, err := a.memory.Count(ctx)
			if err != nil {
				return err
			}
			rules, err := a.agent.Rules().All()
			if err != nil {
				return err
			}

			var dbSize int64
			if fi, err := os.Stat(cfg.DBPath()); err == nil {
				dbSize = fi.Size()
			}
			search := "sqlite-vec"
			if !a.db.VectorEnabled() {
				search = "brute force"
			}

			fmt.Printf("\nWorkspace: %s\n", cfg.DataDir)
			fmt.Printf("Models:    chat=%s embed=%s vision=%s\n", cfg.Provider, cfg.Embedder, cfg.Vision)
			fmt.Printf("Files:     %d in %s\n", len(names), cfg.FilesDir())
			fmt.Printf("Memory:    %d records, %d dims, %s search\n", records, a.db.Dimension(), search)
			fmt.Printf("Rules:     %d\n", len(rules))
			fmt.Printf("Database:  %s (%s)\n", cfg.DBPath(), formatBytes(dbSize))

			recent, err := a.memory.RecentIngestions(ctx, 5)
			if err == nil && len(recent) > 0 {
				fmt.Println("\nRecent ingestions:")
				for _, in := range recent {
					status := fmt.Sprintf("%d/%d chunks", in.Stored, in.Chunks)
					if in.Error != "" {
						status = "failed: " + in.Error
					}
					fmt.Printf("  %s  %-30s %s\n", in.CreatedAt.Local().Format("2006-01-02 15:04"), in.Source, status)
				}
			}
			fmt.Println()
			return nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
