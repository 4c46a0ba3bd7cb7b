// Package cli defines the Cobra command tree for the docbot CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global flags shared by every command.
var (
	workdir  string
	logLevel string
	verbose  bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "docbot",
	Short: "Local multimodal document assistant with long-term memory",
	Long: `docbot keeps your documents in a local folder, indexes their text into a
vector memory and answers questions about them with retrieval-augmented
generation.

Text, PDF and image files are supported. Images get an OCR pass and a
vision-model description, and can be renamed from their content.

Run 'docbot chat' to start a conversation, or 'docbot serve' to expose the
assistant over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workdir, "workdir", "C", ".", "workspace directory holding .docbot/")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also print logs to stderr")

	rootCmd.AddCommand(
		newChatCmd(),
		newAskCmd(),
		newIngestCmd(),
		newImportCmd(),
		newWatchCmd(),
		newFilesCmd(),
		newDeleteCmd(),
		newRulesCmd(),
		newWipeCmd(),
		newStatusCmd(),
		newExportCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("docbot %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
