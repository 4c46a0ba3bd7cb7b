package cli

import (
	"github.com/spf13/cobra"

	"github.com/memvra/docbot/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve docbot's tools over the Model Context Protocol on stdio",
		Long: `Run an MCP server on stdin/stdout so AI clients can ask questions,
ingest files and manage the workspace. Register it in your client as:

  {"command": "docbot", "args": ["mcp", "-C", "/path/to/workspace"]}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			return mcp.NewServer(a.agent, version, a.logger).ServeStdio()
		},
	}
}
