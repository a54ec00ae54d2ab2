package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/issuedesk/issuedesk/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients like Claude Code query and manage issues
natively. Configure with:

  {
    "mcpServers": {
      "issuedesk": { "command": "issuedesk", "args": ["mcp"] }
    }
  }

Mutating tools act as the configured identity (identity.email or --as).

Available tools: issuedesk_list_issues, issuedesk_get_issue,
issuedesk_create_issue, issuedesk_update_issue, issuedesk_assign_issue,
issuedesk_issue_stats, issuedesk_list_users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	svc, err := getService()
	if err != nil {
		return err
	}

	srv := mcp.NewServer(svc, dataStore, identityEmail())
	return srv.ServeStdio(context.Background())
}
