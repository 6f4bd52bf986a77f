package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gleehq/glee/internal/arbiter"
	"github.com/gleehq/glee/internal/dispatch"
	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server for agent integration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpServeRun(cmd)
	},
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets connected coding agents request review cycles and capture
project memories. 'glee init' registers it in .mcp.json as:

  {
    "mcpServers": {
      "glee": { "command": "glee", "args": ["mcp", "serve"] }
    }
  }

Available tools: glee_review, glee_memory_add, glee_memory_search,
glee_agents`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpServeRun(cmd)
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func mcpServeRun(cmd *cobra.Command) error {
	cfg, cwd, err := loadProject()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	acfg := engineConfig(cfg, cwd)
	invoker := invoke.NewLogged(invoke.NewRouter(viper.GetString("anthropic.api_key")), s, cfg.Project.ID)

	// No human can answer over stdio; disputes escalated to a human are
	// reported as failures to the calling agent.
	runner := arbiter.NewRunner(acfg, invoker, dispatch.NewSelector(), nil, s)

	srv := mcp.NewServer(cfg, s, runner)
	return srv.ServeStdio(cmd.Context())
}
