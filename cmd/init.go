package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gleehq/glee/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize glee in the current directory",
	Long: `Initialize glee in the current directory.

Creates .glee/config.yml, adds .glee/ to .gitignore, registers the glee
MCP server in .mcp.json, and records the project in the global registry.
Safe to run again: an existing config keeps its ID and agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initRun()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initRun() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would initialize glee in %s", cwd)
		return nil
	}

	cfg, err := config.Init(cwd, "")
	if err != nil {
		return err
	}

	if err := config.RegisterMCPServer(cwd); err != nil {
		return err
	}
	if err := config.RegisterProject(viper.GetString("state_dir"), cfg.Project); err != nil {
		return err
	}

	ui.Success("Initialized project %s (%s)", cfg.Project.Name, cfg.Project.ID)
	if len(cfg.Agents) == 0 {
		ui.Info("Connect agents with 'glee agent connect <command> --role coder,reviewer'")
	}
	return nil
}
