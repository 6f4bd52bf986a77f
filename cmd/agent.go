package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/models"
	"github.com/gleehq/glee/internal/output"
)

var (
	agentRoles    []string
	agentModel    string
	agentDomain   []string
	agentFocus    []string
	agentPriority int
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agents connected to this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentListRun()
	},
}

var agentConnectCmd = &cobra.Command{
	Use:   "connect <command>",
	Short: "Connect an agent CLI to this project",
	Long: `Connect an agent to this project by its CLI command (claude, codex,
gemini). With --model the agent is invoked through the Anthropic API instead
of a subprocess. Each connection gets a unique generated name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentConnectRun(args[0])
	},
}

var agentDisconnectCmd = &cobra.Command{
	Use:   "disconnect <name>",
	Short: "Remove an agent from this project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentDisconnectRun(args[0])
	},
}

var agentListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List connected agents and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentListRun()
	},
}

func init() {
	agentConnectCmd.Flags().StringSliceVar(&agentRoles, "role", []string{"reviewer"}, "Roles: coder, reviewer, judge")
	agentConnectCmd.Flags().StringVar(&agentModel, "model", "", "Anthropic API model (invokes via API instead of CLI)")
	agentConnectCmd.Flags().StringSliceVar(&agentDomain, "domain", nil, "Coder domains (backend, frontend, ...)")
	agentConnectCmd.Flags().StringSliceVar(&agentFocus, "focus", nil, "Reviewer focus areas (security, performance, ...)")
	agentConnectCmd.Flags().IntVar(&agentPriority, "priority", 0, "Dispatch priority (lower wins for 'first' strategy)")

	agentCmd.AddCommand(agentConnectCmd)
	agentCmd.AddCommand(agentDisconnectCmd)
	agentCmd.AddCommand(agentListCmd)
	rootCmd.AddCommand(agentCmd)
}

func parseRoles(raw []string) ([]models.Role, error) {
	var roles []models.Role
	for _, r := range raw {
		role := models.Role(strings.ToLower(strings.TrimSpace(r)))
		switch role {
		case models.RoleCoder, models.RoleReviewer, models.RoleJudge:
			roles = append(roles, role)
		default:
			return nil, fmt.Errorf("unknown role %q (valid: coder, reviewer, judge)", r)
		}
	}
	return roles, nil
}

func agentConnectRun(command string) error {
	cfg, cwd, err := loadProject()
	if err != nil {
		return err
	}

	roles, err := parseRoles(agentRoles)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would connect %s with roles %s", command, strings.Join(agentRoles, ","))
		return nil
	}

	agent := cfg.ConnectAgent(command, roles, agentDomain, agentFocus, agentPriority)
	if agentModel != "" {
		cfg.Agents[len(cfg.Agents)-1].Model = agentModel
		agent.Model = agentModel
	}

	if err := cfg.Save(cwd); err != nil {
		return err
	}

	if !invoke.Available(agent) {
		ui.Warning("Command %q not found on PATH; the agent will fail until it is installed", command)
	}
	ui.Success("Connected %s (%s)", output.Cyan(agent.Name), strings.Join(agentRoles, ","))
	return nil
}

func agentDisconnectRun(name string) error {
	cfg, cwd, err := loadProject()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would disconnect %s", name)
		return nil
	}

	if !cfg.DisconnectAgent(name) {
		return fmt.Errorf("agent not found: %s", name)
	}
	if err := cfg.Save(cwd); err != nil {
		return err
	}
	ui.Success("Disconnected %s", name)
	return nil
}

func agentListRun() error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}

	if len(cfg.Agents) == 0 {
		ui.Info("No agents connected. Use 'glee agent connect <command>' to add one.")
		return nil
	}

	table := ui.Table([]string{"Name", "Command", "Roles", "Domain", "Focus", "Available"})
	for _, a := range cfg.Agents {
		roles := make([]string, len(a.Roles))
		for i, r := range a.Roles {
			roles[i] = string(r)
		}
		available := output.Green("yes")
		if !invoke.Available(a) {
			available = output.Red("no")
		}
		command := a.Command
		if a.Model != "" {
			command = "api:" + a.Model
		}
		table.Append([]string{
			a.Name,
			command,
			strings.Join(roles, ","),
			strings.Join(a.Domain, ","),
			strings.Join(a.Focus, ","),
			available,
		})
	}
	return table.Render()
}
