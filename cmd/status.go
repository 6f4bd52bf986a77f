package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/output"
	"github.com/gleehq/glee/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project, agents, and recent review outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context) error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}

	ui.Info("Project: %s (%s)", output.Cyan(cfg.Project.Name), cfg.Project.ID)
	ui.Info("Dispatch: coder=%s reviewer=%s", cfg.Dispatch.Coder, cfg.Dispatch.Reviewer)

	if len(cfg.Agents) == 0 {
		ui.Warning("No agents connected")
	} else {
		available := 0
		for _, a := range cfg.Agents {
			if invoke.Available(a) {
				available++
			}
		}
		ui.Info("Agents: %d connected, %d available", len(cfg.Agents), available)
		for _, a := range cfg.Agents {
			roles := make([]string, len(a.Roles))
			for i, r := range a.Roles {
				roles[i] = string(r)
			}
			marker := output.Green("✓")
			if !invoke.Available(a) {
				marker = output.Red("✗")
			}
			fmt.Fprintf(ui.Out, "  %s %s (%s)\n", marker, a.Name, strings.Join(roles, ","))
		}
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	sessions, err := s.ListReviewSessions(ctx, store.SessionListFilter{ProjectID: cfg.Project.ID, Limit: 5})
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No review sessions recorded yet")
		return nil
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Session", "Status", "Iterations", "Coder", "Started"})
	for _, sess := range sessions {
		table.Append([]string{
			shortID(sess.ID),
			output.StatusColor(string(sess.Status)),
			fmt.Sprintf("%d", sess.Iterations),
			sess.Coder,
			sess.StartedAt.Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}

// shortID trims a ULID for table display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
