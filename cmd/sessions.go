package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gleehq/glee/internal/models"
	"github.com/gleehq/glee/internal/output"
	"github.com/gleehq/glee/internal/store"
)

var (
	sessionsLimit  int
	sessionsStatus string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded review sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd.Context())
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one review session in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsShowRun(cmd.Context(), args[0])
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Max sessions to show")
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "Filter by status (completed, exhausted, aborted)")
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsListRun(ctx context.Context) error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	filter := store.SessionListFilter{
		ProjectID: cfg.Project.ID,
		Limit:     sessionsLimit,
	}
	if sessionsStatus != "" {
		filter.Status = models.CycleStatus(sessionsStatus)
	}

	sessions, err := s.ListReviewSessions(ctx, filter)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No review sessions recorded")
		return nil
	}

	table := ui.Table([]string{"Session", "Status", "Iterations", "Coder", "Reviewers", "Started"})
	for _, sess := range sessions {
		table.Append([]string{
			shortID(sess.ID),
			output.StatusColor(string(sess.Status)),
			fmt.Sprintf("%d", sess.Iterations),
			sess.Coder,
			strings.Join(sess.Reviewers, ","),
			sess.StartedAt.Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}

func sessionsShowRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sess, err := s.GetReviewSession(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("Session %s", sess.ID)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(sess.Status)))
	fmt.Fprintf(ui.Out, "  Iterations: %d\n", sess.Iterations)
	fmt.Fprintf(ui.Out, "  Coder:      %s\n", sess.Coder)
	fmt.Fprintf(ui.Out, "  Reviewers:  %s\n", strings.Join(sess.Reviewers, ", "))
	fmt.Fprintf(ui.Out, "  Started:    %s\n", sess.StartedAt.Format("2006-01-02 15:04:05"))
	if sess.EndedAt != nil {
		fmt.Fprintf(ui.Out, "  Ended:      %s\n", sess.EndedAt.Format("2006-01-02 15:04:05"))
	}

	if len(sess.Resolutions) > 0 {
		fmt.Fprintln(ui.Out)
		table := ui.Table([]string{"Item", "Action", "Decided By"})
		for _, r := range sess.Resolutions {
			table.Append([]string{r.ItemID, string(r.Action), string(r.DecidedBy)})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	for _, w := range sess.Warnings {
		ui.Warning("%s", w)
	}
	return nil
}
