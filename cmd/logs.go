package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gleehq/glee/internal/store"
)

var (
	logsAgent   string
	logsSuccess bool
	logsLimit   int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show agent invocation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return logsListRun(cmd.Context())
	},
}

var logsShowCmd = &cobra.Command{
	Use:   "show <log-id>",
	Short: "Show one agent invocation in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logsShowRun(cmd.Context(), args[0])
	},
}

var logsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show agent invocation statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return logsStatsRun(cmd.Context())
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsAgent, "agent", "", "Filter by agent name")
	logsCmd.Flags().BoolVar(&logsSuccess, "success", false, "Only show successful runs")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 20, "Max entries to show")
	logsCmd.AddCommand(logsShowCmd)
	logsCmd.AddCommand(logsStatsCmd)
	rootCmd.AddCommand(logsCmd)
}

func logsListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	logs, err := s.ListAgentLogs(ctx, store.AgentLogFilter{
		Agent:       logsAgent,
		SuccessOnly: logsSuccess,
		Limit:       logsLimit,
	})
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		ui.Info("No agent invocations recorded")
		return nil
	}

	table := ui.Table([]string{"Log", "Time", "Agent", "Duration", "Status", "Prompt"})
	for _, l := range logs {
		status := "OK"
		if !l.Success {
			status = "FAIL"
		}
		table.Append([]string{
			shortID(l.ID),
			l.CreatedAt.Format("2006-01-02 15:04:05"),
			l.Agent,
			l.Duration.String(),
			status,
			truncatePrompt(l.Prompt, 40),
		})
	}
	return table.Render()
}

func logsShowRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	l, err := s.GetAgentLog(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("Agent log %s", l.ID)
	fmt.Fprintf(ui.Out, "  Agent:    %s\n", l.Agent)
	fmt.Fprintf(ui.Out, "  Time:     %s\n", l.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(ui.Out, "  Duration: %s\n", l.Duration)
	if l.Success {
		fmt.Fprintf(ui.Out, "  Status:   OK\n")
	} else {
		fmt.Fprintf(ui.Out, "  Status:   FAIL (%s)\n", l.Error)
	}
	fmt.Fprintf(ui.Out, "\nPrompt:\n%s\n", l.Prompt)
	if l.Output != "" {
		fmt.Fprintf(ui.Out, "\nOutput:\n%s\n", l.Output)
	}
	return nil
}

func logsStatsRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	stats, err := s.AgentLogStats(ctx)
	if err != nil {
		return err
	}
	if stats.Total == 0 {
		ui.Info("No agent invocations recorded")
		return nil
	}

	ui.Info("Agent invocations: %d total, %d succeeded", stats.Total, stats.Succeeded)

	agents := make([]string, 0, len(stats.ByAgent))
	for a := range stats.ByAgent {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	for _, a := range agents {
		fmt.Fprintf(ui.Out, "  %s: %d\n", a, stats.ByAgent[a])
	}
	return nil
}

// truncatePrompt flattens a prompt to one line of at most max runes.
func truncatePrompt(p string, max int) string {
	p = strings.Join(strings.Fields(p), " ")
	r := []rune(p)
	if len(r) <= max {
		return p
	}
	return string(r[:max-3]) + "..."
}
