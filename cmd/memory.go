package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gleehq/glee/internal/models"
)

var (
	memoryCategory string
	memoryLimit    int
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Capture and search project memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return memoryListRun(cmd.Context())
	},
}

var memoryAddCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Capture a project memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return memoryAddRun(cmd.Context(), args[0])
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search project memories by substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return memorySearchRun(cmd.Context(), args[0])
	},
}

var memoryListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List project memories, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return memoryListRun(cmd.Context())
	},
}

func init() {
	memoryAddCmd.Flags().StringVar(&memoryCategory, "category", "", "Category label (decision, convention, gotcha)")
	memorySearchCmd.Flags().IntVar(&memoryLimit, "limit", 20, "Max results")
	memoryListCmd.Flags().IntVar(&memoryLimit, "limit", 20, "Max results")

	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryListCmd)
	rootCmd.AddCommand(memoryCmd)
}

func memoryAddRun(ctx context.Context, content string) error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would capture memory: %s", content)
		return nil
	}

	m := &models.Memory{
		ProjectID: cfg.Project.ID,
		Category:  memoryCategory,
		Content:   content,
	}
	if err := s.AddMemory(ctx, m); err != nil {
		return err
	}
	ui.Success("Captured memory %s", shortID(m.ID))
	return nil
}

func memorySearchRun(ctx context.Context, query string) error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	memories, err := s.SearchMemories(ctx, cfg.Project.ID, query, memoryLimit)
	if err != nil {
		return err
	}
	return printMemories(memories)
}

func memoryListRun(ctx context.Context) error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	memories, err := s.ListMemories(ctx, cfg.Project.ID, memoryLimit)
	if err != nil {
		return err
	}
	return printMemories(memories)
}

func printMemories(memories []*models.Memory) error {
	if len(memories) == 0 {
		ui.Info("No memories found")
		return nil
	}

	table := ui.Table([]string{"ID", "Category", "Content", "Created"})
	for _, m := range memories {
		table.Append([]string{
			shortID(m.ID),
			m.Category,
			m.Content,
			m.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}
