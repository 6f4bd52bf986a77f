package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gleehq/glee/internal/arbiter"
	"github.com/gleehq/glee/internal/config"
	"github.com/gleehq/glee/internal/dispatch"
	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/models"
	"github.com/gleehq/glee/internal/output"
)

var (
	reviewArbitrate bool
	reviewDomain    string
	reviewFocus     string
)

var reviewCmd = &cobra.Command{
	Use:   "review <target>",
	Short: "Run a review cycle on a file, directory, or git changes",
	Long: `Run one multi-agent review cycle.

The target is a file path, a directory, or a git pseudo-target:

  glee review main.go
  glee review internal/parser
  glee review git:changes   (unstaged working tree diff)
  glee review git:staged    (staged diff)

The selected coder drafts the rework, reviewers respond with tagged
feedback, and mandatory rejections are arbitrated. Exits 0 when the
cycle completes, nonzero when it is exhausted or aborted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), args[0])
	},
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewArbitrate, "arbitrate", true, "Arbitrate disputes via the configured judge or human")
	reviewCmd.Flags().StringVar(&reviewDomain, "domain", "", "Domain hint for coder selection")
	reviewCmd.Flags().StringVar(&reviewFocus, "focus", "", "Extra focus instruction passed to reviewers")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, target string) error {
	cfg, cwd, err := loadProject()
	if err != nil {
		return err
	}
	if len(cfg.Agents) == 0 {
		return fmt.Errorf("no agents connected, run 'glee agent connect' first")
	}

	material, err := resolveTarget(cwd, target)
	if err != nil {
		return err
	}

	task := buildTask(target, material, reviewFocus)

	if dryRun {
		ui.DryRunMsg("Would review %s with %d agent(s)", target, len(cfg.Agents))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	acfg := engineConfig(cfg, cwd)
	invoker := invoke.NewLogged(invoke.NewRouter(viper.GetString("anthropic.api_key")), s, cfg.Project.ID)
	runner := arbiter.NewRunner(acfg, invoker, dispatch.NewSelector(), stdinDecider{in: os.Stdin, out: os.Stderr}, s)

	ui.Info("Reviewing %s", output.Cyan(target))
	session, err := runner.Run(ctx, cfg.Project.ID, task, reviewDomain, cfg.Agents, reviewArbitrate)
	if session != nil {
		printSession(session)
	}
	if err != nil {
		return err
	}
	if session.Status != models.CycleCompleted {
		return fmt.Errorf("review %s", session.Status)
	}
	return nil
}

// engineConfig merges viper defaults with the project's arbitration section.
func engineConfig(cfg *config.Config, dir string) arbiter.Config {
	acfg := arbiter.DefaultConfig()
	acfg.Dir = dir

	if cfg.Dispatch.Reviewer != "" {
		acfg.Strategy = dispatch.Strategy(cfg.Dispatch.Reviewer)
	}
	arb := cfg.Arbitration
	if arb.MaxIterations > 0 {
		acfg.MaxIterations = arb.MaxIterations
	}
	if arb.MaxReviewers > 0 {
		acfg.MaxReviewers = arb.MaxReviewers
	}
	if arb.DisputePath != "" {
		acfg.DisputePath = models.ResolutionPath(arb.DisputePath)
	}
	if arb.EscalateTo != "" {
		acfg.EscalateTo = models.ResolutionPath(arb.EscalateTo)
	}
	if arb.TimeoutSeconds > 0 {
		acfg.Timeout = time.Duration(arb.TimeoutSeconds) * time.Second
	}
	return acfg
}

// resolveTarget turns the target argument into review material.
func resolveTarget(dir, target string) (string, error) {
	switch target {
	case "git:changes":
		return gitDiff(dir)
	case "git:staged":
		return gitDiff(dir, "--cached")
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("target not found: %s", target)
	}
	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			return "", fmt.Errorf("read target directory: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		return fmt.Sprintf("directory %s containing: %s", target, strings.Join(names, ", ")), nil
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("read target: %w", err)
	}
	return string(data), nil
}

func gitDiff(dir string, extra ...string) (string, error) {
	args := append([]string{"diff"}, extra...)
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	if len(strings.TrimSpace(string(out))) == 0 {
		return "", fmt.Errorf("no changes to review")
	}
	return string(out), nil
}

func buildTask(target, material, focus string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review and rework %s.\n\n", target)
	if focus != "" {
		fmt.Fprintf(&b, "Focus: %s\n\n", focus)
	}
	b.WriteString(material)
	return b.String()
}

// stdinDecider asks a human on the terminal to settle a dispute.
type stdinDecider struct {
	in  io.Reader
	out io.Writer
}

func (d stdinDecider) Decide(ctx context.Context, dispute *models.Dispute) (bool, error) {
	fmt.Fprintf(d.out, "\nDispute on %s [%s] from %s:\n  %s\n", dispute.Item.ID, output.SeverityColor(string(dispute.Item.Severity)), dispute.Item.SourceReviewer, dispute.Item.Text)
	fmt.Fprintf(d.out, "Coder objection: %s\n", dispute.CoderObjection)
	fmt.Fprint(d.out, "Apply this item anyway? [y/N] ")

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(d.in).ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return false, a.err
		}
		reply := strings.ToLower(strings.TrimSpace(a.text))
		return reply == "y" || reply == "yes", nil
	}
}

func printSession(session *models.ReviewSession) {
	for _, w := range session.Warnings {
		ui.Warning("%s", w)
	}

	applied, discarded, enforced := 0, 0, 0
	for _, r := range session.Resolutions {
		switch r.Action {
		case models.ActionApplied:
			applied++
		case models.ActionDiscarded:
			discarded++
		case models.ActionEnforced:
			enforced++
		}
	}

	status := output.StatusColor(string(session.Status))
	switch session.Status {
	case models.CycleCompleted:
		ui.Success("Review %s after %d iteration(s): %d applied, %d discarded, %d enforced",
			status, session.Iterations, applied, discarded, enforced)
	default:
		ui.Error("Review %s after %d iteration(s): %d applied, %d discarded, %d enforced",
			status, session.Iterations, applied, discarded, enforced)
	}
}
