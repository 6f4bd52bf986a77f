package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage glee configuration.

Global settings live in ~/.config/glee/config.yaml (or GLEE_* env vars).
Per-project dispatch and arbitration settings live in .glee/config.yml and
are managed with 'glee config set'.

Running bare 'glee config' is the same as 'glee config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get one project config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configGetRun(args[0])
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a project config value",
	Long: `Set a per-project config value in .glee/config.yml.

Supported keys:
  dispatch.coder              first | random | round-robin
  dispatch.reviewer           first | random | round-robin | all
  arbitration.max_iterations  positive integer
  arbitration.max_reviewers   positive integer
  arbitration.dispute_path    judge | human | discard
  arbitration.escalate_to     human | discard
  arbitration.timeout_seconds positive integer`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetRun(args[0], args[1])
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configKeyInfo describes a global config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "GLEE_STATE_DIR"},
	{Key: "db_path", EnvVar: "GLEE_DB_PATH"},
	{Key: "dispatch.coder", EnvVar: "GLEE_DISPATCH_CODER"},
	{Key: "dispatch.reviewer", EnvVar: "GLEE_DISPATCH_REVIEWER"},
	{Key: "arbitration.max_iterations", EnvVar: "GLEE_ARBITRATION_MAX_ITERATIONS"},
	{Key: "arbitration.max_reviewers", EnvVar: "GLEE_ARBITRATION_MAX_REVIEWERS"},
	{Key: "arbitration.dispute_path", EnvVar: "GLEE_ARBITRATION_DISPUTE_PATH"},
	{Key: "arbitration.escalate_to", EnvVar: "GLEE_ARBITRATION_ESCALATE_TO"},
	{Key: "arbitration.timeout", EnvVar: "GLEE_ARBITRATION_TIMEOUT"},
	{Key: "anthropic.model", EnvVar: "GLEE_ANTHROPIC_MODEL"},
}

func configShowRun() error {
	cfgPath := filepath.Join(viper.GetString("state_dir"), "config.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Global config file: %s", cfgPath)
	} else {
		ui.Info("Global config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)
	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-30s %v  %s\n", k.Key, val, source)
	}

	// Project overrides, if we're inside an initialized project.
	cfg, _, err := loadProject()
	if err != nil {
		return nil
	}
	fmt.Fprintln(ui.Out)
	ui.Info("Project overrides (.glee/config.yml):")
	fmt.Fprintf(ui.Out, "  %-30s %s\n", "dispatch.coder", cfg.Dispatch.Coder)
	fmt.Fprintf(ui.Out, "  %-30s %s\n", "dispatch.reviewer", cfg.Dispatch.Reviewer)
	if cfg.Arbitration.MaxIterations > 0 {
		fmt.Fprintf(ui.Out, "  %-30s %d\n", "arbitration.max_iterations", cfg.Arbitration.MaxIterations)
	}
	if cfg.Arbitration.MaxReviewers > 0 {
		fmt.Fprintf(ui.Out, "  %-30s %d\n", "arbitration.max_reviewers", cfg.Arbitration.MaxReviewers)
	}
	if cfg.Arbitration.DisputePath != "" {
		fmt.Fprintf(ui.Out, "  %-30s %s\n", "arbitration.dispute_path", cfg.Arbitration.DisputePath)
	}
	if cfg.Arbitration.EscalateTo != "" {
		fmt.Fprintf(ui.Out, "  %-30s %s\n", "arbitration.escalate_to", cfg.Arbitration.EscalateTo)
	}
	if cfg.Arbitration.TimeoutSeconds > 0 {
		fmt.Fprintf(ui.Out, "  %-30s %d\n", "arbitration.timeout_seconds", cfg.Arbitration.TimeoutSeconds)
	}
	return nil
}

func configGetRun(key string) error {
	cfg, _, err := loadProject()
	if err != nil {
		return err
	}

	switch key {
	case "dispatch.coder":
		fmt.Fprintln(ui.Out, cfg.Dispatch.Coder)
	case "dispatch.reviewer":
		fmt.Fprintln(ui.Out, cfg.Dispatch.Reviewer)
	case "arbitration.max_iterations":
		fmt.Fprintln(ui.Out, cfg.Arbitration.MaxIterations)
	case "arbitration.max_reviewers":
		fmt.Fprintln(ui.Out, cfg.Arbitration.MaxReviewers)
	case "arbitration.dispute_path":
		fmt.Fprintln(ui.Out, cfg.Arbitration.DisputePath)
	case "arbitration.escalate_to":
		fmt.Fprintln(ui.Out, cfg.Arbitration.EscalateTo)
	case "arbitration.timeout_seconds":
		fmt.Fprintln(ui.Out, cfg.Arbitration.TimeoutSeconds)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func configSetRun(key, value string) error {
	cfg, cwd, err := loadProject()
	if err != nil {
		return err
	}

	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s requires a positive integer, got %q", key, value)
		}
		return n, nil
	}

	switch key {
	case "dispatch.coder":
		cfg.Dispatch.Coder = value
	case "dispatch.reviewer":
		cfg.Dispatch.Reviewer = value
	case "arbitration.max_iterations":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Arbitration.MaxIterations = n
	case "arbitration.max_reviewers":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Arbitration.MaxReviewers = n
	case "arbitration.dispute_path":
		if value != "judge" && value != "human" && value != "discard" {
			return fmt.Errorf("dispute_path must be judge, human, or discard")
		}
		cfg.Arbitration.DisputePath = value
	case "arbitration.escalate_to":
		if value == "judge" {
			return fmt.Errorf("escalation target cannot be the judge")
		}
		if value != "human" && value != "discard" {
			return fmt.Errorf("escalate_to must be human or discard")
		}
		cfg.Arbitration.EscalateTo = value
	case "arbitration.timeout_seconds":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.Arbitration.TimeoutSeconds = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if dryRun {
		ui.DryRunMsg("Would set %s = %s", key, value)
		return nil
	}
	if err := cfg.Save(cwd); err != nil {
		return err
	}
	ui.Success("Set %s = %s", key, value)
	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

func flattenKeys(prefix string, m map[string]any, out map[string]bool) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenKeys(key, nested, out)
			continue
		}
		out[key] = true
	}
}

// detectSource reports where a config value came from: env, file, or default.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if os.Getenv(envVar) != "" {
		return "(env " + envVar + ")"
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}
