package arbiter

import (
	"time"

	"github.com/spf13/viper"

	"github.com/gleehq/glee/internal/dispatch"
	"github.com/gleehq/glee/internal/models"
)

// Config holds arbitration engine settings for one review cycle.
type Config struct {
	MaxIterations int                   // review rounds before the cycle is exhausted
	MaxReviewers  int                   // reviewer cap per cycle
	Strategy      dispatch.Strategy     // reviewer dispatch strategy
	DisputePath   models.ResolutionPath // default resolution path for disputes
	EscalateTo    models.ResolutionPath // where judge ESCALATE verdicts go
	Timeout       time.Duration         // per-invocation deadline
	Dir           string                // working directory for agent invocations
}

// DefaultConfig returns the default arbitration config, reading from viper
// when available.
func DefaultConfig() Config {
	maxIterations := viper.GetInt("arbitration.max_iterations")
	if maxIterations <= 0 {
		maxIterations = 10
	}

	maxReviewers := viper.GetInt("arbitration.max_reviewers")
	if maxReviewers <= 0 {
		maxReviewers = 2
	}

	strategy := dispatch.Strategy(viper.GetString("dispatch.reviewer"))
	if strategy == "" {
		strategy = dispatch.StrategyAll
	}

	disputePath := models.ResolutionPath(viper.GetString("arbitration.dispute_path"))
	if disputePath == "" {
		disputePath = models.PathJudge
	}

	escalateTo := models.ResolutionPath(viper.GetString("arbitration.escalate_to"))
	if escalateTo == "" {
		escalateTo = models.PathHuman
	}

	timeout := viper.GetDuration("arbitration.timeout")
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return Config{
		MaxIterations: maxIterations,
		MaxReviewers:  maxReviewers,
		Strategy:      strategy,
		DisputePath:   disputePath,
		EscalateTo:    escalateTo,
		Timeout:       timeout,
	}
}
