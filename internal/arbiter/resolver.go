package arbiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/models"
)

// HumanDecider obtains an external human decision on a dispute. Decide blocks
// until a decision arrives or ctx is cancelled; apply=true upholds the item.
type HumanDecider interface {
	Decide(ctx context.Context, d *models.Dispute) (apply bool, err error)
}

// Resolver arbitrates disputes via judge, human, or discard.
type Resolver struct {
	judge      *models.Agent // nil when no judge is connected
	invoker    invoke.Invoker
	human      HumanDecider
	escalateTo models.ResolutionPath
	timeout    time.Duration
	dir        string
	warn       func(format string, args ...any) // may be nil
}

// NewResolver builds a resolver. The escalation target is validated here,
// before any invocation can happen: escalating judge verdicts back to the
// judge would recurse forever.
func NewResolver(judge *models.Agent, invoker invoke.Invoker, human HumanDecider, cfg Config) (*Resolver, error) {
	escalateTo := cfg.EscalateTo
	if escalateTo == "" {
		escalateTo = models.PathHuman
	}
	if escalateTo == models.PathJudge {
		return nil, ErrInvalidEscalationConfig
	}
	return &Resolver{
		judge:      judge,
		invoker:    invoker,
		human:      human,
		escalateTo: escalateTo,
		timeout:    cfg.Timeout,
		dir:        cfg.Dir,
	}, nil
}

// SetWarnFunc registers a sink for degradation warnings (judge dropout,
// escalations). The sink must be safe for concurrent use.
func (r *Resolver) SetWarnFunc(fn func(format string, args ...any)) {
	r.warn = fn
}

// Resolve arbitrates one dispute along path and collapses it into a
// Resolution. Resolving an already-terminal dispute is a state error, never a
// silent recompute.
func (r *Resolver) Resolve(ctx context.Context, d *models.Dispute, path models.ResolutionPath, code string) (models.Resolution, error) {
	if d.Terminal() {
		return models.Resolution{}, fmt.Errorf("%w: item %s", ErrDisputeResolved, d.Item.ID)
	}

	for {
		d.Path = path

		switch path {
		case models.PathDiscard:
			d.Outcome = models.OutcomeDismiss
			return models.Resolution{ItemID: d.Item.ID, Action: models.ActionDiscarded, DecidedBy: models.DecidedByCoder}, nil

		case models.PathHuman:
			if r.human == nil {
				return models.Resolution{}, ErrNoHumanDecider
			}
			apply, err := r.human.Decide(ctx, d)
			if err != nil {
				return models.Resolution{}, fmt.Errorf("human decision for item %s: %w", d.Item.ID, err)
			}
			if apply {
				d.Outcome = models.OutcomeEnforce
				return models.Resolution{ItemID: d.Item.ID, Action: models.ActionEnforced, DecidedBy: models.DecidedByHuman}, nil
			}
			d.Outcome = models.OutcomeDismiss
			return models.Resolution{ItemID: d.Item.ID, Action: models.ActionDiscarded, DecidedBy: models.DecidedByHuman}, nil

		case models.PathJudge:
			verdict, err := r.invokeJudge(ctx, d, code)
			if err != nil {
				if ctx.Err() != nil {
					return models.Resolution{}, fmt.Errorf("judge invocation for item %s: %w", d.Item.ID, ctx.Err())
				}
				// Judge failure is never dropped; it escalates.
				r.warnf("judge unavailable for item %s, escalating to %s: %v", d.Item.ID, r.escalateTo, err)
				d.Outcome = models.OutcomeEscalate
				path = r.escalateTo
				continue
			}
			switch verdict {
			case models.OutcomeEnforce:
				d.Outcome = models.OutcomeEnforce
				return models.Resolution{ItemID: d.Item.ID, Action: models.ActionEnforced, DecidedBy: models.DecidedByJudge}, nil
			case models.OutcomeDismiss:
				d.Outcome = models.OutcomeDismiss
				return models.Resolution{ItemID: d.Item.ID, Action: models.ActionDiscarded, DecidedBy: models.DecidedByJudge}, nil
			default: // escalate
				r.warnf("judge escalated item %s to %s", d.Item.ID, r.escalateTo)
				d.Outcome = models.OutcomeEscalate
				path = r.escalateTo
				continue
			}

		default:
			return models.Resolution{}, fmt.Errorf("unknown resolution path: %s", path)
		}
	}
}

// invokeJudge runs the judge agent on the dispute and parses the verdict
// token. A missing judge counts as an invocation failure.
func (r *Resolver) invokeJudge(ctx context.Context, d *models.Dispute, code string) (models.DisputeOutcome, error) {
	if r.judge == nil {
		return "", fmt.Errorf("no judge agent connected")
	}

	res, err := r.invoker.Invoke(ctx, invoke.Request{
		Agent:   *r.judge,
		Prompt:  BuildJudgePrompt(d, code),
		Dir:     r.dir,
		Timeout: r.timeout,
	})
	if err != nil {
		return "", err
	}
	return parseJudgeVerdict(res.Text)
}

// parseJudgeVerdict finds the first ENFORCE/DISMISS/ESCALATE token in the
// judge output. Anything else is a failed invocation.
func parseJudgeVerdict(output string) (models.DisputeOutcome, error) {
	for _, field := range strings.Fields(output) {
		switch strings.Trim(strings.ToUpper(field), ".,:;!") {
		case "ENFORCE":
			return models.OutcomeEnforce, nil
		case "DISMISS":
			return models.OutcomeDismiss, nil
		case "ESCALATE":
			return models.OutcomeEscalate, nil
		}
	}
	return "", fmt.Errorf("no decision token in judge output")
}

func (r *Resolver) warnf(format string, args ...any) {
	if r.warn != nil {
		r.warn(format, args...)
	}
}
