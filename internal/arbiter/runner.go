package arbiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gleehq/glee/internal/dispatch"
	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/models"
)

// Recorder receives terminated cycle outcomes for persistence.
type Recorder interface {
	CreateReviewSession(ctx context.Context, session *models.ReviewSession) error
}

// Runner drives full review cycles: it selects agents, invokes the coder for
// drafts and decisions, and feeds the cycle state machine until it terminates.
type Runner struct {
	cfg      Config
	invoker  invoke.Invoker
	selector *dispatch.Selector
	human    HumanDecider
	recorder Recorder // nil disables persistence
}

// NewRunner assembles a runner from its collaborators.
func NewRunner(cfg Config, invoker invoke.Invoker, selector *dispatch.Selector, human HumanDecider, recorder Recorder) *Runner {
	return &Runner{
		cfg:      cfg,
		invoker:  invoker,
		selector: selector,
		human:    human,
		recorder: recorder,
	}
}

// Run executes one review cycle for the task against the connected agents and
// records the outcome. With arbitrate disabled, mandatory rejections resolve
// by discard instead of going to the judge or a human.
func (r *Runner) Run(ctx context.Context, projectID, task, domain string, agents []models.Agent, arbitrate bool) (*models.ReviewSession, error) {
	coder, err := r.selector.SelectCoder(agents, domain)
	if err != nil {
		return nil, fmt.Errorf("select coder: %w", err)
	}
	reviewers, err := r.selector.Select(agents, models.RoleReviewer, r.cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("select reviewers: %w", err)
	}

	var judge *models.Agent
	if j, ok := dispatch.Judge(agents); ok {
		judge = &j
	}

	cfg := r.cfg
	if !arbitrate {
		cfg.DisputePath = models.PathDiscard
	}

	resolver, err := NewResolver(judge, r.invoker, r.human, cfg)
	if err != nil {
		return nil, err
	}

	cycle := NewCycle(cfg, r.invoker, resolver)
	if err := cycle.Start(task, coder, reviewers); err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	var rework []models.ReviewItem

	for {
		draft, err := r.invokeCoder(ctx, coder, BuildDraftPrompt(task, cycle.Iteration(), rework))
		if err != nil {
			cycle.Abort()
			_ = r.record(ctx, projectID, task, coder, reviewers, cycle, startedAt)
			return nil, fmt.Errorf("coder %s failed, no code to review: %w", coder.Name, err)
		}

		items, err := cycle.SubmitDraft(ctx, draft)
		if err != nil {
			return nil, err
		}
		if cycle.Status().Terminal() {
			break
		}

		out, err := r.invokeCoder(ctx, coder, BuildResponsePrompt(items))
		if err != nil {
			cycle.Abort()
			_ = r.record(ctx, projectID, task, coder, reviewers, cycle, startedAt)
			return nil, fmt.Errorf("coder %s failed to respond to review: %w", coder.Name, err)
		}

		if err := cycle.SubmitCoderResponse(ctx, parseCoderDecisions(out)); err != nil {
			if cycle.Status() == models.CycleAborted {
				session := r.sessionFor(projectID, task, coder, reviewers, cycle, startedAt)
				if r.recorder != nil {
					_ = r.recorder.CreateReviewSession(ctx, session)
				}
				return session, err
			}
			return nil, err
		}
		if cycle.Status().Terminal() {
			break
		}

		rework = reworkItems(cycle)
		if err := cycle.AdvanceIteration(); err != nil {
			return nil, err
		}
		if cycle.Status().Terminal() {
			break
		}
	}

	session := r.sessionFor(projectID, task, coder, reviewers, cycle, startedAt)
	if r.recorder != nil {
		if err := r.recorder.CreateReviewSession(ctx, session); err != nil {
			return session, fmt.Errorf("record review session: %w", err)
		}
	}
	return session, nil
}

// invokeCoder runs the coder with one retry. A coder that still fails is
// fatal to the cycle, unlike reviewers.
func (r *Runner) invokeCoder(ctx context.Context, coder models.Agent, prompt string) (string, error) {
	req := invoke.Request{Agent: coder, Prompt: prompt, Dir: r.cfg.Dir, Timeout: r.cfg.Timeout}
	res, err := r.invoker.Invoke(ctx, req)
	if err != nil {
		res, err = r.invoker.Invoke(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (r *Runner) record(ctx context.Context, projectID, task string, coder models.Agent, reviewers []models.Agent, cycle *Cycle, startedAt time.Time) error {
	if r.recorder == nil {
		return nil
	}
	return r.recorder.CreateReviewSession(ctx, r.sessionFor(projectID, task, coder, reviewers, cycle, startedAt))
}

func (r *Runner) sessionFor(projectID, task string, coder models.Agent, reviewers []models.Agent, cycle *Cycle, startedAt time.Time) *models.ReviewSession {
	outcome := cycle.Outcome()
	names := make([]string, len(reviewers))
	for i, a := range reviewers {
		names[i] = a.Name
	}
	warnings := outcome.Warnings
	if outcome.Status == models.CycleExhausted {
		for _, it := range cycle.UnresolvedMandatory() {
			warnings = append(warnings, fmt.Sprintf("unresolved mandatory item %s [%s]: %s", it.ID, it.Severity, it.Text))
		}
	}
	endedAt := time.Now().UTC()
	return &models.ReviewSession{
		ProjectID:   projectID,
		Target:      task,
		Coder:       coder.Name,
		Reviewers:   names,
		Status:      outcome.Status,
		Iterations:  outcome.IterationCount,
		Resolutions: outcome.Resolutions,
		Warnings:    warnings,
		StartedAt:   startedAt,
		EndedAt:     &endedAt,
	}
}

// reworkItems collects the current iteration's items the coder must apply in
// the next draft: everything resolved Applied or Enforced.
func reworkItems(cycle *Cycle) []models.ReviewItem {
	var out []models.ReviewItem
	for _, it := range cycle.CurrentItems() {
		if r, ok := cycle.resolved[it.ID]; ok {
			if r.Action == models.ActionApplied || r.Action == models.ActionEnforced {
				out = append(out, it)
			}
		}
	}
	return out
}

// parseCoderDecisions parses ACCEPT/REJECT lines from the coder's response.
// Unknown lines are ignored; items not mentioned default to accept when the
// cycle processes the decisions.
func parseCoderDecisions(out string) map[string]Decision {
	decisions := make(map[string]Decision)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}

		verdict := strings.ToUpper(fields[0])
		id := strings.SplitN(fields[1], ":", 2)[0]
		switch verdict {
		case "ACCEPT":
			decisions[id] = Decision{Verdict: models.DecisionAccept}
		case "REJECT":
			objection := ""
			if idx := strings.Index(line, ":"); idx >= 0 && idx < len(line)-1 {
				objection = strings.TrimSpace(line[idx+1:])
			}
			decisions[id] = Decision{Verdict: models.DecisionReject, Objection: objection}
		}
	}
	return decisions
}
