// Package arbiter implements the multi-agent review arbitration engine: one
// review cycle from draft through reviewer feedback, coder response, dispute
// detection, and arbitration.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gleehq/glee/internal/classify"
	"github.com/gleehq/glee/internal/dispatch"
	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/models"
)

// Decision is the coder's verdict on one review item.
type Decision struct {
	Verdict   models.CoderDecision
	Objection string
}

// Cycle drives one review loop to completion or exhaustion. It owns the loop
// state exclusively; concurrent reviewer and dispute work never shares mutable
// state with the caller.
type Cycle struct {
	cfg      Config
	invoker  invoke.Invoker
	resolver *Resolver

	mu sync.Mutex // guards warnings, written from reviewer and resolver goroutines

	status    models.CycleStatus
	iteration int
	rounds    int // completed draft rounds, reported in the outcome
	task      string
	coder     models.Agent
	reviewers []models.Agent
	draft     string

	items    []models.ReviewItem // every item produced, across iterations
	current  []int               // indexes into items for the current iteration
	resolved map[string]models.Resolution
	disputes []*models.Dispute // disputes of the current iteration
	warnings []string
}

// NewCycle creates an idle cycle in the Pending state.
func NewCycle(cfg Config, invoker invoke.Invoker, resolver *Resolver) *Cycle {
	c := &Cycle{
		cfg:      cfg,
		invoker:  invoker,
		resolver: resolver,
		status:   models.CyclePending,
		resolved: make(map[string]models.Resolution),
	}
	if resolver != nil {
		resolver.SetWarnFunc(c.warnf)
	}
	return c
}

// Start validates the participants and transitions Pending -> Drafting.
func (c *Cycle) Start(task string, coder models.Agent, reviewers []models.Agent) error {
	if c.status != models.CyclePending {
		return fmt.Errorf("%w: start in %s", ErrInvalidState, c.status)
	}
	if len(reviewers) == 0 {
		return ErrNoReviewers
	}
	if len(reviewers) > c.cfg.MaxReviewers {
		return fmt.Errorf("%w: %d reviewers, cap is %d", ErrTooManyReviewers, len(reviewers), c.cfg.MaxReviewers)
	}

	c.task = task
	c.coder = coder
	c.reviewers = reviewers
	c.status = models.CycleDrafting
	return nil
}

// SubmitDraft sends the coder's draft to the reviewers and classifies their
// feedback. Reviewers run in parallel when the dispatch strategy is "all",
// sequentially otherwise; results are merged in candidate order only after
// every invocation completes. A clean review (zero items) completes the cycle.
func (c *Cycle) SubmitDraft(ctx context.Context, draft string) ([]models.ReviewItem, error) {
	if c.status != models.CycleDrafting {
		return nil, fmt.Errorf("%w: submit_draft in %s", ErrInvalidState, c.status)
	}
	c.status = models.CycleReviewing
	c.draft = draft

	outputs := make([]string, len(c.reviewers))
	if c.cfg.Strategy == dispatch.StrategyAll && len(c.reviewers) > 1 {
		var wg sync.WaitGroup
		for i := range c.reviewers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outputs[i] = c.invokeReviewer(ctx, c.reviewers[i])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range c.reviewers {
			outputs[i] = c.invokeReviewer(ctx, c.reviewers[i])
		}
	}

	c.current = c.current[:0]
	for i, out := range outputs {
		name := c.reviewers[i].Name
		items, err := classify.Classify(out, name)
		if errors.Is(err, classify.ErrMalformedReviewOutput) {
			// Policy: degrade untagged output to one SHOULD opinion
			// instead of losing it.
			c.warnf("reviewer %s output had no severity tags, kept as one SHOULD opinion", name)
			items = []models.ReviewItem{classify.Unclassified(out, name)}
			err = nil
		}
		if err != nil {
			c.warnf("reviewer %s output could not be classified, treating feedback as empty: %v", name, err)
			continue
		}
		for _, it := range items {
			it.ID = fmt.Sprintf("i%d-%s", c.iteration+1, it.ID)
			c.items = append(c.items, it)
			c.current = append(c.current, len(c.items)-1)
		}
	}

	c.rounds++
	if len(c.current) == 0 {
		c.status = models.CycleCompleted
		return nil, nil
	}
	c.status = models.CycleAwaitingCoderResponse
	return c.CurrentItems(), nil
}

// invokeReviewer runs one reviewer, retrying once with identical input.
// A reviewer that still fails contributes empty feedback and a warning; it
// never aborts the cycle.
func (c *Cycle) invokeReviewer(ctx context.Context, a models.Agent) string {
	req := invoke.Request{
		Agent:   a,
		Prompt:  BuildReviewerPrompt(c.task, c.draft, a.Focus),
		Dir:     c.cfg.Dir,
		Timeout: c.cfg.Timeout,
	}

	res, err := c.invoker.Invoke(ctx, req)
	if err != nil {
		res, err = c.invoker.Invoke(ctx, req)
	}
	if err != nil {
		c.warnf("reviewer %s failed after retry, treating feedback as empty: %v", a.Name, err)
		return ""
	}
	return res.Text
}

// SubmitCoderResponse records the coder's accept/reject decision for each
// item of the current iteration. Accepts resolve as Applied; rejects of
// optional items resolve as Discarded; rejects of mandatory items open
// disputes, which are arbitrated before the call returns. Items without a
// decision default to accept. Transitions AwaitingCoderResponse -> Resolving.
func (c *Cycle) SubmitCoderResponse(ctx context.Context, decisions map[string]Decision) error {
	if c.status != models.CycleAwaitingCoderResponse {
		return fmt.Errorf("%w: submit_coder_response in %s", ErrInvalidState, c.status)
	}
	c.status = models.CycleResolving
	c.disputes = nil

	for _, idx := range c.current {
		it := &c.items[idx]
		dec, ok := decisions[it.ID]
		if !ok {
			dec = Decision{Verdict: models.DecisionAccept}
		}

		if d := Detect(it, dec.Verdict, dec.Objection); d != nil {
			c.disputes = append(c.disputes, d)
			continue
		}
		if dec.Verdict == models.DecisionReject {
			c.resolved[it.ID] = models.Resolution{ItemID: it.ID, Action: models.ActionDiscarded, DecidedBy: models.DecidedByCoder}
			continue
		}
		c.resolved[it.ID] = models.Resolution{ItemID: it.ID, Action: models.ActionApplied, DecidedBy: models.DecidedByCoder}
	}

	if len(c.disputes) == 0 {
		return nil
	}
	return c.resolveDisputes(ctx)
}

// resolveDisputes arbitrates every open dispute of the iteration. Disputes
// resolve concurrently (independent judge/human calls), and the iteration
// cannot advance until each reaches a terminal resolution.
func (c *Cycle) resolveDisputes(ctx context.Context) error {
	results := make([]models.Resolution, len(c.disputes))
	errs := make([]error, len(c.disputes))

	var wg sync.WaitGroup
	for i, d := range c.disputes {
		wg.Add(1)
		go func(i int, d *models.Dispute) {
			defer wg.Done()
			results[i], errs[i] = c.resolver.Resolve(ctx, d, c.cfg.DisputePath, c.draft)
		}(i, d)
	}
	wg.Wait()

	var firstErr error
	for i, err := range errs {
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("resolve dispute for item %s: %w", c.disputes[i].Item.ID, err)
			}
			continue
		}
		c.resolved[results[i].ItemID] = results[i]
	}

	if firstErr != nil {
		// Operator cancellation while awaiting a human decision aborts the
		// cycle; other failures keep it in Resolving so no mandatory item's
		// disposition is silently changed.
		if errors.Is(firstErr, context.Canceled) {
			c.status = models.CycleAborted
		}
		return firstErr
	}
	return nil
}

// AdvanceIteration moves Resolving -> Drafting for the next round. At the
// iteration cap the cycle terminates instead: Completed when every mandatory
// item has a terminal resolution (Applied, Enforced, or Discarded), Exhausted
// when any is still without one.
func (c *Cycle) AdvanceIteration() error {
	if c.status != models.CycleResolving {
		return fmt.Errorf("%w: advance_iteration in %s", ErrInvalidState, c.status)
	}
	for _, d := range c.disputes {
		if !d.Terminal() {
			return ErrUnresolvedDisputes
		}
	}

	if c.iteration+1 >= c.cfg.MaxIterations {
		if len(c.UnresolvedMandatory()) > 0 {
			c.status = models.CycleExhausted
		} else {
			c.status = models.CycleCompleted
		}
		return nil
	}

	c.iteration++
	c.status = models.CycleDrafting
	return nil
}

// Abort cancels a running cycle. Terminal states never change.
func (c *Cycle) Abort() {
	if !c.status.Terminal() {
		c.status = models.CycleAborted
	}
}

// UnresolvedMandatory returns the mandatory items of the current iteration
// that have no terminal resolution. Applied, Enforced, and Discarded all
// settle an item.
func (c *Cycle) UnresolvedMandatory() []models.ReviewItem {
	var out []models.ReviewItem
	for _, idx := range c.current {
		it := c.items[idx]
		if !it.Mandatory() {
			continue
		}
		if _, ok := c.resolved[it.ID]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// CurrentItems returns the items of the current iteration.
func (c *Cycle) CurrentItems() []models.ReviewItem {
	out := make([]models.ReviewItem, 0, len(c.current))
	for _, idx := range c.current {
		out = append(out, c.items[idx])
	}
	return out
}

// Status returns the cycle state.
func (c *Cycle) Status() models.CycleStatus { return c.status }

// Iteration returns the zero-based index of the current round.
func (c *Cycle) Iteration() int { return c.iteration }

// Warnings returns the degradation warnings collected so far.
func (c *Cycle) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.warnings))
	copy(out, c.warnings)
	return out
}

// Outcome assembles the session recorder payload: iteration count, final
// status, one resolution per resolved item in production order, and warnings.
func (c *Cycle) Outcome() models.CycleOutcome {
	resolutions := make([]models.Resolution, 0, len(c.resolved))
	for _, it := range c.items {
		if r, ok := c.resolved[it.ID]; ok {
			resolutions = append(resolutions, r)
		}
	}
	return models.CycleOutcome{
		IterationCount: c.rounds,
		Status:         c.status,
		Resolutions:    resolutions,
		Warnings:       c.Warnings(),
	}
}

func (c *Cycle) warnf(format string, args ...any) {
	c.mu.Lock()
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	c.mu.Unlock()
}
