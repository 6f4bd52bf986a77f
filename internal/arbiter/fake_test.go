package arbiter

import (
	"context"
	"sync"

	"github.com/gleehq/glee/internal/invoke"
	"github.com/gleehq/glee/internal/models"
)

// fakeInvoker serves scripted responses per agent name, consumed in order.
// The last response repeats once the queue drains.
type fakeInvoker struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	calls     map[string]int
	prompts   map[string][]string
}

type fakeResponse struct {
	text string
	err  error
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		responses: make(map[string][]fakeResponse),
		calls:     make(map[string]int),
		prompts:   make(map[string][]string),
	}
}

func (f *fakeInvoker) script(agent string, responses ...fakeResponse) {
	f.responses[agent] = append(f.responses[agent], responses...)
}

func (f *fakeInvoker) Invoke(ctx context.Context, req invoke.Request) (invoke.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := req.Agent.Name
	f.calls[name]++
	f.prompts[name] = append(f.prompts[name], req.Prompt)

	queue := f.responses[name]
	if len(queue) == 0 {
		return invoke.Result{}, &invoke.Error{Kind: invoke.KindNotFound, Agent: name}
	}
	next := queue[0]
	if len(queue) > 1 {
		f.responses[name] = queue[1:]
	}
	if next.err != nil {
		return invoke.Result{}, next.err
	}
	return invoke.Result{Text: next.text}, nil
}

func (f *fakeInvoker) callCount(agent string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[agent]
}

func text(s string) fakeResponse { return fakeResponse{text: s} }

func timeoutErr(agent string) fakeResponse {
	return fakeResponse{err: &invoke.Error{Kind: invoke.KindTimeout, Agent: agent, Err: context.DeadlineExceeded}}
}

// humanFunc adapts a function to the HumanDecider interface.
type humanFunc func(ctx context.Context, d *models.Dispute) (bool, error)

func (f humanFunc) Decide(ctx context.Context, d *models.Dispute) (bool, error) {
	return f(ctx, d)
}

func mustItem(id, text string) *models.ReviewItem {
	return &models.ReviewItem{
		ID:             id,
		Kind:           models.KindOpinion,
		Severity:       models.SeverityMust,
		Text:           text,
		SourceReviewer: "rev1",
	}
}

func agentWith(name string, roles ...models.Role) models.Agent {
	return models.Agent{Name: name, Command: name, Roles: roles}
}
