package invoke

import "context"

// Router picks the transport per agent: API-backed agents (Model set) go to
// the API invoker, everything else runs as a CLI subprocess.
type Router struct {
	CLI Invoker
	API Invoker
}

// NewRouter builds the default production router.
func NewRouter(apiKey string) *Router {
	return &Router{
		CLI: NewCLIInvoker(),
		API: NewAnthropicInvoker(apiKey),
	}
}

// Invoke dispatches to the transport matching the agent.
func (r *Router) Invoke(ctx context.Context, req Request) (Result, error) {
	if req.Agent.Model != "" {
		return r.API.Invoke(ctx, req)
	}
	return r.CLI.Invoke(ctx, req)
}
