package invoke

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicInvoker runs API-backed agents (Agent.Model set) through the
// Anthropic Messages API instead of a subprocess.
type AnthropicInvoker struct {
	api *anthropic.Client
}

// NewAnthropicInvoker creates an API invoker. An empty apiKey falls back to
// the SDK's environment-based credentials.
func NewAnthropicInvoker(apiKey string) *AnthropicInvoker {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicInvoker{api: &client}
}

// Invoke sends the prompt as a single user message and returns the first text
// block of the response.
func (in *AnthropicInvoker) Invoke(ctx context.Context, req Request) (Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	msg, err := in.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Agent.Model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, &Error{Kind: KindTimeout, Agent: req.Agent.Name, Err: err}
		}
		return Result{}, &Error{Kind: KindNonZeroExit, Agent: req.Agent.Name, Err: err}
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return Result{}, &Error{Kind: KindNonZeroExit, Agent: req.Agent.Name, Err: errors.New("no text content in API response")}
	}

	return Result{Text: text}, nil
}
