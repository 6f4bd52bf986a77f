package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/gleehq/glee/internal/models"
)

// CLIInvoker runs an agent's CLI as a subprocess and captures stdout.
type CLIInvoker struct{}

// NewCLIInvoker returns a subprocess-backed invoker.
func NewCLIInvoker() *CLIInvoker {
	return &CLIInvoker{}
}

// Invoke runs the agent command with the prompt, honoring the request timeout
// and the caller's context. Stderr is folded into the error on failure.
func (in *CLIInvoker) Invoke(ctx context.Context, req Request) (Result, error) {
	if req.Agent.Command == "" {
		return Result{}, &Error{Kind: KindNotFound, Agent: req.Agent.Name, Err: errors.New("agent has no command")}
	}
	if _, err := exec.LookPath(req.Agent.Command); err != nil {
		return Result{}, &Error{Kind: KindNotFound, Agent: req.Agent.Name, Err: err}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := buildArgs(req.Agent, req.Prompt)
	cmd := exec.CommandContext(ctx, req.Agent.Command, args...)
	cmd.Dir = req.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, &Error{Kind: KindTimeout, Agent: req.Agent.Name, Err: ctx.Err()}
		}
		return Result{}, &Error{
			Kind:  KindNonZeroExit,
			Agent: req.Agent.Name,
			Err:   fmt.Errorf("%w: %s", err, firstLine(stderr.String())),
		}
	}

	return Result{Text: stdout.String()}, nil
}

// Available reports whether the agent's CLI is installed on PATH. API-backed
// agents are always available.
func Available(a models.Agent) bool {
	if a.Model != "" {
		return true
	}
	if a.Command == "" {
		return false
	}
	_, err := exec.LookPath(a.Command)
	return err == nil
}

// buildArgs shapes the non-interactive invocation for known agent CLIs.
// Unknown commands get the common `-p <prompt>` shape.
func buildArgs(a models.Agent, prompt string) []string {
	switch filepath.Base(a.Command) {
	case "claude":
		return []string{"-p", prompt, "--output-format", "text"}
	case "codex":
		return []string{"exec", "--full-auto", prompt}
	default:
		return []string{"-p", prompt}
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
