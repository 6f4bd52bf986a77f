// Package invoke runs agents and normalizes their results. The engine never
// inspects exit codes or transport details directly; it sees only Result or a
// typed Error.
package invoke

import (
	"context"
	"fmt"
	"time"

	"github.com/gleehq/glee/internal/models"
)

// ErrorKind classifies an invocation failure.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindNonZeroExit ErrorKind = "non_zero_exit"
	KindNotFound    ErrorKind = "not_found"
)

// Error is a normalized invocation failure.
type Error struct {
	Kind  ErrorKind
	Agent string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invoke %s: %s: %v", e.Agent, e.Kind, e.Err)
	}
	return fmt.Sprintf("invoke %s: %s", e.Agent, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the captured output of a successful invocation.
type Result struct {
	Text string
}

// Request describes one agent invocation.
type Request struct {
	Agent   models.Agent
	Prompt  string
	Dir     string        // working directory; empty means inherit
	Timeout time.Duration // per-call deadline; zero means no limit beyond ctx
}

// Invoker runs an agent with a prompt and returns its captured output.
// Implementations must map failures to *Error with the right kind.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}
