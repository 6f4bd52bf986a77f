package invoke

import (
	"context"
	"time"

	"github.com/gleehq/glee/internal/models"
)

// LogSink receives one record per agent invocation.
type LogSink interface {
	AddAgentLog(ctx context.Context, l *models.AgentLog) error
}

// Logged wraps an Invoker and records every invocation (prompt, output,
// error, duration) to a sink. Sink failures never fail the invocation.
type Logged struct {
	inner     Invoker
	sink      LogSink
	projectID string
}

// NewLogged wraps inner so every call is recorded against the project.
func NewLogged(inner Invoker, sink LogSink, projectID string) *Logged {
	return &Logged{inner: inner, sink: sink, projectID: projectID}
}

func (lg *Logged) Invoke(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := lg.inner.Invoke(ctx, req)

	entry := &models.AgentLog{
		ProjectID: lg.projectID,
		Agent:     req.Agent.Name,
		Prompt:    req.Prompt,
		Output:    res.Text,
		Duration:  time.Since(start),
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// Log with a fresh context so a cancelled invocation is still recorded.
	_ = lg.sink.AddAgentLog(context.WithoutCancel(ctx), entry)

	return res, err
}
