package store

import (
	"context"

	"github.com/gleehq/glee/internal/models"
)

// SessionListFilter specifies filters for listing review sessions.
type SessionListFilter struct {
	ProjectID string
	Status    models.CycleStatus
	Limit     int
}

// AgentLogFilter specifies filters for listing agent invocation logs.
type AgentLogFilter struct {
	Agent       string
	SuccessOnly bool
	Limit       int
}

// AgentLogStats summarizes the agent invocation log.
type AgentLogStats struct {
	Total     int
	Succeeded int
	ByAgent   map[string]int
}

// Store defines the persistence interface for glee.
type Store interface {
	// Review sessions
	CreateReviewSession(ctx context.Context, session *models.ReviewSession) error
	GetReviewSession(ctx context.Context, id string) (*models.ReviewSession, error)
	ListReviewSessions(ctx context.Context, filter SessionListFilter) ([]*models.ReviewSession, error)

	// Memories
	AddMemory(ctx context.Context, m *models.Memory) error
	SearchMemories(ctx context.Context, projectID, query string, limit int) ([]*models.Memory, error)
	ListMemories(ctx context.Context, projectID string, limit int) ([]*models.Memory, error)

	// Agent invocation logs
	AddAgentLog(ctx context.Context, l *models.AgentLog) error
	GetAgentLog(ctx context.Context, id string) (*models.AgentLog, error)
	ListAgentLogs(ctx context.Context, filter AgentLogFilter) ([]*models.AgentLog, error)
	AgentLogStats(ctx context.Context) (*AgentLogStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
