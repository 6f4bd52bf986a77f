package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleehq/glee/internal/config"
	"github.com/gleehq/glee/internal/models"
	"github.com/gleehq/glee/internal/store"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockStore implements store.Store for testing.
type mockStore struct {
	sessions []*models.ReviewSession
	memories []*models.Memory
	logs     []*models.AgentLog

	// Optional error injection.
	addMemoryErr      error
	searchMemoriesErr error
}

func (m *mockStore) CreateReviewSession(_ context.Context, session *models.ReviewSession) error {
	if session.ID == "" {
		session.ID = fmt.Sprintf("session-%d", len(m.sessions)+1)
	}
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *mockStore) GetReviewSession(_ context.Context, id string) (*models.ReviewSession, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("review session not found: %s", id)
}

func (m *mockStore) ListReviewSessions(_ context.Context, filter store.SessionListFilter) ([]*models.ReviewSession, error) {
	var result []*models.ReviewSession
	for _, s := range m.sessions {
		if filter.ProjectID != "" && s.ProjectID != filter.ProjectID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		result = append(result, s)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockStore) AddMemory(_ context.Context, mem *models.Memory) error {
	if m.addMemoryErr != nil {
		return m.addMemoryErr
	}
	if mem.ID == "" {
		mem.ID = fmt.Sprintf("mem-%d", len(m.memories)+1)
	}
	mem.CreatedAt = time.Now()
	m.memories = append(m.memories, mem)
	return nil
}

func (m *mockStore) SearchMemories(_ context.Context, projectID, query string, limit int) ([]*models.Memory, error) {
	if m.searchMemoriesErr != nil {
		return nil, m.searchMemoriesErr
	}
	var result []*models.Memory
	for _, mem := range m.memories {
		if mem.ProjectID != projectID {
			continue
		}
		if !strings.Contains(mem.Content, query) {
			continue
		}
		result = append(result, mem)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockStore) ListMemories(_ context.Context, projectID string, limit int) ([]*models.Memory, error) {
	var result []*models.Memory
	for _, mem := range m.memories {
		if mem.ProjectID != projectID {
			continue
		}
		result = append(result, mem)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockStore) AddAgentLog(_ context.Context, l *models.AgentLog) error {
	if l.ID == "" {
		l.ID = fmt.Sprintf("log-%d", len(m.logs)+1)
	}
	m.logs = append(m.logs, l)
	return nil
}

func (m *mockStore) GetAgentLog(_ context.Context, id string) (*models.AgentLog, error) {
	for _, l := range m.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("agent log not found: %s", id)
}

func (m *mockStore) ListAgentLogs(_ context.Context, filter store.AgentLogFilter) ([]*models.AgentLog, error) {
	var result []*models.AgentLog
	for _, l := range m.logs {
		if filter.Agent != "" && l.Agent != filter.Agent {
			continue
		}
		if filter.SuccessOnly && !l.Success {
			continue
		}
		result = append(result, l)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockStore) AgentLogStats(_ context.Context) (*store.AgentLogStats, error) {
	stats := &store.AgentLogStats{ByAgent: make(map[string]int)}
	for _, l := range m.logs {
		stats.Total++
		if l.Success {
			stats.Succeeded++
		}
		stats.ByAgent[l.Agent]++
	}
	return stats, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// mockRunner implements ReviewRunner for testing.
type mockRunner struct {
	session *models.ReviewSession
	err     error

	// Records the last invocation for verification.
	lastTask      string
	lastDomain    string
	lastArbitrate bool
	calls         int
}

func (m *mockRunner) Run(_ context.Context, _, task, domain string, _ []models.Agent, arbitrate bool) (*models.ReviewSession, error) {
	m.calls++
	m.lastTask = task
	m.lastDomain = domain
	m.lastArbitrate = arbitrate
	return m.session, m.err
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestServer creates a Server with mock dependencies and two agents.
func newTestServer(t *testing.T) (*Server, *mockStore, *mockRunner) {
	t.Helper()

	cfg := &config.Config{
		Project:  config.Project{ID: "proj-1", Name: "demo", Path: "/tmp/demo"},
		Dispatch: config.DefaultDispatch(),
	}
	cfg.Agents = []models.Agent{
		{Name: "claude-a1b2c3", Command: "claude", Roles: []models.Role{models.RoleCoder}},
		{Name: "codex-d4e5f6", Command: "codex", Roles: []models.Role{models.RoleReviewer}, Focus: []string{"security"}},
	}

	ms := &mockStore{}
	mr := &mockRunner{
		session: &models.ReviewSession{
			ID:         "session-1",
			ProjectID:  "proj-1",
			Coder:      "claude-a1b2c3",
			Reviewers:  []string{"codex-d4e5f6"},
			Status:     models.CycleCompleted,
			Iterations: 1,
			Resolutions: []models.Resolution{
				{ItemID: "i1-rev-001", Action: models.ActionApplied, DecidedBy: models.DecidedByCoder},
			},
		},
	}

	srv := NewServer(cfg, ms, mr)
	require.NotNil(t, srv)

	return srv, ms, mr
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

// ---------------------------------------------------------------------------
// Tests: MCPServer registration
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	srv, _, _ := newTestServer(t)
	mcpSrv := srv.MCPServer()
	require.NotNil(t, mcpSrv, "MCPServer() should return non-nil")
}

// ---------------------------------------------------------------------------
// Tests: glee_review
// ---------------------------------------------------------------------------

func TestHandleReview(t *testing.T) {
	srv, _, mr := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_review", map[string]any{"task": "add input validation"})
	result, err := srv.handleReview(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	assert.Equal(t, 1, mr.calls)
	assert.Equal(t, "add input validation", mr.lastTask)
	assert.True(t, mr.lastArbitrate, "arbitrate should default to true")

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Equal(t, "session-1", out["session_id"])
	assert.Equal(t, "completed", out["status"])
	assert.Contains(t, out["summary"], "1 applied")
}

func TestHandleReview_DomainAndArbitrate(t *testing.T) {
	srv, _, mr := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_review", map[string]any{
		"task":      "refactor parser",
		"domain":    "backend",
		"arbitrate": false,
	})
	result, err := srv.handleReview(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	assert.Equal(t, "backend", mr.lastDomain)
	assert.False(t, mr.lastArbitrate)
}

func TestHandleReview_MissingTask(t *testing.T) {
	srv, _, mr := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_review", nil)
	result, err := srv.handleReview(ctx, req)
	require.NoError(t, err, "handler should not return Go error; should wrap in result")
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Zero(t, mr.calls)
}

func TestHandleReview_NoAgents(t *testing.T) {
	srv, _, mr := newTestServer(t)
	srv.cfg.Agents = nil
	ctx := context.Background()

	req := callToolReq("glee_review", map[string]any{"task": "anything"})
	result, err := srv.handleReview(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no agents connected")
	assert.Zero(t, mr.calls)
}

func TestHandleReview_RunnerError(t *testing.T) {
	srv, _, mr := newTestServer(t)
	mr.session = nil
	mr.err = fmt.Errorf("coder claude-a1b2c3 failed, no code to review")
	ctx := context.Background()

	req := callToolReq("glee_review", map[string]any{"task": "anything"})
	result, err := srv.handleReview(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "review failed")
}

func TestHandleReview_AbortedSessionStillReported(t *testing.T) {
	srv, _, mr := newTestServer(t)
	mr.session = &models.ReviewSession{
		ID:     "session-2",
		Status: models.CycleAborted,
	}
	mr.err = fmt.Errorf("human declined to decide")
	ctx := context.Background()

	req := callToolReq("glee_review", map[string]any{"task": "anything"})
	result, err := srv.handleReview(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out map[string]any
	resultJSON(t, result, &out)
	assert.Equal(t, "aborted", out["status"])
}

// ---------------------------------------------------------------------------
// Tests: glee_memory_add
// ---------------------------------------------------------------------------

func TestHandleMemoryAdd(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_memory_add", map[string]any{
		"content":  "errors wrap with %w everywhere",
		"category": "convention",
	})
	result, err := srv.handleMemoryAdd(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	require.Len(t, ms.memories, 1)
	assert.Equal(t, "proj-1", ms.memories[0].ProjectID)
	assert.Equal(t, "convention", ms.memories[0].Category)
}

func TestHandleMemoryAdd_MissingContent(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_memory_add", nil)
	result, err := srv.handleMemoryAdd(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Empty(t, ms.memories)
}

func TestHandleMemoryAdd_StoreError(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	ms.addMemoryErr = fmt.Errorf("db connection failed")
	ctx := context.Background()

	req := callToolReq("glee_memory_add", map[string]any{"content": "anything"})
	result, err := srv.handleMemoryAdd(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "db connection failed")
}

// ---------------------------------------------------------------------------
// Tests: glee_memory_search
// ---------------------------------------------------------------------------

func TestHandleMemorySearch(t *testing.T) {
	srv, ms, _ := newTestServer(t)
	ctx := context.Background()

	ms.memories = []*models.Memory{
		{ID: "m1", ProjectID: "proj-1", Content: "parser rejects unterminated strings"},
		{ID: "m2", ProjectID: "proj-1", Content: "store serializes writes"},
		{ID: "m3", ProjectID: "other", Content: "parser notes from elsewhere"},
	}

	req := callToolReq("glee_memory_search", map[string]any{"query": "parser"})
	result, err := srv.handleMemorySearch(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []map[string]any
	resultJSON(t, result, &out)
	require.Len(t, out, 1, "results from other projects must not leak")
	assert.Equal(t, "m1", out[0]["id"])
}

func TestHandleMemorySearch_MissingQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_memory_search", nil)
	result, err := srv.handleMemorySearch(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// ---------------------------------------------------------------------------
// Tests: glee_agents
// ---------------------------------------------------------------------------

func TestHandleAgents(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_agents", nil)
	result, err := srv.handleAgents(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []map[string]any
	resultJSON(t, result, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "claude-a1b2c3", out[0]["name"])
}

func TestHandleAgents_RoleFilter(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	req := callToolReq("glee_agents", map[string]any{"role": "reviewer"})
	result, err := srv.handleAgents(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out []map[string]any
	resultJSON(t, result, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "codex-d4e5f6", out[0]["name"])
}

// ---------------------------------------------------------------------------
// Tests: summarizeOutcome
// ---------------------------------------------------------------------------

func TestSummarizeOutcome(t *testing.T) {
	session := &models.ReviewSession{
		Status:     models.CycleCompleted,
		Iterations: 2,
		Resolutions: []models.Resolution{
			{Action: models.ActionApplied},
			{Action: models.ActionDiscarded},
			{Action: models.ActionEnforced},
		},
	}
	got := summarizeOutcome(session)
	assert.Contains(t, got, "completed after 2 iteration(s)")
	assert.Contains(t, got, "1 applied, 1 discarded, 1 enforced")
}
