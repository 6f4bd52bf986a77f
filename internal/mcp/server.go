package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gleehq/glee/internal/arbiter"
	"github.com/gleehq/glee/internal/config"
	"github.com/gleehq/glee/internal/models"
	"github.com/gleehq/glee/internal/store"
)

// ReviewRunner runs one full review cycle. Satisfied by arbiter.Runner.
type ReviewRunner interface {
	Run(ctx context.Context, projectID, task, domain string, agents []models.Agent, arbitrate bool) (*models.ReviewSession, error)
}

// Server wraps the glee review engine and memory store as MCP tools, so
// connected coding agents can request reviews and capture project context.
type Server struct {
	cfg    *config.Config
	store  store.Store
	runner ReviewRunner
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(cfg *config.Config, st store.Store, runner ReviewRunner) *Server {
	return &Server{
		cfg:    cfg,
		store:  st,
		runner: runner,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("glee", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.reviewTool())
	srv.AddTool(s.memoryAddTool())
	srv.AddTool(s.memorySearchTool())
	srv.AddTool(s.agentsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// glee_review
func (s *Server) reviewTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glee_review",
		mcp.WithDescription("Run a multi-agent review cycle for a task. The coder drafts, reviewers critique with severity tags, and mandatory rejections go through arbitration. Returns the session outcome as JSON."),
		mcp.WithString("task", mcp.Required(), mcp.Description("What to build or review, phrased as an instruction to the coder")),
		mcp.WithString("domain", mcp.Description("Domain hint for coder selection (e.g. backend, frontend)")),
		mcp.WithBoolean("arbitrate", mcp.Description("Resolve disputes through the configured judge or human instead of discarding (default: true)")),
	)
	return tool, s.handleReview
}

func (s *Server) handleReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task, err := request.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task"), nil
	}

	domain := request.GetString("domain", "")
	arbitrate := request.GetBool("arbitrate", true)

	if len(s.cfg.Agents) == 0 {
		return mcp.NewToolResultError("no agents connected, run 'glee agent connect' first"), nil
	}

	session, err := s.runner.Run(ctx, s.cfg.Project.ID, task, domain, s.cfg.Agents, arbitrate)
	if err != nil {
		if session == nil {
			return mcp.NewToolResultError(fmt.Sprintf("review failed: %v", err)), nil
		}
		// Aborted cycles still produce a recorded session worth reporting.
	}

	result := map[string]any{
		"session_id": session.ID,
		"status":     string(session.Status),
		"summary":    summarizeOutcome(session),
		"iterations": session.Iterations,
		"coder":      session.Coder,
		"reviewers":  session.Reviewers,
		"warnings":   session.Warnings,
	}
	resolutions := make([]map[string]string, len(session.Resolutions))
	for i, r := range session.Resolutions {
		resolutions[i] = map[string]string{
			"item_id":    r.ItemID,
			"action":     string(r.Action),
			"decided_by": string(r.DecidedBy),
		}
	}
	result["resolutions"] = resolutions

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal session: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glee_memory_add
func (s *Server) memoryAddTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glee_memory_add",
		mcp.WithDescription("Capture a piece of project context (a decision, convention, or gotcha) so future review cycles can recall it."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The fact to remember")),
		mcp.WithString("category", mcp.Description("Category label, e.g. decision, convention, gotcha")),
		mcp.WithString("session_id", mcp.Description("Review session this memory came from")),
	)
	return tool, s.handleMemoryAdd
}

func (s *Server) handleMemoryAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	m := &models.Memory{
		ProjectID: s.cfg.Project.ID,
		SessionID: request.GetString("session_id", ""),
		Category:  request.GetString("category", ""),
		Content:   content,
	}
	if err := s.store.AddMemory(ctx, m); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add memory: %v", err)), nil
	}

	result := map[string]any{
		"id":         m.ID,
		"category":   m.Category,
		"created_at": m.CreatedAt.Format(time.RFC3339),
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// glee_memory_search
func (s *Server) memorySearchTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glee_memory_search",
		mcp.WithDescription("Search captured project memories by substring. Returns a JSON array, most recent first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Substring to search for")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default: 20)")),
	)
	return tool, s.handleMemorySearch
}

func (s *Server) handleMemorySearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 20)

	memories, err := s.store.SearchMemories(ctx, s.cfg.Project.ID, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search memories: %v", err)), nil
	}

	type memoryOut struct {
		ID        string `json:"id"`
		Category  string `json:"category"`
		Content   string `json:"content"`
		SessionID string `json:"session_id,omitempty"`
		CreatedAt string `json:"created_at"`
	}

	out := make([]memoryOut, len(memories))
	for i, m := range memories {
		out[i] = memoryOut{
			ID:        m.ID,
			Category:  m.Category,
			Content:   m.Content,
			SessionID: m.SessionID,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal memories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// glee_agents
func (s *Server) agentsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("glee_agents",
		mcp.WithDescription("List the agents connected to this project with their roles, domains, and focus areas."),
		mcp.WithString("role", mcp.Description("Filter by role: coder, reviewer, judge")),
	)
	return tool, s.handleAgents
}

func (s *Server) handleAgents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	role := request.GetString("role", "")

	agents := s.cfg.Agents
	if role != "" {
		agents = s.cfg.AgentsByRole(models.Role(role))
	}

	type agentOut struct {
		Name     string   `json:"name"`
		Command  string   `json:"command"`
		Model    string   `json:"model,omitempty"`
		Roles    []string `json:"roles"`
		Domain   []string `json:"domain,omitempty"`
		Focus    []string `json:"focus,omitempty"`
		Priority int      `json:"priority"`
	}

	out := make([]agentOut, len(agents))
	for i, a := range agents {
		roles := make([]string, len(a.Roles))
		for j, r := range a.Roles {
			roles[j] = string(r)
		}
		out[i] = agentOut{
			Name:     a.Name,
			Command:  a.Command,
			Model:    a.Model,
			Roles:    roles,
			Domain:   a.Domain,
			Focus:    a.Focus,
			Priority: a.Priority,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal agents: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// summarizeOutcome renders a one-line human summary of a finished session.
func summarizeOutcome(session *models.ReviewSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s after %d iteration(s)", session.Status, session.Iterations)
	if len(session.Resolutions) > 0 {
		applied, discarded, enforced := 0, 0, 0
		for _, r := range session.Resolutions {
			switch r.Action {
			case models.ActionApplied:
				applied++
			case models.ActionDiscarded:
				discarded++
			case models.ActionEnforced:
				enforced++
			}
		}
		fmt.Fprintf(&b, ": %d applied, %d discarded, %d enforced", applied, discarded, enforced)
	}
	return b.String()
}

var _ ReviewRunner = (*arbiter.Runner)(nil)
