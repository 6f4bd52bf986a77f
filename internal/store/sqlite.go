package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gleehq/glee/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Review Sessions ---

func (s *SQLiteStore) CreateReviewSession(ctx context.Context, session *models.ReviewSession) error {
	if session.ID == "" {
		session.ID = newULID()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	reviewersJSON, err := json.Marshal(session.Reviewers)
	if err != nil {
		reviewersJSON = []byte("[]")
	}
	resolutionsJSON, err := json.Marshal(session.Resolutions)
	if err != nil {
		resolutionsJSON = []byte("[]")
	}
	warningsJSON, err := json.Marshal(session.Warnings)
	if err != nil {
		warningsJSON = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_sessions (id, project_id, target, coder, reviewers, status, iterations, resolutions, warnings, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ProjectID, session.Target, session.Coder,
		string(reviewersJSON), string(session.Status), session.Iterations,
		string(resolutionsJSON), string(warningsJSON),
		session.StartedAt, session.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("create review session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReviewSession(ctx context.Context, id string) (*models.ReviewSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, target, coder, reviewers, status, iterations, resolutions, warnings, started_at, ended_at
		FROM review_sessions WHERE id = ?`, id)

	session, err := scanReviewSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review session not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review session: %w", err)
	}
	return session, nil
}

func (s *SQLiteStore) ListReviewSessions(ctx context.Context, filter SessionListFilter) ([]*models.ReviewSession, error) {
	query := `SELECT id, project_id, target, coder, reviewers, status, iterations, resolutions, warnings, started_at, ended_at
		FROM review_sessions WHERE 1=1`
	var args []any

	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.ReviewSession
	for rows.Next() {
		session, err := scanReviewSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReviewSession(row scanner) (*models.ReviewSession, error) {
	session := &models.ReviewSession{}
	var status, reviewersJSON, resolutionsJSON, warningsJSON string
	var endedAt sql.NullTime

	if err := row.Scan(&session.ID, &session.ProjectID, &session.Target, &session.Coder,
		&reviewersJSON, &status, &session.Iterations,
		&resolutionsJSON, &warningsJSON,
		&session.StartedAt, &endedAt); err != nil {
		return nil, err
	}

	session.Status = models.CycleStatus(status)
	_ = json.Unmarshal([]byte(reviewersJSON), &session.Reviewers)
	_ = json.Unmarshal([]byte(resolutionsJSON), &session.Resolutions)
	_ = json.Unmarshal([]byte(warningsJSON), &session.Warnings)
	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}
	return session, nil
}

// --- Memories ---

func (s *SQLiteStore) AddMemory(ctx context.Context, m *models.Memory) error {
	if m.ID == "" {
		m.ID = newULID()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, project_id, session_id, category, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.SessionID, m.Category, m.Content, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SearchMemories(ctx context.Context, projectID, query string, limit int) ([]*models.Memory, error) {
	q := `SELECT id, project_id, session_id, category, content, created_at
		FROM memories WHERE project_id = ? AND content LIKE ?
		ORDER BY created_at DESC`
	args := []any{projectID, "%" + query + "%"}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	return s.scanMemories(ctx, q, args...)
}

func (s *SQLiteStore) ListMemories(ctx context.Context, projectID string, limit int) ([]*models.Memory, error) {
	q := `SELECT id, project_id, session_id, category, content, created_at
		FROM memories WHERE project_id = ? ORDER BY created_at DESC`
	args := []any{projectID}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	return s.scanMemories(ctx, q, args...)
}

// --- Agent invocation logs ---

func (s *SQLiteStore) AddAgentLog(ctx context.Context, l *models.AgentLog) error {
	if l.ID == "" {
		l.ID = newULID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_logs (id, project_id, agent, prompt, output, error, duration_ms, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ProjectID, l.Agent, l.Prompt, l.Output, l.Error,
		l.Duration.Milliseconds(), boolToInt(l.Success), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add agent log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAgentLog(ctx context.Context, id string) (*models.AgentLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, agent, prompt, output, error, duration_ms, success, created_at
		FROM agent_logs WHERE id = ?`, id)

	l, err := scanAgentLog(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("agent log not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get agent log: %w", err)
	}
	return l, nil
}

func (s *SQLiteStore) ListAgentLogs(ctx context.Context, filter AgentLogFilter) ([]*models.AgentLog, error) {
	query := `SELECT id, project_id, agent, prompt, output, error, duration_ms, success, created_at
		FROM agent_logs WHERE 1=1`
	var args []any

	if filter.Agent != "" {
		query += " AND agent = ?"
		args = append(args, filter.Agent)
	}
	if filter.SuccessOnly {
		query += " AND success = 1"
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agent logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []*models.AgentLog
	for rows.Next() {
		l, err := scanAgentLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) AgentLogStats(ctx context.Context) (*AgentLogStats, error) {
	stats := &AgentLogStats{ByAgent: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(success), 0) FROM agent_logs").Scan(&stats.Total, &stats.Succeeded)
	if err != nil {
		return nil, fmt.Errorf("agent log stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT agent, COUNT(*) FROM agent_logs GROUP BY agent")
	if err != nil {
		return nil, fmt.Errorf("agent log stats by agent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var agent string
		var count int
		if err := rows.Scan(&agent, &count); err != nil {
			return nil, fmt.Errorf("scan agent log stats: %w", err)
		}
		stats.ByAgent[agent] = count
	}
	return stats, rows.Err()
}

func scanAgentLog(row scanner) (*models.AgentLog, error) {
	l := &models.AgentLog{}
	var durationMS int64
	var success int

	if err := row.Scan(&l.ID, &l.ProjectID, &l.Agent, &l.Prompt, &l.Output, &l.Error,
		&durationMS, &success, &l.CreatedAt); err != nil {
		return nil, err
	}

	l.Duration = time.Duration(durationMS) * time.Millisecond
	l.Success = success != 0
	return l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) scanMemories(ctx context.Context, query string, args ...any) ([]*models.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*models.Memory
	for rows.Next() {
		m := &models.Memory{}
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SessionID, &m.Category, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
