package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleehq/glee/internal/config"
	"github.com/gleehq/glee/internal/dispatch"
	"github.com/gleehq/glee/internal/models"
)

func TestResolveTarget_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0644))

	got, err := resolveTarget(dir, path)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", got)
}

func TestResolveTarget_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("y"), 0644))

	got, err := resolveTarget(dir, dir)
	require.NoError(t, err)
	assert.Contains(t, got, "a.go")
	assert.Contains(t, got, "b.go")
}

func TestResolveTarget_Missing(t *testing.T) {
	_, err := resolveTarget(t.TempDir(), "/nonexistent/file.go")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target not found")
}

func TestBuildTask(t *testing.T) {
	task := buildTask("main.go", "package main", "security")
	assert.Contains(t, task, "Review and rework main.go")
	assert.Contains(t, task, "Focus: security")
	assert.Contains(t, task, "package main")

	noFocus := buildTask("main.go", "package main", "")
	assert.NotContains(t, noFocus, "Focus:")
}

func TestParseRoles(t *testing.T) {
	roles, err := parseRoles([]string{"coder", " Reviewer "})
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleCoder, models.RoleReviewer}, roles)

	_, err = parseRoles([]string{"manager"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestEngineConfig_ProjectOverrides(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.Dispatch{Coder: "first", Reviewer: "round-robin"},
		Arbitration: config.Arbitration{
			MaxIterations:  3,
			MaxReviewers:   1,
			DisputePath:    "human",
			EscalateTo:     "discard",
			TimeoutSeconds: 30,
		},
	}

	acfg := engineConfig(cfg, "/tmp/proj")
	assert.Equal(t, dispatch.StrategyRoundRobin, acfg.Strategy)
	assert.Equal(t, 3, acfg.MaxIterations)
	assert.Equal(t, 1, acfg.MaxReviewers)
	assert.Equal(t, models.PathHuman, acfg.DisputePath)
	assert.Equal(t, models.PathDiscard, acfg.EscalateTo)
	assert.Equal(t, 30*time.Second, acfg.Timeout)
	assert.Equal(t, "/tmp/proj", acfg.Dir)
}

func TestStdinDecider(t *testing.T) {
	dispute := &models.Dispute{
		Item: &models.ReviewItem{
			ID:             "i1-rev-001",
			Severity:       models.SeverityMust,
			Text:           "validate input",
			SourceReviewer: "rev-1",
		},
		CoderObjection: "already validated upstream",
	}

	var out strings.Builder
	d := stdinDecider{in: strings.NewReader("y\n"), out: &out}
	apply, err := d.Decide(context.Background(), dispute)
	require.NoError(t, err)
	assert.True(t, apply)
	assert.Contains(t, out.String(), "i1-rev-001")
	assert.Contains(t, out.String(), "MUST")
	assert.Contains(t, out.String(), "already validated upstream")

	d = stdinDecider{in: strings.NewReader("n\n"), out: &strings.Builder{}}
	apply, err = d.Decide(context.Background(), dispute)
	require.NoError(t, err)
	assert.False(t, apply)
}

func TestStdinDecider_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A reader that never yields input.
	r, _, _ := os.Pipe()
	d := stdinDecider{in: r, out: &strings.Builder{}}

	_, err := d.Decide(ctx, &models.Dispute{Item: &models.ReviewItem{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "01HZXK2M9QAB", shortID("01HZXK2M9QABCDEFGH123456"))
	assert.Equal(t, "short", shortID("short"))
}
