package arbiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleehq/glee/internal/models"
)

func testResolverConfig() Config {
	return Config{
		MaxIterations: 10,
		MaxReviewers:  2,
		DisputePath:   models.PathJudge,
		EscalateTo:    models.PathHuman,
		Timeout:       time.Minute,
	}
}

func TestNewResolver_EscalateToJudgeRejectedBeforeInvocation(t *testing.T) {
	inv := newFakeInvoker()
	cfg := testResolverConfig()
	cfg.EscalateTo = models.PathJudge

	judge := agentWith("judge1", models.RoleJudge)
	_, err := NewResolver(&judge, inv, nil, cfg)
	assert.ErrorIs(t, err, ErrInvalidEscalationConfig)
	assert.Equal(t, 0, inv.callCount("judge1"))
}

func TestResolve_Discard(t *testing.T) {
	inv := newFakeInvoker()
	r, err := NewResolver(nil, inv, nil, testResolverConfig())
	require.NoError(t, err)

	d := &models.Dispute{Item: mustItem("i1", "fix it"), CoderObjection: "no", Outcome: models.OutcomePending}
	res, err := r.Resolve(context.Background(), d, models.PathDiscard, "the code")
	require.NoError(t, err)

	assert.Equal(t, models.Resolution{ItemID: "i1", Action: models.ActionDiscarded, DecidedBy: models.DecidedByCoder}, res)
	assert.Equal(t, models.OutcomeDismiss, d.Outcome)
	assert.True(t, d.Terminal())
}

func TestResolve_TerminalDisputeIsStateError(t *testing.T) {
	inv := newFakeInvoker()
	r, err := NewResolver(nil, inv, nil, testResolverConfig())
	require.NoError(t, err)

	d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
	_, err = r.Resolve(context.Background(), d, models.PathDiscard, "")
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), d, models.PathDiscard, "")
	assert.ErrorIs(t, err, ErrDisputeResolved)
}

func TestResolve_HumanApplyAndDiscard(t *testing.T) {
	inv := newFakeInvoker()

	for _, tt := range []struct {
		apply  bool
		action models.ResolutionAction
	}{
		{true, models.ActionEnforced},
		{false, models.ActionDiscarded},
	} {
		human := humanFunc(func(ctx context.Context, d *models.Dispute) (bool, error) {
			return tt.apply, nil
		})
		r, err := NewResolver(nil, inv, human, testResolverConfig())
		require.NoError(t, err)

		d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
		res, err := r.Resolve(context.Background(), d, models.PathHuman, "")
		require.NoError(t, err)
		assert.Equal(t, tt.action, res.Action)
		assert.Equal(t, models.DecidedByHuman, res.DecidedBy)
		assert.True(t, d.Terminal())
	}
}

func TestResolve_HumanCancellation(t *testing.T) {
	inv := newFakeInvoker()
	human := humanFunc(func(ctx context.Context, d *models.Dispute) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	r, err := NewResolver(nil, inv, human, testResolverConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
	_, err = r.Resolve(ctx, d, models.PathHuman, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, d.Terminal())
}

func TestResolve_JudgeVerdicts(t *testing.T) {
	tests := []struct {
		output    string
		action    models.ResolutionAction
		decidedBy models.Decider
	}{
		{"ENFORCE", models.ActionEnforced, models.DecidedByJudge},
		{"Verdict: DISMISS.", models.ActionDiscarded, models.DecidedByJudge},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			inv := newFakeInvoker()
			inv.script("judge1", text(tt.output))
			judge := agentWith("judge1", models.RoleJudge)

			r, err := NewResolver(&judge, inv, nil, testResolverConfig())
			require.NoError(t, err)

			d := &models.Dispute{Item: mustItem("i1", "fix it"), CoderObjection: "no", Outcome: models.OutcomePending}
			res, err := r.Resolve(context.Background(), d, models.PathJudge, "code")
			require.NoError(t, err)
			assert.Equal(t, tt.action, res.Action)
			assert.Equal(t, tt.decidedBy, res.DecidedBy)
		})
	}
}

func TestResolve_JudgeEscalatesToHuman(t *testing.T) {
	inv := newFakeInvoker()
	inv.script("judge1", text("ESCALATE"))
	judge := agentWith("judge1", models.RoleJudge)

	humanCalled := false
	human := humanFunc(func(ctx context.Context, d *models.Dispute) (bool, error) {
		humanCalled = true
		return true, nil
	})

	r, err := NewResolver(&judge, inv, human, testResolverConfig())
	require.NoError(t, err)

	d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
	res, err := r.Resolve(context.Background(), d, models.PathJudge, "code")
	require.NoError(t, err)
	assert.True(t, humanCalled)
	assert.Equal(t, models.ActionEnforced, res.Action)
	assert.Equal(t, models.DecidedByHuman, res.DecidedBy)
}

func TestResolve_JudgeFailureEscalatesNotDropped(t *testing.T) {
	inv := newFakeInvoker()
	inv.script("judge1", timeoutErr("judge1"))
	judge := agentWith("judge1", models.RoleJudge)

	human := humanFunc(func(ctx context.Context, d *models.Dispute) (bool, error) {
		return false, nil
	})

	var warnings []string
	r, err := NewResolver(&judge, inv, human, testResolverConfig())
	require.NoError(t, err)
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	})

	d := &models.Dispute{Item: mustItem("i2", "fix it"), Outcome: models.OutcomePending}
	res, err := r.Resolve(context.Background(), d, models.PathJudge, "code")
	require.NoError(t, err)
	assert.Equal(t, models.ActionDiscarded, res.Action)
	assert.Equal(t, models.DecidedByHuman, res.DecidedBy)
	assert.NotEmpty(t, warnings)
}

func TestResolve_MissingJudgeEscalates(t *testing.T) {
	inv := newFakeInvoker()
	human := humanFunc(func(ctx context.Context, d *models.Dispute) (bool, error) {
		return true, nil
	})
	r, err := NewResolver(nil, inv, human, testResolverConfig())
	require.NoError(t, err)

	d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
	res, err := r.Resolve(context.Background(), d, models.PathJudge, "code")
	require.NoError(t, err)
	assert.Equal(t, models.ActionEnforced, res.Action)
}

func TestResolve_HumanPathWithoutDecider(t *testing.T) {
	inv := newFakeInvoker()
	r, err := NewResolver(nil, inv, nil, testResolverConfig())
	require.NoError(t, err)

	d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
	_, err = r.Resolve(context.Background(), d, models.PathHuman, "")
	assert.ErrorIs(t, err, ErrNoHumanDecider)
}

func TestParseJudgeVerdict(t *testing.T) {
	tests := []struct {
		output  string
		want    models.DisputeOutcome
		wantErr bool
	}{
		{"ENFORCE", models.OutcomeEnforce, false},
		{"enforce", models.OutcomeEnforce, false},
		{"After consideration: DISMISS.", models.OutcomeDismiss, false},
		{"I must ESCALATE this one", models.OutcomeEscalate, false},
		{"the coder is right", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := parseJudgeVerdict(tt.output)
		if tt.wantErr {
			assert.Error(t, err, tt.output)
			continue
		}
		require.NoError(t, err, tt.output)
		assert.Equal(t, tt.want, got, tt.output)
	}
}

func TestResolve_UnknownPath(t *testing.T) {
	inv := newFakeInvoker()
	r, err := NewResolver(nil, inv, nil, testResolverConfig())
	require.NoError(t, err)

	d := &models.Dispute{Item: mustItem("i1", "fix it"), Outcome: models.OutcomePending}
	_, err = r.Resolve(context.Background(), d, models.ResolutionPath("oracle"), "")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrDisputeResolved))
}
