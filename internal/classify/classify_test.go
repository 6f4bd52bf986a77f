package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleehq/glee/internal/models"
)

func TestClassify_RoundTrip(t *testing.T) {
	items, err := Classify("[MUST] fix X\n[LOW] rename y\n", "rev1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, models.SeverityMust, items[0].Severity)
	assert.Equal(t, models.KindOpinion, items[0].Kind)
	assert.True(t, items[0].Mandatory())
	assert.Equal(t, "fix X", items[0].Text)

	assert.Equal(t, models.SeverityLow, items[1].Severity)
	assert.Equal(t, models.KindIssue, items[1].Kind)
	assert.False(t, items[1].Mandatory())
	assert.Equal(t, "rename y", items[1].Text)
}

func TestClassify_MandatoryDerivedFromSeverity(t *testing.T) {
	tests := []struct {
		severity  models.Severity
		kind      models.ItemKind
		mandatory bool
	}{
		{models.SeverityMust, models.KindOpinion, true},
		{models.SeverityShould, models.KindOpinion, false},
		{models.SeverityHigh, models.KindIssue, true},
		{models.SeverityMedium, models.KindIssue, false},
		{models.SeverityLow, models.KindIssue, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			items, err := Classify("["+string(tt.severity)+"] something", "rev1")
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.kind, items[0].Kind)
			assert.Equal(t, tt.mandatory, items[0].Mandatory())
		})
	}
}

func TestClassify_ContinuationLines(t *testing.T) {
	raw := "[HIGH] SQL injection in query builder\nsee internal/store/sqlite.go\nuse placeholders instead\n[LOW] typo in comment\n"
	items, err := Classify(raw, "rev1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "SQL injection in query builder\nsee internal/store/sqlite.go\nuse placeholders instead", items[0].Text)
	assert.Equal(t, "typo in comment", items[1].Text)
}

func TestClassify_PreambleDiscarded(t *testing.T) {
	raw := "Here is my review of the changes:\n\n[SHOULD] extract helper\n"
	items, err := Classify(raw, "rev1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "extract helper", items[0].Text)
}

func TestClassify_NoTags(t *testing.T) {
	_, err := Classify("looks good to me", "rev1")
	assert.ErrorIs(t, err, ErrMalformedReviewOutput)
}

func TestClassify_EmptyOutput(t *testing.T) {
	items, err := Classify("  \n\t\n", "rev1")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestClassify_SourceReviewerAndIDs(t *testing.T) {
	items, err := Classify("[MUST] a\n[MUST] b\n", "codex-a1b2c3")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "codex-a1b2c3", items[0].SourceReviewer)
	assert.Equal(t, "codex-a1b2c3-001", items[0].ID)
	assert.Equal(t, "codex-a1b2c3-002", items[1].ID)
}

func TestUnclassified(t *testing.T) {
	it := Unclassified("looks good to me\n", "rev1")
	assert.Equal(t, models.SeverityShould, it.Severity)
	assert.Equal(t, models.KindOpinion, it.Kind)
	assert.False(t, it.Mandatory())
	assert.Equal(t, "looks good to me", it.Text)
}
