package export_test

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/export"
)

func sampleTree(t *testing.T) *domain.IntentTree {
	t.Helper()

	tree := domain.NewIntentTree()
	require.True(t, tree.Add(&domain.Intent{
		ID:         "root",
		SourcePage: "https://example.com/support",
		Label:      "get support",
		Questions:  []string{"How do I contact support?"},
	}))
	require.True(t, tree.Add(&domain.Intent{
		ID:         "child",
		ParentID:   "root",
		SourcePage: "https://example.com/support/billing",
		Label:      "manage billing",
		Questions:  []string{"q1", "q2", "q3", "q4", "q5"},
		Entities:   []string{"invoice", "card"},
	}))
	require.True(t, tree.Add(&domain.Intent{
		ID:         "merged",
		SourcePage: "https://example.com/help",
		Label:      "get help",
		MergedInto: "root",
	}))

	return tree
}

func TestJSON(t *testing.T) {
	t.Parallel()

	tree := sampleTree(t)
	summary := &domain.CrawlSummary{RunID: "run-1", BaseURL: "https://example.com/", Fetched: 3}

	data, err := export.JSON(tree, summary)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "run-1", doc.Summary.RunID)
	require.Len(t, doc.Roots, 1)
	assert.Equal(t, "root", doc.Roots[0].ID)

	// Merged intents are pruned from the exported forest; live children
	// nest under their parents.
	require.Len(t, doc.Roots[0].Children, 1)
	assert.Equal(t, "child", doc.Roots[0].Children[0].ID)
}

func TestJSONWithoutSummary(t *testing.T) {
	t.Parallel()

	data, err := export.JSON(sampleTree(t), nil)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"summary"`)
}

func TestCSV(t *testing.T) {
	t.Parallel()

	data, err := export.CSV(sampleTree(t))
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)

	// Header plus the two live intents; merged rows are excluded.
	require.Len(t, records, 3)
	assert.Equal(t, []string{"label", "source_url", "sample_questions", "entities", "merged_from", "flagged_for_review"}, records[0])

	// Questions are capped at the sample limit.
	assert.Equal(t, "q1; q2; q3", records[2][2])
	assert.Equal(t, "invoice; card", records[2][3])
}

func TestExportRefusesNilTree(t *testing.T) {
	t.Parallel()

	_, err := export.JSON(nil, nil)
	assert.ErrorIs(t, err, export.ErrInvalidRun)

	_, err = export.CSV(nil)
	assert.ErrorIs(t, err, export.ErrInvalidRun)
}
