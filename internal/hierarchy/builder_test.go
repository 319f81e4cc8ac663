package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/intentmap/internal/domain"
	"github.com/jonesrussell/intentmap/internal/hierarchy"
)

func fetchedPage(url string, discovered int, links ...string) domain.Page {
	return domain.Page{
		URL:           url,
		Status:        domain.PageStatusFetched,
		Discovered:    discovered,
		OutboundLinks: links,
	}
}

func candidate(label string) domain.IntentCandidate {
	return domain.IntentCandidate{Label: label, Questions: []string{"How do I " + label + "?"}}
}

// firstIntent returns the page's first intent node.
func firstIntent(t *testing.T, tree *domain.IntentTree, pageURL string) *domain.Intent {
	t.Helper()

	ids := tree.IntentsForPage(pageURL)
	require.NotEmpty(t, ids)

	return tree.Get(ids[0])
}

func TestBuildPathChain(t *testing.T) {
	t.Parallel()

	pages := []domain.Page{
		fetchedPage("https://example.com/support", 0),
		fetchedPage("https://example.com/support/billing", 1),
		fetchedPage("https://example.com/support/billing/refunds", 2),
	}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/support":                 {candidate("get support")},
		"https://example.com/support/billing":         {candidate("manage billing")},
		"https://example.com/support/billing/refunds": {candidate("request refund")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)
	require.Equal(t, 3, tree.Len())

	support := firstIntent(t, tree, "https://example.com/support")
	billing := firstIntent(t, tree, "https://example.com/support/billing")
	refunds := firstIntent(t, tree, "https://example.com/support/billing/refunds")

	assert.Empty(t, support.ParentID)
	assert.Equal(t, 0, support.Depth)
	assert.Equal(t, support.ID, billing.ParentID)
	assert.Equal(t, 1, billing.Depth)
	assert.Equal(t, billing.ID, refunds.ParentID)
	assert.Equal(t, 2, refunds.Depth)
}

func TestBuildWaypointPage(t *testing.T) {
	t.Parallel()

	// /support has no candidates; /support/billing must climb past it to
	// the root page's intent.
	pages := []domain.Page{
		fetchedPage("https://example.com/", 0),
		fetchedPage("https://example.com/support", 1),
		fetchedPage("https://example.com/support/billing", 2),
	}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/":                {candidate("learn about product")},
		"https://example.com/support/billing": {candidate("manage billing")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)
	require.Equal(t, 2, tree.Len())

	root := firstIntent(t, tree, "https://example.com/")
	billing := firstIntent(t, tree, "https://example.com/support/billing")

	assert.Equal(t, root.ID, billing.ParentID)
	assert.Equal(t, 1, billing.Depth)
}

func TestBuildRootPlacementWithoutAncestors(t *testing.T) {
	t.Parallel()

	pages := []domain.Page{
		fetchedPage("https://example.com/pricing", 0),
		fetchedPage("https://example.com/about", 1),
	}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/pricing": {candidate("compare plans")},
		"https://example.com/about":   {candidate("learn about company")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	for _, intent := range tree.All() {
		assert.Empty(t, intent.ParentID)
		assert.Equal(t, 0, intent.Depth)
	}
	assert.Len(t, tree.Roots(), 2)
}

func TestBuildLabelSiblingAdoption(t *testing.T) {
	t.Parallel()

	// The fees page has no ancestor path inside the tree, but its intent
	// label shares a canonical prefix with the billing intent, so it is
	// placed beside it instead of becoming a second root.
	pages := []domain.Page{
		fetchedPage("https://example.com/support", 0),
		fetchedPage("https://example.com/support/billing", 1),
		fetchedPage("https://example.com/fees", 2),
	}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/support":         {candidate("get support")},
		"https://example.com/support/billing": {candidate("manage billing account")},
		"https://example.com/fees":            {candidate("manage billing fees")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	support := firstIntent(t, tree, "https://example.com/support")
	fees := firstIntent(t, tree, "https://example.com/fees")
	assert.Equal(t, support.ID, fees.ParentID)
	assert.Equal(t, 1, fees.Depth)
	assert.Len(t, tree.Roots(), 1)
}

func TestBuildJaccardTieBreak(t *testing.T) {
	t.Parallel()

	// Two distinct pages share the path /docs. The candidate's outbound
	// links overlap with the api view, so its intent wins the parent slot.
	apiView := "https://example.com/docs?tab=api"
	guidesView := "https://example.com/docs?tab=guides"
	child := "https://example.com/docs/api/auth"

	pages := []domain.Page{
		fetchedPage(apiView, 0, "/docs/api/auth", "/docs/api/errors"),
		fetchedPage(guidesView, 1, "/docs/guides/start"),
		fetchedPage(child, 2, "/docs/api/auth", "/docs/api/errors"),
	}
	candidates := map[string][]domain.IntentCandidate{
		apiView:    {candidate("browse api docs")},
		guidesView: {candidate("browse guides")},
		child:      {candidate("authenticate api")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	apiIntent := firstIntent(t, tree, apiView)
	auth := firstIntent(t, tree, child)
	assert.Equal(t, apiIntent.ID, auth.ParentID)
}

func TestBuildURLTieBreak(t *testing.T) {
	t.Parallel()

	// No link overlap anywhere; equal Jaccard scores resolve to the
	// lexicographically smaller canonical URL.
	first := "https://example.com/docs?tab=alpha"
	second := "https://example.com/docs?tab=beta"
	child := "https://example.com/docs/start"

	pages := []domain.Page{
		fetchedPage(second, 0),
		fetchedPage(first, 1),
		fetchedPage(child, 2),
	}
	candidates := map[string][]domain.IntentCandidate{
		first:  {candidate("alpha view")},
		second: {candidate("beta view")},
		child:  {candidate("get started")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	alphaIntent := firstIntent(t, tree, first)
	start := firstIntent(t, tree, child)
	assert.Equal(t, alphaIntent.ID, start.ParentID)
}

func TestBuildSkipsUnfetchedPages(t *testing.T) {
	t.Parallel()

	pages := []domain.Page{
		fetchedPage("https://example.com/a", 0),
		{URL: "https://example.com/b", Status: domain.PageStatusFailed, Discovered: 1},
		{URL: "https://example.com/c", Status: domain.PageStatusSkipped, Discovered: 2},
	}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/a": {candidate("a")},
		"https://example.com/b": {candidate("b")},
		"https://example.com/c": {candidate("c")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.Len())
}

func TestBuildDeterministicIDs(t *testing.T) {
	t.Parallel()

	pages := []domain.Page{fetchedPage("https://example.com/pricing", 0)}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/pricing": {candidate("compare plans"), candidate("upgrade plan")},
	}

	first, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	second, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	assert.Equal(t, first.SortedIDs(), second.SortedIDs())
	assert.Equal(t, 2, first.Len())
}

func TestBuildDiscoveryOrderDecidesPlacement(t *testing.T) {
	t.Parallel()

	// The parent page was fetched later but discovered earlier; placement
	// follows discovery order, so the child still finds its parent.
	pages := []domain.Page{
		fetchedPage("https://example.com/support/billing", 5),
		fetchedPage("https://example.com/support", 1),
	}
	candidates := map[string][]domain.IntentCandidate{
		"https://example.com/support":         {candidate("get support")},
		"https://example.com/support/billing": {candidate("manage billing")},
	}

	tree, err := hierarchy.Build(pages, candidates)
	require.NoError(t, err)

	support := firstIntent(t, tree, "https://example.com/support")
	billing := firstIntent(t, tree, "https://example.com/support/billing")
	assert.Equal(t, support.ID, billing.ParentID)
}
