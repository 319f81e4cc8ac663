// Package hierarchy derives the intent tree from crawled pages: each
// page's intent candidates become nodes, parented by URL path structure
// with navigation similarity as a secondary tie-break. The builder is
// single-threaded and deterministic: identical inputs always produce an
// identical tree.
package hierarchy

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonesrussell/intentmap/internal/domain"
)

// ErrInvalidHierarchy is returned when placement would violate the forest
// invariant. It is fatal for the run; a silently-wrong tree is worse than
// a failed one.
var ErrInvalidHierarchy = errors.New("invalid hierarchy")

// placedPage tracks one page's position during placement.
type placedPage struct {
	page *domain.Page
	// primaryIntent is the id of the page's first intent, the parent
	// offered to descendant paths. Empty for waypoint pages without
	// candidates.
	primaryIntent string
	// intentDepth is the tree depth of the page's intents.
	intentDepth int
	linkSet     map[string]struct{}
}

// Build places every intent candidate into a tree. Pages are processed in
// frontier discovery order; pages with zero candidates still participate
// in path-prefix resolution as empty waypoints. Only fetched pages
// contribute nodes. When no ancestor path qualifies, an already-placed
// intent with the same canonical label prefix lends its parent, so
// similarly named intents from unrelated paths group together.
func Build(pages []domain.Page, candidates map[string][]domain.IntentCandidate) (*domain.IntentTree, error) {
	ordered := make([]*domain.Page, 0, len(pages))
	for i := range pages {
		if pages[i].Status == domain.PageStatusFetched {
			ordered = append(ordered, &pages[i])
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Discovered < ordered[j].Discovered
	})

	tree := domain.NewIntentTree()
	byPath := make(map[string][]*placedPage)

	for _, pg := range ordered {
		pagePath, pathErr := canonicalPath(pg.URL)
		if pathErr != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidHierarchy, pathErr)
		}

		placed := &placedPage{page: pg, linkSet: linkSet(pg.OutboundLinks)}

		parentID, depth := findParent(byPath, placed, pagePath)
		if parentID == "" {
			if sibling := labelSibling(tree, candidates[pg.URL]); sibling != nil {
				parentID, depth = sibling.ParentID, sibling.Depth
			}
		}
		placed.intentDepth = depth

		for i, cand := range candidates[pg.URL] {
			intent := &domain.Intent{
				ID:         intentID(pg.URL, i),
				SourcePage: pg.URL,
				ParentID:   parentID,
				Label:      cand.Label,
				Questions:  append([]string(nil), cand.Questions...),
				Entities:   append([]string(nil), cand.Entities...),
				Embedding:  append([]float64(nil), cand.Embedding...),
				Depth:      depth,
			}

			if !tree.Add(intent) {
				return nil, fmt.Errorf("%w: duplicate intent id %s", ErrInvalidHierarchy, intent.ID)
			}

			if i == 0 {
				placed.primaryIntent = intent.ID
			}
		}

		byPath[pagePath] = append(byPath[pagePath], placed)
	}

	if err := verifyForest(tree); err != nil {
		return nil, err
	}

	return tree, nil
}

// findParent resolves the nearest ancestor path with at least one placed
// intent, returning the parent intent id and the tree depth for the new
// intents. Returns an empty parent id (root placement, depth zero) when no
// ancestor qualifies. When several pages tie on prefix length, the one
// with higher Jaccard overlap against the candidate page's outbound links
// wins; remaining ties resolve to the lexicographically smaller canonical
// URL.
func findParent(byPath map[string][]*placedPage, candidate *placedPage, pagePath string) (string, int) {
	for _, ancestorPath := range ancestorPaths(pagePath) {
		contenders := make([]*placedPage, 0)

		for _, placed := range byPath[ancestorPath] {
			if placed.primaryIntent != "" {
				contenders = append(contenders, placed)
			}
		}

		if len(contenders) == 0 {
			continue
		}

		best := pickContender(contenders, candidate)

		return best.primaryIntent, best.intentDepth + 1
	}

	return "", 0
}

// pickContender applies the navigation-similarity tie-break across pages
// sharing the same ancestor path length.
func pickContender(contenders []*placedPage, candidate *placedPage) *placedPage {
	best := contenders[0]
	bestScore := jaccard(best.linkSet, candidate.linkSet)

	for _, contender := range contenders[1:] {
		score := jaccard(contender.linkSet, candidate.linkSet)

		if score > bestScore {
			best, bestScore = contender, score
			continue
		}

		if score == bestScore && contender.page.URL < best.page.URL {
			best = contender
		}
	}

	return best
}

// labelSibling looks up a live intent sharing the primary candidate's
// canonical label prefix. A page with no path ancestor is placed beside
// such an intent instead of starting another root.
func labelSibling(tree *domain.IntentTree, cands []domain.IntentCandidate) *domain.Intent {
	if len(cands) == 0 {
		return nil
	}

	for _, id := range tree.SiblingCandidates(cands[0].Label) {
		if intent := tree.Get(id); intent != nil {
			return intent
		}
	}

	return nil
}

// ancestorPaths returns the proper ancestor paths of pagePath from longest
// to shortest, ending with the root "/".
func ancestorPaths(pagePath string) []string {
	if pagePath == "/" {
		return nil
	}

	segments := strings.Split(strings.Trim(pagePath, "/"), "/")
	paths := make([]string, 0, len(segments))

	for i := len(segments) - 1; i > 0; i-- {
		paths = append(paths, "/"+strings.Join(segments[:i], "/"))
	}

	return append(paths, "/")
}

// canonicalPath extracts the path component of a canonical URL.
func canonicalPath(canonicalURL string) (string, error) {
	parsed, err := url.Parse(canonicalURL)
	if err != nil {
		return "", err
	}

	if parsed.Path == "" {
		return "/", nil
	}

	return parsed.Path, nil
}

// intentID derives a stable identifier from the source page and candidate
// index, so repeated runs over the same input produce identical ids.
func intentID(pageURL string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(pageURL+"#intent-"+strconv.Itoa(index))).String()
}

// linkSet builds the outbound-link set used for Jaccard overlap.
func linkSet(links []string) map[string]struct{} {
	set := make(map[string]struct{}, len(links))
	for _, link := range links {
		set[link] = struct{}{}
	}

	return set
}

// jaccard computes |a∩b| / |a∪b|; two empty sets score zero.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for key := range a {
		if _, ok := b[key]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

// verifyForest walks every intent's parent chain, rejecting cycles and
// dangling parent references.
func verifyForest(tree *domain.IntentTree) error {
	for _, intent := range tree.All() {
		visited := map[string]struct{}{intent.ID: {}}
		current := intent

		for current.ParentID != "" {
			parent := tree.Get(current.ParentID)
			if parent == nil {
				return fmt.Errorf("%w: intent %s references missing parent %s",
					ErrInvalidHierarchy, current.ID, current.ParentID)
			}

			if _, seen := visited[parent.ID]; seen {
				return fmt.Errorf("%w: cycle through intent %s", ErrInvalidHierarchy, parent.ID)
			}

			visited[parent.ID] = struct{}{}
			current = parent
		}
	}

	return nil
}
