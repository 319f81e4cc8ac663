// Package collision finds near-duplicate intents via embedding cosine
// similarity and merges them deterministically. Candidate pairs are
// restricted by a tree-locality heuristic unless a full scan is requested;
// clustering uses a stable pair ordering feeding union-find, so identical
// inputs always yield byte-identical merge output.
package collision

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jonesrussell/intentmap/internal/domain"
)

// Default similarity thresholds.
const (
	DefaultSimilarityThreshold = 0.9
	DefaultReviewThreshold     = 0.75

	// localityLevels is the maximum hierarchy distance between candidate
	// pair members when not running a full scan.
	localityLevels = 2
)

// ErrInvalidThresholds is returned when the review threshold is not below
// the similarity threshold or either falls outside (0, 1].
var ErrInvalidThresholds = errors.New("invalid similarity thresholds")

// Options configures a detection pass.
type Options struct {
	// SimilarityThreshold is the merge boundary; pairs at or above it are
	// duplicate candidates.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	// ReviewThreshold opens the grey zone [ReviewThreshold,
	// SimilarityThreshold) in which pairs are flagged, not merged.
	ReviewThreshold float64 `mapstructure:"review_threshold" yaml:"review_threshold"`
	// FullScan disables the locality heuristic and compares every pair,
	// intended for small trees.
	FullScan bool `mapstructure:"full_scan" yaml:"full_scan"`
}

// Validate checks thresholds and fills zero values with defaults.
func (o *Options) Validate() error {
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}

	if o.ReviewThreshold == 0 {
		o.ReviewThreshold = DefaultReviewThreshold
	}

	if o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 1 ||
		o.ReviewThreshold <= 0 || o.ReviewThreshold >= o.SimilarityThreshold {
		return ErrInvalidThresholds
	}

	return nil
}

// Result is the outcome of one detection pass over a tree.
type Result struct {
	Tree      *domain.IntentTree
	Decisions []domain.MergeDecision
	// FlaggedPairs lists grey-zone intent id pairs, smaller id first.
	FlaggedPairs [][2]string
}

// pair is one scored candidate pair; ids are ordered so A < B.
type pair struct {
	a, b       string
	similarity float64
}

// DetectAndMerge scores candidate intent pairs, merges clusters at or
// above the similarity threshold, and flags grey-zone pairs for review.
// Intents without embeddings are excluded from comparison rather than
// failing the pass. The input tree is mutated and returned.
func DetectAndMerge(tree *domain.IntentTree, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	comparable := comparableIntents(tree)
	pairs, err := scorePairs(tree, comparable, opts)
	if err != nil {
		return nil, err
	}

	// Stable order: similarity descending, then id-pair ascending.
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].similarity != pairs[j].similarity {
			return pairs[i].similarity > pairs[j].similarity
		}

		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}

		return pairs[i].b < pairs[j].b
	})

	result := &Result{Tree: tree}
	clusters := newUnionFind()

	for _, p := range pairs {
		if p.similarity >= opts.SimilarityThreshold {
			clusters.union(p.a, p.b)
			continue
		}

		if p.similarity >= opts.ReviewThreshold {
			tree.Get(p.a).FlaggedForReview = true
			tree.Get(p.b).FlaggedForReview = true
			result.FlaggedPairs = append(result.FlaggedPairs, [2]string{p.a, p.b})
		}
	}

	result.Decisions = mergeClusters(tree, clusters, pairs, opts.SimilarityThreshold)

	return result, nil
}

// comparableIntents returns live intents carrying embeddings, in
// lexicographic id order.
func comparableIntents(tree *domain.IntentTree) []*domain.Intent {
	intents := make([]*domain.Intent, 0)

	for _, id := range tree.SortedIDs() {
		intent := tree.Get(id)
		if !intent.Merged() && intent.HasEmbedding() {
			intents = append(intents, intent)
		}
	}

	return intents
}

// scorePairs computes cosine similarity for every candidate pair passing
// the locality heuristic.
func scorePairs(tree *domain.IntentTree, intents []*domain.Intent, opts Options) ([]pair, error) {
	pairs := make([]pair, 0)

	for i := range intents {
		for j := i + 1; j < len(intents); j++ {
			a, b := intents[i], intents[j]

			if !opts.FullScan && !withinLocality(tree, a, b) {
				continue
			}

			similarity, err := cosine(a.Embedding, b.Embedding)
			if err != nil {
				return nil, fmt.Errorf("intents %s and %s: %w", a.ID, b.ID, err)
			}

			if similarity >= opts.ReviewThreshold {
				pairs = append(pairs, pair{a: a.ID, b: b.ID, similarity: similarity})
			}
		}
	}

	return pairs, nil
}

// withinLocality reports whether two intents share a parent or sit within
// localityLevels of a common ancestor. Cross-branch intents far apart in
// the tree are unlikely duplicates and are skipped.
func withinLocality(tree *domain.IntentTree, a, b *domain.Intent) bool {
	if a.ParentID == b.ParentID {
		return true
	}

	ancestorsA := nearAncestors(tree, a)
	ancestorsB := nearAncestors(tree, b)

	for id := range ancestorsA {
		if _, shared := ancestorsB[id]; shared {
			return true
		}
	}

	return false
}

// nearAncestors collects the intent itself and up to localityLevels of its
// ancestors.
func nearAncestors(tree *domain.IntentTree, intent *domain.Intent) map[string]struct{} {
	ancestors := map[string]struct{}{intent.ID: {}}
	current := intent

	for level := 0; level < localityLevels && current.ParentID != ""; level++ {
		parent := tree.Get(current.ParentID)
		if parent == nil {
			break
		}

		ancestors[parent.ID] = struct{}{}
		current = parent
	}

	return ancestors
}

// mergeClusters applies the merge policy to every union-find cluster:
// survivor is the member with the most questions, tie-broken by shallower
// depth, then lexicographically smaller id. Losers are marked merged, their
// questions and entities folded into the survivor, and their children
// re-parented.
func mergeClusters(tree *domain.IntentTree, clusters *unionFind, pairs []pair, threshold float64) []domain.MergeDecision {
	members := make(map[string][]string)

	for _, p := range pairs {
		if p.similarity < threshold {
			continue
		}

		rootA := clusters.find(p.a)
		members[rootA] = appendUnique(members[rootA], p.a)
		members[rootA] = appendUnique(members[rootA], p.b)
	}

	roots := make([]string, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	decisions := make([]domain.MergeDecision, 0, len(roots))

	for _, root := range roots {
		cluster := members[root]
		sort.Strings(cluster)

		survivor := pickSurvivor(tree, cluster)
		merged := make([]string, 0, len(cluster)-1)

		for _, id := range cluster {
			if id == survivor.ID {
				continue
			}

			absorb(tree, survivor, tree.Get(id))
			merged = append(merged, id)
		}

		decisions = append(decisions, domain.MergeDecision{
			SurvivorID: survivor.ID,
			MergedIDs:  merged,
			Similarity: clusterPeak(pairs, cluster, threshold),
		})
	}

	return decisions
}

// pickSurvivor applies the survivor policy over a cluster.
func pickSurvivor(tree *domain.IntentTree, cluster []string) *domain.Intent {
	survivor := tree.Get(cluster[0])

	for _, id := range cluster[1:] {
		contender := tree.Get(id)

		switch {
		case len(contender.Questions) > len(survivor.Questions):
			survivor = contender
		case len(contender.Questions) == len(survivor.Questions) && contender.Depth < survivor.Depth:
			survivor = contender
		case len(contender.Questions) == len(survivor.Questions) &&
			contender.Depth == survivor.Depth && contender.ID < survivor.ID:
			survivor = contender
		}
	}

	return survivor
}

// absorb folds a merged-away intent into the survivor: questions and
// entities are unioned, children re-parented, and the loser retained for
// audit with MergedInto set.
func absorb(tree *domain.IntentTree, survivor, loser *domain.Intent) {
	survivor.Questions = unionOrdered(survivor.Questions, loser.Questions)
	survivor.Entities = unionSorted(survivor.Entities, loser.Entities)
	survivor.MergedFrom = append(survivor.MergedFrom, loser.ID)
	sort.Strings(survivor.MergedFrom)

	// When the survivor is the loser's child, it takes the loser's place
	// instead of becoming its own parent.
	if survivor.ParentID == loser.ID {
		tree.Reparent(survivor.ID, loser.ParentID)
	}

	for _, child := range tree.Children(loser.ID) {
		if child.ID == survivor.ID {
			continue
		}

		tree.Reparent(child.ID, survivor.ID)
	}

	loser.MergedInto = survivor.ID
}

// clusterPeak returns the highest similarity among the cluster's merged pairs.
func clusterPeak(pairs []pair, cluster []string, threshold float64) float64 {
	inCluster := make(map[string]struct{}, len(cluster))
	for _, id := range cluster {
		inCluster[id] = struct{}{}
	}

	peak := 0.0

	for _, p := range pairs {
		if p.similarity < threshold {
			continue
		}

		_, hasA := inCluster[p.a]
		_, hasB := inCluster[p.b]

		if hasA && hasB && p.similarity > peak {
			peak = p.similarity
		}
	}

	return peak
}

// cosine computes cosine similarity between two equal-length vectors.
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64

	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// appendUnique appends id when not already present, preserving order.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}

	return append(ids, id)
}

// unionOrdered appends items from extra not already present in base,
// preserving base order then extra order.
func unionOrdered(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, item := range base {
		seen[item] = struct{}{}
	}

	for _, item := range extra {
		if _, dup := seen[item]; !dup {
			base = append(base, item)
			seen[item] = struct{}{}
		}
	}

	return base
}

// unionSorted merges two string sets into a sorted slice.
func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))

	for _, item := range a {
		set[item] = struct{}{}
	}
	for _, item := range b {
		set[item] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)

	return out
}
