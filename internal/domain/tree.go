package domain

import (
	"sort"
	"strings"
)

// labelPrefixLen is the number of label runes used for the sibling index key.
const labelPrefixLen = 12

// IntentTree is the forest of all intents for one crawl run, with lookup
// indexes maintained on insertion. Iteration order follows insertion order
// so that identical inputs always produce identical traversals.
type IntentTree struct {
	intents map[string]*Intent
	order   []string

	bySourcePage  map[string][]string
	byLabelPrefix map[string][]string
	children      map[string][]string
}

// NewIntentTree creates an empty intent tree.
func NewIntentTree() *IntentTree {
	return &IntentTree{
		intents:       make(map[string]*Intent),
		bySourcePage:  make(map[string][]string),
		byLabelPrefix: make(map[string][]string),
		children:      make(map[string][]string),
	}
}

// Add inserts an intent and updates the indexes. Inserting a duplicate id
// is a no-op returning false.
func (t *IntentTree) Add(intent *Intent) bool {
	if _, exists := t.intents[intent.ID]; exists {
		return false
	}

	t.intents[intent.ID] = intent
	t.order = append(t.order, intent.ID)
	t.bySourcePage[intent.SourcePage] = append(t.bySourcePage[intent.SourcePage], intent.ID)

	prefix := labelPrefix(intent.Label)
	t.byLabelPrefix[prefix] = append(t.byLabelPrefix[prefix], intent.ID)

	if intent.ParentID != "" {
		t.children[intent.ParentID] = append(t.children[intent.ParentID], intent.ID)
	}

	return true
}

// Get returns the intent with the given id, or nil.
func (t *IntentTree) Get(id string) *Intent {
	return t.intents[id]
}

// All returns live and merged intents in insertion order.
func (t *IntentTree) All() []*Intent {
	out := make([]*Intent, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.intents[id])
	}

	return out
}

// Live returns intents that have not been merged away, in insertion order.
func (t *IntentTree) Live() []*Intent {
	out := make([]*Intent, 0, len(t.order))

	for _, id := range t.order {
		if intent := t.intents[id]; !intent.Merged() {
			out = append(out, intent)
		}
	}

	return out
}

// Roots returns live intents without a parent, in insertion order.
func (t *IntentTree) Roots() []*Intent {
	out := make([]*Intent, 0)

	for _, id := range t.order {
		if intent := t.intents[id]; intent.ParentID == "" && !intent.Merged() {
			out = append(out, intent)
		}
	}

	return out
}

// Children returns the live child intents of the given id in insertion order.
func (t *IntentTree) Children(id string) []*Intent {
	ids := t.children[id]
	out := make([]*Intent, 0, len(ids))

	for _, childID := range ids {
		if child := t.intents[childID]; !child.Merged() {
			out = append(out, child)
		}
	}

	return out
}

// IntentsForPage returns the ids of intents derived from the given canonical URL.
func (t *IntentTree) IntentsForPage(canonicalURL string) []string {
	return t.bySourcePage[canonicalURL]
}

// SiblingCandidates returns ids of intents whose label shares the same
// canonical prefix, used by the hierarchy builder for sibling lookups.
func (t *IntentTree) SiblingCandidates(label string) []string {
	return t.byLabelPrefix[labelPrefix(label)]
}

// Reparent moves an intent under a new parent, maintaining the child index.
func (t *IntentTree) Reparent(id, newParentID string) {
	intent, ok := t.intents[id]
	if !ok {
		return
	}

	if intent.ParentID != "" {
		t.children[intent.ParentID] = removeID(t.children[intent.ParentID], id)
	}

	intent.ParentID = newParentID
	if newParentID != "" {
		t.children[newParentID] = append(t.children[newParentID], id)
	}
}

// Len returns the total number of intents, merged ones included.
func (t *IntentTree) Len() int {
	return len(t.order)
}

// SortedIDs returns all intent ids in lexicographic order.
func (t *IntentTree) SortedIDs() []string {
	ids := make([]string, len(t.order))
	copy(ids, t.order)
	sort.Strings(ids)

	return ids
}

// labelPrefix lowercases a label and truncates it to the index key length.
func labelPrefix(label string) string {
	lowered := strings.ToLower(strings.TrimSpace(label))
	runes := []rune(lowered)

	if len(runes) > labelPrefixLen {
		return string(runes[:labelPrefixLen])
	}

	return lowered
}

// removeID removes the first occurrence of id from ids, preserving order.
func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}

	return ids
}
