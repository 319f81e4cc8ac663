package domain

// IntentCandidate is the raw per-page output of the external intent
// generator before placement in the tree. The embedding is optional; its
// length is opaque to the engine and only compared within one run.
type IntentCandidate struct {
	Label     string    `json:"label"`
	Questions []string  `json:"questions"`
	Entities  []string  `json:"entities"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// Intent is a node in the intent tree: one distinct user goal derived from
// one page. Intents are never deleted; collision merging marks the losers
// with MergedInto and records their ids on the survivor's MergedFrom.
type Intent struct {
	ID         string `json:"id"`
	SourcePage string `json:"source_page"`
	ParentID   string `json:"parent_id,omitempty"`

	Label     string   `json:"label"`
	Questions []string `json:"questions"`
	Entities  []string `json:"entities"`

	Embedding []float64 `json:"embedding,omitempty"`
	Depth     int       `json:"depth"`

	// Merge bookkeeping
	MergedFrom       []string `json:"merged_from,omitempty"`
	MergedInto       string   `json:"merged_into,omitempty"`
	FlaggedForReview bool     `json:"flagged_for_review,omitempty"`
}

// Merged reports whether this intent has been absorbed into a survivor.
func (i *Intent) Merged() bool {
	return i.MergedInto != ""
}

// HasEmbedding reports whether the intent carries a comparable vector.
func (i *Intent) HasEmbedding() bool {
	return len(i.Embedding) > 0
}
