// Package export serializes a finished intent tree for downstream
// consumption as JSON or CSV. Export of a run that failed its structural
// invariants is refused.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/intentmap/internal/domain"
)

// ErrInvalidRun is returned when asked to export a run that ended with a
// hierarchy invariant violation.
var ErrInvalidRun = errors.New("refusing to export invalid run")

// sampleQuestionLimit caps the questions included per CSV row.
const sampleQuestionLimit = 3

// Node is the serializable form of one intent subtree.
type Node struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	SourcePage       string   `json:"source_page"`
	Questions        []string `json:"questions,omitempty"`
	Entities         []string `json:"entities,omitempty"`
	MergedFrom       []string `json:"merged_from,omitempty"`
	FlaggedForReview bool     `json:"flagged_for_review,omitempty"`
	Children         []*Node  `json:"children,omitempty"`
}

// Document is the top-level JSON export shape.
type Document struct {
	Summary *domain.CrawlSummary `json:"summary,omitempty"`
	Roots   []*Node              `json:"intents"`
}

// JSON renders the tree (and optional summary) as indented JSON.
func JSON(tree *domain.IntentTree, summary *domain.CrawlSummary) ([]byte, error) {
	if tree == nil {
		return nil, ErrInvalidRun
	}

	doc := &Document{Summary: summary}
	for _, root := range tree.Roots() {
		doc.Roots = append(doc.Roots, buildNode(tree, root))
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal intent tree: %w", err)
	}

	return out, nil
}

// CSV renders live intents as flat rows: label, source URL, sample
// questions, entities, and merge/review markers.
func CSV(tree *domain.IntentTree) ([]byte, error) {
	if tree == nil {
		return nil, ErrInvalidRun
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"label", "source_url", "sample_questions", "entities", "merged_from", "flagged_for_review"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, intent := range tree.Live() {
		row := []string{
			intent.Label,
			intent.SourcePage,
			strings.Join(sampleQuestions(intent.Questions), "; "),
			strings.Join(intent.Entities, "; "),
			strings.Join(intent.MergedFrom, "; "),
			fmt.Sprintf("%t", intent.FlaggedForReview),
		}

		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// buildNode converts one intent and its live descendants.
func buildNode(tree *domain.IntentTree, intent *domain.Intent) *Node {
	node := &Node{
		ID:               intent.ID,
		Label:            intent.Label,
		SourcePage:       intent.SourcePage,
		Questions:        intent.Questions,
		Entities:         intent.Entities,
		MergedFrom:       intent.MergedFrom,
		FlaggedForReview: intent.FlaggedForReview,
	}

	for _, child := range tree.Children(intent.ID) {
		node.Children = append(node.Children, buildNode(tree, child))
	}

	return node
}

// sampleQuestions truncates the question list for tabular output.
func sampleQuestions(questions []string) []string {
	if len(questions) <= sampleQuestionLimit {
		return questions
	}

	return questions[:sampleQuestionLimit]
}
