// Package intents defines the intent-candidate generator collaborator
// boundary. The real generator is an external topic-modeling or LLM
// service; the engine treats it as opaque, possibly slow, and possibly
// failing, and assumes nothing about embeddings beyond fixed length and
// cosine comparability within one run.
package intents

import (
	"context"

	"github.com/jonesrussell/intentmap/internal/domain"
)

// Generator produces intent candidates for one fetched page.
type Generator interface {
	Generate(ctx context.Context, page domain.Page) ([]domain.IntentCandidate, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, page domain.Page) ([]domain.IntentCandidate, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, page domain.Page) ([]domain.IntentCandidate, error) {
	return f(ctx, page)
}
