package retrieval

import "context"

// Passage is a scored fragment of indexed company or position material.
type Passage struct {
	Text   string
	Source string
	Score  float64
}

// Searcher retrieves the passages most relevant to a candidate question.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Passage, error)
}
