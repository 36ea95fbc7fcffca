// Package rag provides the vector search capability consumed by the
// knowledge tool: embed a query, look up nearest neighbors in a named
// collection, and return ranked hits.
package rag

import (
	"context"
	"fmt"
	"strings"
)

// Hit is one ranked search result.
type Hit struct {
	ID    string
	Title string
	URL   string
	Text  string
	Score float64
}

// Searcher performs a ranked nearest-neighbor lookup in a named collection.
type Searcher interface {
	Search(ctx context.Context, query, collection string) ([]Hit, error)
}

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FormatHits renders hits as plain text for a tool result, one numbered
// passage per hit.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "no results"
	}
	var b strings.Builder
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, h.Title)
		if h.URL != "" {
			fmt.Fprintf(&b, " (%s)", h.URL)
		}
		b.WriteString("\n")
		b.WriteString(h.Text)
	}
	return b.String()
}
