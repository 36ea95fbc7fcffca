// Package tools contains the built-in tools exposed to the model by the
// agent loop: knowledge-base search and URL fetching. Both attach citations
// to the response stream through the tool context.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corvid-labs/agentstream/agent"
	"github.com/corvid-labs/agentstream/rag"
)

// KnowledgeSearch looks up passages in the configured knowledge collection
// and cites the documents it surfaces.
type KnowledgeSearch struct {
	searcher   rag.Searcher
	collection string
}

// NewKnowledgeSearch creates the tool over searcher, querying collection.
func NewKnowledgeSearch(searcher rag.Searcher, collection string) *KnowledgeSearch {
	return &KnowledgeSearch{searcher: searcher, collection: collection}
}

type knowledgeSearchArgs struct {
	Query string `json:"query" jsonschema:"description=The search query,required"`
}

func (t *KnowledgeSearch) Name() string { return "knowledge_search" }

func (t *KnowledgeSearch) Description() string {
	return "Search the knowledge base for passages relevant to a query. Returns ranked excerpts."
}

func (t *KnowledgeSearch) Parameters() map[string]any {
	return agent.SchemaFor(&knowledgeSearchArgs{})
}

// Call runs the search. Every hit with a URL is queued as a citation
// attributed to this call.
func (t *KnowledgeSearch) Call(ctx context.Context, args json.RawMessage, tc *agent.ToolContext) (any, error) {
	var a knowledgeSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	hits, err := t.searcher.Search(ctx, a.Query, t.collection)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if h.URL != "" {
			tc.AddSource(h.ID, h.URL, h.Title)
		}
	}
	return rag.FormatHits(hits), nil
}
