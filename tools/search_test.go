package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/agentstream/agent"
	"github.com/corvid-labs/agentstream/rag"
)

type fakeSearcher struct {
	hits          []rag.Hit
	err           error
	gotQuery      string
	gotCollection string
}

func (f *fakeSearcher) Search(ctx context.Context, query, collection string) ([]rag.Hit, error) {
	f.gotQuery = query
	f.gotCollection = collection
	return f.hits, f.err
}

type recordedSource struct {
	parentID, id, url, title string
}

type sourceRecorder struct {
	sources []recordedSource
}

func (r *sourceRecorder) AddSourceWithParent(parentID, id, url, title string) {
	r.sources = append(r.sources, recordedSource{parentID, id, url, title})
}

func TestKnowledgeSearch_Call(t *testing.T) {
	searcher := &fakeSearcher{hits: []rag.Hit{
		{ID: "doc:1", Title: "Doc One", URL: "https://example.com/1", Text: "first"},
		{ID: "doc:2", Title: "No URL", Text: "second"},
	}}
	tool := NewKnowledgeSearch(searcher, "kb")
	recorder := &sourceRecorder{}
	tc := &agent.ToolContext{CallID: "call_1", Sources: recorder}

	result, err := tool.Call(context.Background(), json.RawMessage(`{"query":"go concurrency"}`), tc)
	require.NoError(t, err)

	assert.Equal(t, "go concurrency", searcher.gotQuery)
	assert.Equal(t, "kb", searcher.gotCollection)

	text, ok := result.(string)
	require.True(t, ok)
	assert.Contains(t, text, "[1] Doc One")
	assert.Contains(t, text, "first")

	// Only hits with a URL become citations, attributed to the call.
	require.Len(t, recorder.sources, 1)
	assert.Equal(t, "call_1", recorder.sources[0].parentID)
	assert.Equal(t, "doc:1", recorder.sources[0].id)
	assert.Equal(t, "https://example.com/1", recorder.sources[0].url)
}

func TestKnowledgeSearch_InvalidArgs(t *testing.T) {
	tool := NewKnowledgeSearch(&fakeSearcher{}, "kb")
	tc := &agent.ToolContext{}

	_, err := tool.Call(context.Background(), json.RawMessage(`{broken`), tc)
	assert.Error(t, err)

	_, err = tool.Call(context.Background(), json.RawMessage(`{"query":""}`), tc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query must not be empty")
}

func TestKnowledgeSearch_SearcherError(t *testing.T) {
	tool := NewKnowledgeSearch(&fakeSearcher{err: errors.New("index missing")}, "kb")
	_, err := tool.Call(context.Background(), json.RawMessage(`{"query":"x"}`), &agent.ToolContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index missing")
}

func TestKnowledgeSearch_Schema(t *testing.T) {
	tool := NewKnowledgeSearch(&fakeSearcher{}, "kb")

	assert.Equal(t, "knowledge_search", tool.Name())
	assert.NotEmpty(t, tool.Description())

	schema := tool.Parameters()
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
}
