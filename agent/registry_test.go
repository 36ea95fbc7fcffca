package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SpecsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry(
		&echoTool{name: "zeta"},
		&echoTool{name: "alpha"},
		&echoTool{name: "mid"},
	)

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "zeta", specs[0].Name)
	assert.Equal(t, "alpha", specs[1].Name)
	assert.Equal(t, "mid", specs[2].Name)
}

func TestRegistry_RegisterReplacesKeepingOrder(t *testing.T) {
	first := &echoTool{name: "echo"}
	second := &echoTool{name: "echo"}

	r := NewRegistry(first, &echoTool{name: "other"})
	r.Register(second)

	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "echo", specs[0].Name, "replacement keeps original position")

	got, err := r.Get("echo")
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "missing"`)
}

func TestSchemaFor(t *testing.T) {
	type args struct {
		Query string `json:"query" jsonschema:"description=The search query"`
		Limit int    `json:"limit,omitempty"`
	}

	schema := SchemaFor(&args{})
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema should have properties: %v", schema)
	require.Contains(t, props, "query")

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "The search query", query["description"])

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Contains(t, required, "query")
	assert.NotContains(t, required, "limit")
}

func TestToolContext_AddSourceNilSafe(t *testing.T) {
	tc := &ToolContext{CallID: "call_1"}
	assert.NotPanics(t, func() {
		tc.AddSource("id", "https://example.com", "title")
	})
}

type captureSourceSink struct {
	parentID, id, url, title string
}

func (c *captureSourceSink) AddSourceWithParent(parentID, id, url, title string) {
	c.parentID, c.id, c.url, c.title = parentID, id, url, title
}

func TestToolContext_AddSourceAttributesCall(t *testing.T) {
	sink := &captureSourceSink{}
	tc := &ToolContext{CallID: "call_9", Sources: sink}

	tc.AddSource("s1", "https://example.com", "Example")

	assert.Equal(t, "call_9", sink.parentID)
	assert.Equal(t, "https://example.com", sink.url)
}
