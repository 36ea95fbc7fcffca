package rag

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBlob(t *testing.T) {
	blob := vectorBlob([]float32{1.5, -2.0})
	require.Len(t, blob, 8, "two float32 values")

	first := math.Float32frombits(binary.LittleEndian.Uint32([]byte(blob)[0:4]))
	second := math.Float32frombits(binary.LittleEndian.Uint32([]byte(blob)[4:8]))
	assert.Equal(t, float32(1.5), first)
	assert.Equal(t, float32(-2.0), second)
}

func TestParseSearchReply(t *testing.T) {
	raw := []any{
		int64(2),
		"doc:1",
		[]any{"text", "first passage", "title", "First", "url", "https://example.com/1", "score", "0.12"},
		"doc:2",
		[]any{"text", "second passage", "title", "Second", "url", "https://example.com/2", "score", "0.34"},
	}

	hits, err := parseSearchReply(raw)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "doc:1", hits[0].ID)
	assert.Equal(t, "first passage", hits[0].Text)
	assert.Equal(t, "First", hits[0].Title)
	assert.Equal(t, "https://example.com/1", hits[0].URL)
	assert.InDelta(t, 0.12, hits[0].Score, 1e-9)

	assert.Equal(t, "doc:2", hits[1].ID)
}

func TestParseSearchReply_RESP3Map(t *testing.T) {
	// Reply shape returned by RediSearch when the client negotiated RESP3,
	// which is the go-redis v9 default.
	raw := map[string]any{
		"total_results": int64(2),
		"format":        "STRING",
		"results": []any{
			map[string]any{
				"id": "doc:1",
				"extra_attributes": map[string]any{
					"text": "first passage", "title": "First",
					"url": "https://example.com/1", "score": "0.12",
				},
			},
			map[string]any{
				"id": "doc:2",
				"extra_attributes": map[string]any{
					"text": "second passage", "title": "Second",
					"url": "https://example.com/2", "score": "0.34",
				},
			},
		},
	}

	hits, err := parseSearchReply(raw)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "doc:1", hits[0].ID)
	assert.Equal(t, "first passage", hits[0].Text)
	assert.Equal(t, "https://example.com/1", hits[0].URL)
	assert.InDelta(t, 0.12, hits[0].Score, 1e-9)
	assert.Equal(t, "doc:2", hits[1].ID)
}

func TestParseSearchReply_RESP3MapAnyKeys(t *testing.T) {
	// Some client paths surface RESP3 maps keyed by any rather than string.
	raw := map[any]any{
		"total_results": int64(1),
		"results": []any{
			map[any]any{
				"id": "doc:1",
				"extra_attributes": map[any]any{
					"text": "body", "url": "https://example.com",
				},
			},
		},
	}

	hits, err := parseSearchReply(raw)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc:1", hits[0].ID)
	assert.Equal(t, "https://example.com", hits[0].URL)
}

func TestParseSearchReply_RESP3Empty(t *testing.T) {
	hits, err := parseSearchReply(map[string]any{
		"total_results": int64(0),
		"results":       []any{},
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestParseSearchReply_Empty(t *testing.T) {
	hits, err := parseSearchReply([]any{int64(0)})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestParseSearchReply_Malformed(t *testing.T) {
	_, err := parseSearchReply("not a reply")
	assert.Error(t, err)

	// A row with a non-array field list is skipped, not fatal.
	hits, err := parseSearchReply([]any{int64(1), "doc:1", "not-fields"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFormatHits(t *testing.T) {
	tests := []struct {
		name string
		hits []Hit
		want string
	}{
		{"empty", nil, "no results"},
		{
			"with_url",
			[]Hit{{Title: "Doc", URL: "https://example.com", Text: "body"}},
			"[1] Doc (https://example.com)\nbody",
		},
		{
			"without_url",
			[]Hit{{Title: "Doc", Text: "body"}},
			"[1] Doc\nbody",
		},
		{
			"multiple",
			[]Hit{
				{Title: "A", Text: "one"},
				{Title: "B", Text: "two"},
			},
			"[1] A\none\n\n[2] B\ntwo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHits(tt.hits))
		})
	}
}
