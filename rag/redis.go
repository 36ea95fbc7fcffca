package rag

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisSearcher performs KNN vector search against a RediSearch index. Each
// collection maps to one index named "idx:<collection>", whose documents are
// hashes with "embedding" (FLAT/HNSW vector field), "text", "title" and "url"
// fields.
type RedisSearcher struct {
	rdb   *redis.Client
	embed Embedder
	topK  int
}

// NewRedisSearcher creates a searcher returning at most topK hits per query.
// Values below 1 default to 4.
func NewRedisSearcher(rdb *redis.Client, embed Embedder, topK int) *RedisSearcher {
	if topK < 1 {
		topK = 4
	}
	return &RedisSearcher{rdb: rdb, embed: embed, topK: topK}
}

// Search embeds the query and runs a KNN lookup in the collection's index.
func (s *RedisSearcher) Search(ctx context.Context, query, collection string) ([]Hit, error) {
	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	args := []any{
		"FT.SEARCH", "idx:" + collection,
		fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", s.topK),
		"PARAMS", "2", "vec", vectorBlob(vec),
		"SORTBY", "score",
		"RETURN", "4", "text", "title", "url", "score",
		"DIALECT", "2",
	}
	raw, err := s.rdb.Do(ctx, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", collection, err)
	}
	return parseSearchReply(raw)
}

// vectorBlob encodes a vector as the little-endian float32 byte string
// RediSearch expects for KNN parameters.
func vectorBlob(vec []float32) string {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, vec)
	return buf.String()
}

// parseSearchReply converts a raw FT.SEARCH reply into hits. The reply shape
// depends on the negotiated protocol: RESP2 returns an array (a count followed
// by alternating document keys and field/value arrays), RESP3 returns a map
// with a "results" array of per-document maps. go-redis v9 speaks RESP3 by
// default, so both forms must be handled.
func parseSearchReply(raw any) ([]Hit, error) {
	switch reply := raw.(type) {
	case []any:
		return parseArrayReply(reply)
	case map[string]any:
		return parseMapReply(reply)
	case map[any]any:
		return parseMapReply(stringKeyed(reply))
	}
	return nil, fmt.Errorf("unexpected search reply %T", raw)
}

func parseArrayReply(rows []any) ([]Hit, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty search reply")
	}

	var hits []Hit
	for i := 1; i+1 < len(rows); i += 2 {
		key, _ := rows[i].(string)
		fields, ok := rows[i+1].([]any)
		if !ok {
			continue
		}

		hit := Hit{ID: key}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			value, _ := fields[j+1].(string)
			setHitField(&hit, name, value)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func parseMapReply(reply map[string]any) ([]Hit, error) {
	results, ok := reply["results"].([]any)
	if !ok {
		return nil, fmt.Errorf("search reply has no results array")
	}

	var hits []Hit
	for _, r := range results {
		doc := toStringMap(r)
		if doc == nil {
			continue
		}

		hit := Hit{}
		hit.ID, _ = doc["id"].(string)
		for name, value := range toStringMap(doc["extra_attributes"]) {
			s, _ := value.(string)
			setHitField(&hit, name, s)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func setHitField(hit *Hit, name, value string) {
	switch name {
	case "text":
		hit.Text = value
	case "title":
		hit.Title = value
	case "url":
		hit.URL = value
	case "score":
		hit.Score, _ = strconv.ParseFloat(value, 64)
	}
}

// toStringMap normalizes a reply map regardless of how the client keyed it.
func toStringMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case map[any]any:
		return stringKeyed(m)
	}
	return nil
}

func stringKeyed(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := k.(string); ok {
			out[s] = v
		}
	}
	return out
}
