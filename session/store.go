// Package session persists conversation transcripts between requests, keyed
// by session id, in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/corvid-labs/agentstream/llmwire"
)

const keyPrefix = "agentstream:session:"

// Store reads and writes transcripts in Redis. Entries expire after the
// configured TTL; every save renews it.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a Store. A non-positive ttl defaults to 24 hours.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// Load returns the transcript stored under id, or nil when the session does
// not exist.
func (s *Store) Load(ctx context.Context, id string) ([]llmwire.Message, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return DecodeTranscript(data)
}

// Save stores the transcript under id and renews its TTL.
func (s *Store) Save(ctx context.Context, id string, transcript []llmwire.Message) error {
	data, err := EncodeTranscript(transcript)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	return nil
}

// EncodeTranscript serializes a transcript for storage.
func EncodeTranscript(transcript []llmwire.Message) ([]byte, error) {
	data, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("encoding transcript: %w", err)
	}
	return data, nil
}

// DecodeTranscript deserializes a stored transcript.
func DecodeTranscript(data []byte) ([]llmwire.Message, error) {
	var transcript []llmwire.Message
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}
	return transcript, nil
}
