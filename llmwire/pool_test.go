package llmwire

import (
	"context"
	"testing"
	"time"
)

func TestPool_UnknownProvider(t *testing.T) {
	p := NewPool(PoolConfig{Providers: map[string]ProviderConfig{}})

	_, err := p.Stream(context.Background(), "missing", nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestPool_LazyConstructionAndReuse(t *testing.T) {
	p := NewPool(PoolConfig{Providers: map[string]ProviderConfig{
		"default": {APIKey: "sk-test", Model: "m1"},
	}})

	first, err := p.provider("default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.provider("default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Error("provider should be constructed once and reused")
	}
}

func TestPool_SemaphoreBlocksAtCapacity(t *testing.T) {
	p := NewPool(PoolConfig{
		Providers:     map[string]ProviderConfig{"default": {APIKey: "k", Model: "m"}},
		MaxConcurrent: 1,
	})

	// Take the only slot directly.
	p.sem <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Stream(ctx, "default", nil, nil)
	if err == nil {
		t.Fatal("expected acquisition to fail when pool is saturated")
	}
	if ctx.Err() == nil {
		t.Error("stream should have blocked until the context deadline")
	}
}

func TestPooledStream_ReleasesSlotOnceOnClose(t *testing.T) {
	p := NewPool(PoolConfig{
		Providers:     map[string]ProviderConfig{"default": {APIKey: "k", Model: "m"}},
		MaxConcurrent: 1,
	})
	p.sem <- struct{}{}

	s := &pooledStream{Stream: &nopStream{}, pool: p}
	s.Close()
	s.Close() // double close must not release twice

	if len(p.sem) != 0 {
		t.Errorf("semaphore length = %d, want 0", len(p.sem))
	}
	select {
	case p.sem <- struct{}{}:
	default:
		t.Fatal("slot not available after close")
	}
	select {
	case p.sem <- struct{}{}:
		t.Fatal("second slot available; Close released more than once")
	default:
	}
}

type nopStream struct{}

func (nopStream) Next() (Event, error) { return nil, nil }
func (nopStream) Close() error         { return nil }

func TestBoundProvider_UsesName(t *testing.T) {
	p := NewPool(PoolConfig{Providers: map[string]ProviderConfig{}})
	b := p.Named("missing")

	if _, err := b.Stream(context.Background(), nil, nil); err == nil {
		t.Fatal("expected unknown-provider error through bound provider")
	}
}
