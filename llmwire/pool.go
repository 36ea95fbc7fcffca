package llmwire

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ProviderConfig describes one named upstream endpoint in a [Pool].
type ProviderConfig struct {
	// APIKey authenticates against the upstream endpoint.
	APIKey string

	// BaseURL overrides the endpoint base URL. Empty means the OpenAI default.
	BaseURL string

	// Model is the model to request from this endpoint.
	Model string
}

// PoolConfig configures a [Pool].
type PoolConfig struct {
	// Providers maps provider names to their endpoint configuration.
	Providers map[string]ProviderConfig

	// MaxConcurrent is the maximum number of turns streaming at once across
	// all providers. 0 means unlimited.
	MaxConcurrent int

	// DefaultTimeout is the per-turn deadline. 0 means context-only.
	DefaultTimeout time.Duration
}

// Pool is a keyed registry of upstream providers. Clients are constructed
// lazily on first use and reused for the lifetime of the pool. The pool also
// enforces a global concurrency cap on in-flight turns.
type Pool struct {
	cfg PoolConfig
	sem chan struct{} // concurrency semaphore; nil if unlimited

	mu        sync.Mutex
	providers map[string]*OpenAIProvider
}

// NewPool creates a Pool with the given configuration.
func NewPool(cfg PoolConfig) *Pool {
	p := &Pool{
		cfg:       cfg,
		providers: make(map[string]*OpenAIProvider),
	}
	if cfg.MaxConcurrent > 0 {
		p.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	return p
}

// provider returns the lazily constructed provider for name.
func (p *Pool) provider(name string) (*OpenAIProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prov, ok := p.providers[name]; ok {
		return prov, nil
	}
	cfg, ok := p.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	prov := NewOpenAIProvider(openai.NewClient(opts...), cfg.Model)
	p.providers[name] = prov
	return prov, nil
}

// Stream starts one model turn against the named provider. It blocks until a
// concurrency slot is available (or ctx is cancelled), and the slot is held
// until the returned stream is closed. The caller must call Close.
func (p *Pool) Stream(ctx context.Context, name string, transcript []Message, tools []ToolSpec) (Stream, error) {
	prov, err := p.provider(name)
	if err != nil {
		return nil, err
	}

	if p.sem != nil {
		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, fmt.Errorf("acquiring stream slot: %w", ctx.Err())
		}
	}

	var cancel context.CancelFunc
	if p.cfg.DefaultTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DefaultTimeout)
	}

	s, err := prov.Stream(ctx, transcript, tools)
	if err != nil {
		p.release()
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	return &pooledStream{Stream: s, pool: p, cancel: cancel}, nil
}

// Named binds a provider name into a value satisfying the single-provider
// streaming contract consumed by the agent loop.
func (p *Pool) Named(name string) *BoundProvider {
	return &BoundProvider{pool: p, name: name}
}

func (p *Pool) release() {
	if p.sem != nil {
		<-p.sem
	}
}

// BoundProvider is a Pool entry fixed to one provider name.
type BoundProvider struct {
	pool *Pool
	name string
}

// Stream starts a turn against the bound provider.
func (b *BoundProvider) Stream(ctx context.Context, transcript []Message, tools []ToolSpec) (Stream, error) {
	return b.pool.Stream(ctx, b.name, transcript, tools)
}

// pooledStream releases the pool slot exactly once on Close.
type pooledStream struct {
	Stream
	pool   *Pool
	cancel context.CancelFunc
	once   sync.Once
}

func (s *pooledStream) Close() error {
	err := s.Stream.Close()
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.pool.release()
	})
	return err
}
