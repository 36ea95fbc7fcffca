// Package agent drives LLM agent turns: it streams model events through a
// turn collector into a protocol bridge, executes requested tools, feeds
// their results back into the transcript, and repeats until the model
// produces a final assistant message.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/corvid-labs/agentstream/llmwire"
)

// SourceSink receives citations emitted during tool execution. The data
// stream bridge satisfies it; protocols without a citation frame simply
// don't, and tools then run without one.
type SourceSink interface {
	AddSourceWithParent(parentID, id, url, title string)
}

// ToolContext carries per-invocation context into a tool. Sources is nil
// when the active protocol has no citation support; use
// [ToolContext.AddSource], which is nil-safe and attributes the citation to
// this call.
type ToolContext struct {
	CallID  string
	Sources SourceSink
}

// AddSource queues a citation attributed to this tool call. No-op when the
// protocol has no citation support.
func (tc *ToolContext) AddSource(id, url, title string) {
	if tc.Sources == nil {
		return
	}
	tc.Sources.AddSourceWithParent(tc.CallID, id, url, title)
}

// Tool is a capability the model can invoke. Parameters returns a JSON
// Schema object for the tool's argument object; [SchemaFor] derives one from
// an args struct.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Call(ctx context.Context, args json.RawMessage, tc *ToolContext) (any, error)
}

// Registry holds the tools exposed to the model, preserving registration
// order for the specs sent upstream.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a Registry with the given tools registered in order.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool by name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool, or an error when it is not registered.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t, nil
}

// Specs returns the tool specs in registration order, for the upstream
// request.
func (r *Registry) Specs() []llmwire.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]llmwire.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		specs = append(specs, llmwire.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return specs
}

// SchemaFor derives a JSON Schema object from an args struct, suitable for a
// tool's Parameters. Field descriptions come from jsonschema struct tags.
func SchemaFor(v any) map[string]any {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	s := r.Reflect(v)
	s.Version = ""

	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
