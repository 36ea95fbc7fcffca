package bridge

import (
	"io"
	"sync"

	"github.com/corvid-labs/agentstream/llmwire"
	"github.com/corvid-labs/agentstream/oai"
)

// OpenAIBridge maps agent events onto SSE chat completion chunks.
//
// Chunk identity (id, created) is fixed per bridge instance; the delta state
// machine (role preamble, saw-tool-call flag) lives in the underlying
// [oai.StreamWriter]. A single mutex serializes all operations.
//
// Tool results are deliberately not streamed to the client: in this protocol
// they re-enter the model as the next turn's input, which is the caller's
// responsibility, so OnToolCallResult is a no-op. Citations have no chunk
// representation either; OnSource accepts and discards them.
type OpenAIBridge struct {
	mu       sync.Mutex
	w        *oai.StreamWriter
	finished bool
}

// NewOpenAIBridge creates a bridge writing chunks for model to w. The bridge
// takes exclusive ownership of the response stream.
func NewOpenAIBridge(w io.Writer, model string) *OpenAIBridge {
	return &OpenAIBridge{w: oai.NewStreamWriter(w, model)}
}

var _ EventSink = (*OpenAIBridge)(nil)

// OnTextDelta writes a content chunk. Empty deltas are a no-op.
func (b *OpenAIBridge) OnTextDelta(delta string) error {
	if delta == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.WriteTextDelta(delta)
}

// OnToolCallStart writes the chunk introducing the call, which carries
// finish_reason "tool_calls".
func (b *OpenAIBridge) OnToolCallStart(callID, toolName, args string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.WriteToolCallStart(callID, toolName, args)
}

// OnToolCallArgsDelta is a no-op; this bridge emits complete arguments on the
// introducing chunk.
func (b *OpenAIBridge) OnToolCallArgsDelta(callID, argsDelta string) error { return nil }

// OnToolCallResult is a no-op; see the type documentation.
func (b *OpenAIBridge) OnToolCallResult(callID string, result any, isError bool) error { return nil }

// OnSource is a no-op; the chunk schema has no citation representation.
func (b *OpenAIBridge) OnSource(id, url, title string) error { return nil }

// OnFinish terminates the stream. If the turn did not end on a tool-call
// chunk, a final empty-delta chunk carries the mapped finish reason. The
// [DONE] sentinel follows exactly once; repeated calls are silently ignored.
func (b *OpenAIBridge) OnFinish(reason llmwire.FinishReason, usage llmwire.Usage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return nil
	}
	b.finished = true
	if !b.w.SawToolCall() {
		if err := b.w.WriteFinish(oai.MapFinishReason(reason)); err != nil {
			return err
		}
	}
	return b.w.WriteDone()
}

// OnError writes a minimal error event, then still terminates the stream
// with [DONE] so the client parser does not hang. After [DONE] has been
// sent, OnError is silently ignored.
func (b *OpenAIBridge) OnError(message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return nil
	}
	b.finished = true
	if err := b.w.WriteError(message); err != nil {
		return err
	}
	return b.w.WriteDone()
}
