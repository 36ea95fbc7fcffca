// Package bridge translates generic agent events into protocol-specific wire
// frames.
//
// [EventSink] is the capability contract shared by both protocol bridges. The
// turn collector and the agent loop speak only this interface; the two
// implementations, [DataStreamBridge] for the line-framed data stream
// protocol and [OpenAIBridge] for SSE chat completion chunks, own all
// protocol state (tool-call stacks, pending citations, delta preambles) and
// serialize concurrent callers so frames are never interleaved on the wire.
//
// A bridge instance is created per HTTP response and exclusively owns its
// writer; it must never be shared across connections.
package bridge

import "github.com/corvid-labs/agentstream/llmwire"

// EventSink receives the ordered events of an agent turn and emits them in a
// protocol-specific wire form. For any two events offered in order A-then-B,
// the corresponding frames appear on the wire in that order.
//
// Implementations serialize all methods internally; callers may invoke them
// from concurrent goroutines (e.g. parallel tool completions). Every method
// may fail with a transport error, after which the caller should stop
// offering events.
type EventSink interface {
	// OnTextDelta emits an incremental fragment of assistant text. Empty
	// fragments are a no-op.
	OnTextDelta(delta string) error

	// OnToolCallStart announces a new tool invocation. It must be called
	// before any OnToolCallArgsDelta or OnToolCallResult for the same id.
	OnToolCallStart(callID, toolName, args string) error

	// OnToolCallArgsDelta streams a fragment of the call's JSON argument
	// text. Implementations that do not stream arguments treat it as a
	// no-op.
	OnToolCallArgsDelta(callID, argsDelta string) error

	// OnToolCallResult announces completion of a tool call. The result is
	// serialized into the frame's native value representation; values that
	// cannot be structurally encoded fall back to a string form.
	OnToolCallResult(callID string, result any, isError bool) error

	// OnSource queues a citation for the current turn. Implementations
	// without a citation frame treat it as a no-op.
	OnSource(id, url, title string) error

	// OnFinish terminates the turn: any queued citations are flushed first,
	// then the protocol's terminal frame/sequence is written. A second call
	// after the terminal frame was sent is silently ignored.
	OnFinish(reason llmwire.FinishReason, usage llmwire.Usage) error

	// OnError reports an out-of-band failure. The bridge still produces a
	// protocol-valid terminal sequence so client parsers terminate cleanly.
	OnError(message string) error
}

// NopSink discards all events. It backs non-streaming request handling,
// where the collected turn result is rendered in one response body.
type NopSink struct{}

func (NopSink) OnTextDelta(string) error                           { return nil }
func (NopSink) OnToolCallStart(string, string, string) error       { return nil }
func (NopSink) OnToolCallArgsDelta(string, string) error           { return nil }
func (NopSink) OnToolCallResult(string, any, bool) error           { return nil }
func (NopSink) OnSource(string, string, string) error              { return nil }
func (NopSink) OnFinish(llmwire.FinishReason, llmwire.Usage) error { return nil }
func (NopSink) OnError(string) error                               { return nil }
