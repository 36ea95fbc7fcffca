package bridge

import (
	"sync"

	"github.com/google/uuid"

	"github.com/corvid-labs/agentstream/datastream"
	"github.com/corvid-labs/agentstream/llmwire"
)

// RootParentID is the parent attributed to citations queued outside any tool
// call.
const RootParentID = "root"

// toolCallFrame is one entry of the active-call stack.
type toolCallFrame struct {
	id   string
	name string
}

// pendingSource is a citation awaiting flush at OnFinish.
type pendingSource struct {
	id       string
	url      string
	title    string
	parentID string
}

// DataStreamBridge maps agent events onto the line-framed data stream
// protocol.
//
// The bridge keeps a last-in-first-out stack of active tool calls to resolve
// source attribution and to pair results with calls, and an ordered buffer of
// pending citations that is deduplicated by URL and flushed exactly once at
// OnFinish. A single mutex serializes state mutation and the frame write, so
// concurrent tool completions never interleave frames mid-line.
//
// After the terminal 'd' frame has been written, further OnFinish calls are
// silently ignored.
type DataStreamBridge struct {
	mu       sync.Mutex
	w        *datastream.Writer
	stack    []toolCallFrame
	sources  []pendingSource
	finished bool
}

// NewDataStreamBridge creates a bridge that writes to w. The bridge takes
// exclusive ownership of the writer for the lifetime of the response.
func NewDataStreamBridge(w *datastream.Writer) *DataStreamBridge {
	return &DataStreamBridge{w: w}
}

var _ EventSink = (*DataStreamBridge)(nil)

// OnTextDelta writes a '0' frame. Empty deltas are a no-op.
func (b *DataStreamBridge) OnTextDelta(delta string) error {
	if delta == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.WriteText(delta)
}

// OnToolCallStart pushes the call onto the active stack and writes a 'b'
// frame. When another call is already active, it becomes the new call's
// parent on the wire.
func (b *DataStreamBridge) OnToolCallStart(callID, toolName, args string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame := datastream.ToolCallBeginFrame{
		ToolCallID: callID,
		ToolName:   toolName,
	}
	if top := b.top(); top != nil {
		frame.ParentID = top.id
	}
	b.stack = append(b.stack, toolCallFrame{id: callID, name: toolName})

	if err := b.w.WriteToolCallBegin(frame); err != nil {
		return err
	}
	if args != "" {
		return b.w.WriteToolCallDelta(datastream.ToolCallDeltaFrame{
			ToolCallID:    callID,
			ArgsTextDelta: args,
		})
	}
	return nil
}

// OnToolCallArgsDelta writes a 'c' frame.
func (b *DataStreamBridge) OnToolCallArgsDelta(callID, argsDelta string) error {
	if argsDelta == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.WriteToolCallDelta(datastream.ToolCallDeltaFrame{
		ToolCallID:    callID,
		ArgsTextDelta: argsDelta,
	})
}

// OnToolCallResult writes an 'a' frame. The effective call id is resolved by
// popping the stack when its top matches callID (or when callID is empty);
// otherwise callID is used verbatim as a fallback for out-of-order or
// externally supplied ids.
func (b *DataStreamBridge) OnToolCallResult(callID string, result any, isError bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := callID
	if top := b.top(); top != nil && (callID == "" || top.id == callID) {
		id = top.id
		b.stack = b.stack[:len(b.stack)-1]
	}

	return b.w.WriteToolResult(datastream.ToolResultFrame{
		ToolCallID: id,
		Result:     encodeResult(result),
		IsError:    isError,
	})
}

// OnSource queues a citation attributed to the currently active tool call,
// or to [RootParentID] when no call is active. Nothing is written until
// OnFinish.
func (b *DataStreamBridge) OnSource(id, url, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queueSource(id, url, title, "")
	return nil
}

// AddSource queues a citation like OnSource. It exists as a public extension
// of the sink contract so that tool implementations and other callers can
// attach citations directly to the response stream.
func (b *DataStreamBridge) AddSource(id, url, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queueSource(id, url, title, "")
}

// AddSourceWithParent queues a citation with an explicit parent id instead of
// inferring it from the active call stack.
func (b *DataStreamBridge) AddSourceWithParent(parentID, id, url, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queueSource(id, url, title, parentID)
}

// queueSource appends to the pending buffer. Caller holds b.mu.
func (b *DataStreamBridge) queueSource(id, url, title, parentID string) {
	if url == "" {
		return
	}
	if id == "" {
		id = uuid.NewString()
	}
	if parentID == "" {
		parentID = RootParentID
		if top := b.top(); top != nil {
			parentID = top.id
		}
	}
	b.sources = append(b.sources, pendingSource{id: id, url: url, title: title, parentID: parentID})
}

// OnFinish flushes pending citations (deduplicated by URL, first occurrence
// wins, stable order) and writes the terminal 'd' frame. A second call after
// the terminal frame is silently ignored.
func (b *DataStreamBridge) OnFinish(reason llmwire.FinishReason, usage llmwire.Usage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return nil
	}
	if err := b.flushSources(); err != nil {
		return err
	}
	b.finished = true
	return b.w.WriteFinish(datastream.FinishFrame{
		FinishReason: mapDataStreamFinish(reason),
		Usage: datastream.FrameUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
		},
	})
}

// OnError writes a '3' frame followed by the terminal 'd' frame (reason
// "error") so the client parser terminates instead of hanging. Pending
// citations are discarded. After the terminal frame has been written, OnError
// is silently ignored; nothing follows a 'd' frame on the wire.
func (b *DataStreamBridge) OnError(message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return nil
	}
	b.finished = true
	b.sources = nil

	if err := b.w.WriteError(message); err != nil {
		return err
	}
	return b.w.WriteFinish(datastream.FinishFrame{FinishReason: "error"})
}

// flushSources writes one 'h' frame per unique URL, in first-occurrence
// order, and clears the buffer. Caller holds b.mu.
func (b *DataStreamBridge) flushSources() error {
	seen := make(map[string]bool, len(b.sources))
	for _, src := range b.sources {
		if seen[src.url] {
			continue
		}
		seen[src.url] = true
		err := b.w.WriteSource(datastream.SourceFrame{
			ID:       src.id,
			URL:      src.url,
			Title:    src.title,
			ParentID: src.parentID,
		})
		if err != nil {
			return err
		}
	}
	b.sources = nil
	return nil
}

// top returns the most recently started active call, or nil. Caller holds b.mu.
func (b *DataStreamBridge) top() *toolCallFrame {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

// mapDataStreamFinish maps the internal finish reason onto the data stream
// wire value. Empty and unknown reasons map to "unknown".
func mapDataStreamFinish(reason llmwire.FinishReason) string {
	switch reason {
	case llmwire.FinishStop:
		return "stop"
	case llmwire.FinishLength:
		return "length"
	case llmwire.FinishToolCalls:
		return "tool-calls"
	case llmwire.FinishContentFilter:
		return "content-filter"
	case llmwire.FinishOther:
		return "other"
	default:
		return "unknown"
	}
}
