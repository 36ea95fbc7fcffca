package oai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// StreamWriter serializes chat completion chunks to an SSE stream, one
// "data: {json}\n\n" event per chunk, flushing after every event.
//
// The writer owns the per-stream chunk identity (ID and Created are generated
// once at construction) and the delta state machine: the first chunk of the
// stream carries role "assistant", the chunk introducing a tool call carries
// finish_reason "tool_calls", and a later plain text delta clears the
// saw-tool-call flag so the stream can still end with a normal "stop".
//
// StreamWriter performs no locking; the bridge layer serializes access.
type StreamWriter struct {
	w       io.Writer
	flusher http.Flusher

	id      string
	model   string
	created int64

	sentRole    bool
	sawToolCall bool
	doneSent    bool
}

// NewStreamWriter creates a StreamWriter for one response stream. When w
// implements http.Flusher, every event is flushed as it is written.
func NewStreamWriter(w io.Writer, model string) *StreamWriter {
	flusher, _ := w.(http.Flusher)
	return &StreamWriter{
		w:       w,
		flusher: flusher,
		id:      "chatcmpl-" + gonanoid.Must(),
		model:   model,
		created: time.Now().Unix(),
	}
}

// ID returns the chunk id shared by every event of this stream.
func (sw *StreamWriter) ID() string { return sw.id }

// SawToolCall reports whether a tool call has been written since the last
// plain text delta.
func (sw *StreamWriter) SawToolCall() bool { return sw.sawToolCall }

// WriteTextDelta writes a content-bearing chunk. Writing text clears the
// saw-tool-call flag.
func (sw *StreamWriter) WriteTextDelta(text string) error {
	sw.sawToolCall = false
	chunk := sw.newChunk()
	chunk.Choices[0].Delta.Content = &text
	return sw.writeEvent(chunk)
}

// WriteToolCallStart writes the chunk that introduces a tool call. The chunk
// carries the call in delta.tool_calls and finish_reason "tool_calls"; this
// protocol signals tool-call intent on the introducing chunk, not with a
// separate terminal marker.
func (sw *StreamWriter) WriteToolCallStart(callID, toolName, args string) error {
	sw.sawToolCall = true
	reason := "tool_calls"
	chunk := sw.newChunk()
	chunk.Choices[0].Delta.ToolCalls = []DeltaToolCall{{
		Index: 0,
		ID:    callID,
		Type:  "function",
		Function: FunctionCall{
			Name:      toolName,
			Arguments: args,
		},
	}}
	chunk.Choices[0].FinishReason = &reason
	return sw.writeEvent(chunk)
}

// WriteFinish writes the final empty-delta chunk carrying reason. Callers
// skip it when the turn already ended on a tool-call chunk.
func (sw *StreamWriter) WriteFinish(reason string) error {
	chunk := sw.newChunk()
	chunk.Choices[0].FinishReason = &reason
	return sw.writeEvent(chunk)
}

// WriteError writes a minimal error payload as its own SSE event.
func (sw *StreamWriter) WriteError(message string) error {
	return sw.writeEvent(map[string]string{"error": message})
}

// WriteDone writes the "data: [DONE]" sentinel. It is idempotent: only the
// first call emits the sentinel.
func (sw *StreamWriter) WriteDone() error {
	if sw.doneSent {
		return nil
	}
	sw.doneSent = true
	if _, err := fmt.Fprint(sw.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	sw.flush()
	return nil
}

func (sw *StreamWriter) newChunk() *ChatCompletionChunk {
	chunk := &ChatCompletionChunk{
		ID:      sw.id,
		Object:  "chat.completion.chunk",
		Created: sw.created,
		Model:   sw.model,
		Choices: []ChunkChoice{{Index: 0}},
	}
	if !sw.sentRole {
		sw.sentRole = true
		chunk.Choices[0].Delta.Role = "assistant"
	}
	return chunk
}

func (sw *StreamWriter) writeEvent(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	sw.flush()
	return nil
}

func (sw *StreamWriter) flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}
