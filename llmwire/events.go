// Package llmwire defines the provider-neutral event vocabulary for a single
// LLM turn, along with a streaming NDJSON parser for the recorded wire form.
//
// A model turn is consumed as an ordered sequence of events. Each event is one
// of three kinds:
//
//   - [TextAppend]: an incremental fragment of assistant text.
//   - [ToolCallBegin]: the model requested a tool invocation, carrying the
//     tool name and the full JSON arguments. The ID may be empty; consumers
//     are expected to synthesize one.
//   - [StreamEnd]: the turn finished, carrying the finish reason and token
//     usage when the provider reported them.
//
// All event types implement the [Event] interface, which provides type
// discrimination via [Event.EvType].
//
// Events are produced either live, by an [OpenAIProvider] translating a
// provider's streaming chat completion, or from a recording via [Parser]:
//
//	p := llmwire.NewParser(r)
//	for {
//	    ev, err := p.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    switch e := ev.(type) {
//	    case *llmwire.TextAppend:
//	        fmt.Print(e.Text)
//	    case *llmwire.ToolCallBegin:
//	        fmt.Println("tool:", e.Name)
//	    case *llmwire.StreamEnd:
//	        fmt.Println("finish:", e.FinishReason)
//	    }
//	}
//
// This is the lowest-level package in the agentstream dependency chain.
package llmwire

// EventType identifies the kind of event emitted during a model turn.
type EventType string

const (
	// TypeText identifies a [TextAppend] event.
	TypeText EventType = "text"

	// TypeToolCall identifies a [ToolCallBegin] event.
	TypeToolCall EventType = "tool_call"

	// TypeEnd identifies a [StreamEnd] event, the last event of a turn.
	TypeEnd EventType = "end"
)

// Event is the common interface implemented by all model event types. Use a
// type switch on the concrete type to access event-specific fields.
type Event interface {
	// EvType returns the [EventType] that identifies this event kind.
	EvType() EventType
}

// TextAppend is an incremental fragment of assistant text. Fragments arrive
// in generation order; concatenating them yields the full assistant message.
type TextAppend struct {
	Text string `json:"text"`
}

// EvType returns [TypeText].
func (e *TextAppend) EvType() EventType { return TypeText }

// ToolCallBegin announces a tool invocation requested by the model. Args is
// the complete JSON-encoded argument object for the call.
//
// ID may be empty when the upstream provider did not assign one. Every
// consumer that surfaces the call downstream must synthesize a unique,
// collision-resistant ID in that case and use it consistently for the
// lifetime of the call.
type ToolCallBegin struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// EvType returns [TypeToolCall].
func (e *ToolCallBegin) EvType() EventType { return TypeToolCall }

// StreamEnd is the terminal event of a turn. FinishReason is empty when the
// provider did not report one (for example when the stream was truncated).
type StreamEnd struct {
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
}

// EvType returns [TypeEnd].
func (e *StreamEnd) EvType() EventType { return TypeEnd }

// Stream reads typed events from a running model turn. Implementations are
// single-consumer; Next must not be called concurrently.
type Stream interface {
	// Next reads and returns the next event. Returns io.EOF when the turn
	// is exhausted.
	Next() (Event, error)

	// Close releases any resources held by the underlying stream.
	Close() error
}

// FinishReason is the closed set of reasons a turn can end with.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther         FinishReason = "other"
)

// ParseFinishReason maps a provider-reported finish reason string onto the
// closed [FinishReason] set. Unknown non-empty values map to [FinishOther];
// the empty string stays empty so truncated turns remain distinguishable.
func ParseFinishReason(s string) FinishReason {
	switch FinishReason(s) {
	case FinishStop, FinishLength, FinishToolCalls, FinishContentFilter:
		return FinishReason(s)
	case "":
		return ""
	default:
		return FinishOther
	}
}

// Usage contains token counts for one model turn. TotalTokens is derived and
// intentionally not a field, so the sum invariant cannot be violated by
// partially populated values.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// TotalTokens returns PromptTokens + CompletionTokens.
func (u Usage) TotalTokens() int { return u.PromptTokens + u.CompletionTokens }

// Add returns the element-wise sum of two usages. Used to aggregate usage
// across the turns of a tool loop.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
	}
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in the conversation transcript sent to the model.
//
// Assistant messages that requested tools carry ToolCalls; tool messages
// returning results carry the ToolCallID they answer.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation recorded in the transcript. Args is the
// JSON-encoded argument object.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// ToolSpec describes a tool exposed to the model. Parameters is a JSON Schema
// object for the tool's argument object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}
