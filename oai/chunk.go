package oai

// ChatCompletionChunk represents a single server-sent event in a streaming
// chat completion response. Object is always "chat.completion.chunk". ID and
// Created are fixed for the lifetime of one stream.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChunkChoice represents the single choice in a streaming chunk. FinishReason
// is nil for intermediate chunks. It is non-nil on the final empty-delta chunk
// of a plain-text turn, and on the chunk that introduces a tool call (where it
// carries "tool_calls").
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta represents the incremental content in a streaming chunk. The
// first delta of a stream carries Role ("assistant"); subsequent deltas omit
// it. Content is a pointer so that an empty string can be distinguished from
// an absent field.
type ChunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []DeltaToolCall `json:"tool_calls,omitempty"`
}

// DeltaToolCall is a tool invocation carried in a chunk delta. Index
// positions the call within the turn's tool_calls array.
type DeltaToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}
