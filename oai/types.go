// Package oai provides OpenAI-compatible chat completion types, converters
// between those types and the internal transcript representation, and a
// stateful SSE writer for streaming chat completion chunks.
//
// The request, response and chunk types mirror the OpenAI chat completion API
// and serialize with the standard OpenAI field names. [TranscriptFromMessages]
// and [SpecsFromTools] translate an inbound request into the transcript and
// tool set consumed by the model layer; [ResponseFromTurn] builds the
// non-streaming response from a collected turn.
package oai

import "encoding/json"

// ChatCompletionRequest represents an OpenAI-compatible chat completion
// request. Fields like Temperature, TopP, Stop, and N are accepted for API
// compatibility but not all of them are forwarded upstream.
type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	Stream              bool          `json:"stream,omitempty"`
	Temperature         *float64      `json:"temperature,omitempty"`
	MaxTokens           *int          `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int          `json:"max_completion_tokens,omitempty"`
	Tools               []Tool        `json:"tools,omitempty"`
	ToolChoice          any           `json:"tool_choice,omitempty"`
	Stop                any           `json:"stop,omitempty"`
	TopP                *float64      `json:"top_p,omitempty"`
	N                   *int          `json:"n,omitempty"`
	User                string        `json:"user,omitempty"`
}

// ChatMessage represents a single message in the conversation history.
// Role must be one of "system", "user", "assistant", or "tool".
//
// Content may be either a plain string or an array of [ContentPart] objects.
// Use [ChatMessage.StringContent] to extract the text regardless of form.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// StringContent extracts the textual content from the message as a plain
// string. It handles both a plain JSON string and an array of [ContentPart]
// objects, in which case all "text" parts are concatenated. Returns the empty
// string if Content is nil or cannot be interpreted.
func (m ChatMessage) StringContent() string {
	if m.Content == nil {
		return ""
	}
	switch v := m.Content.(type) {
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return ""
			}
			return s
		}
		var text string
		for _, p := range parts {
			if p.Type == "text" {
				text += p.Text
			}
		}
		return text
	}
}

// ContentPart is one element of a multi-part message content array. Only the
// "text" type is interpreted; other types are accepted and ignored.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Tool represents a tool definition in a chat completion request. Type must
// be "function"; other types are silently dropped during conversion.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function exposed to the model.
// Parameters is typically a JSON Schema object for the argument object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall represents a tool invocation surfaced in a response or chunk.
// Type is always "function".
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and its arguments as a raw JSON
// string, matching the OpenAI convention of returning arguments as text.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
