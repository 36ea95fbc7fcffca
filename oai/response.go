package oai

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/corvid-labs/agentstream/llmwire"
)

// ChatCompletionResponse represents an OpenAI-compatible non-streaming chat
// completion response. Object is always "chat.completion".
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a single completion alternative in the response.
// FinishReason indicates why generation stopped: "stop" for normal
// completion, "tool_calls" when the model invoked one or more tools, or
// "length" if the output was truncated due to token limits.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage contains token usage statistics for a completion request.
// TotalTokens is always the sum of the other two.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageFrom converts internal usage counts into the response representation.
func UsageFrom(u llmwire.Usage) *Usage {
	return &Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens(),
	}
}

// ErrorResponse represents an OpenAI-compatible error response body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information within an [ErrorResponse].
// Type categorizes the error (e.g. "invalid_request", "internal_error").
type ErrorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Code    *string `json:"code,omitempty"`
}

// ResponseFromTurn builds a non-streaming response from a collected model
// turn. When calls is non-empty the message carries tool_calls and the finish
// reason is forced to "tool_calls"; otherwise the message carries content and
// the mapped finish reason (defaulting to "stop").
func ResponseFromTurn(model, content string, calls []llmwire.ToolCall, reason llmwire.FinishReason, usage llmwire.Usage) *ChatCompletionResponse {
	msg := ChatMessage{Role: "assistant"}
	finish := MapFinishReason(reason)

	if len(calls) > 0 {
		finish = "tool_calls"
		for _, c := range calls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:   c.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      c.Name,
					Arguments: c.Args,
				},
			})
		}
	} else {
		msg.Content = content
	}

	return &ChatCompletionResponse{
		ID:      "chatcmpl-" + gonanoid.Must(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage:   UsageFrom(usage),
	}
}

// MapFinishReason maps the internal finish reason onto the OpenAI wire value.
// Unknown and empty reasons map to "stop".
func MapFinishReason(reason llmwire.FinishReason) string {
	switch reason {
	case llmwire.FinishStop:
		return "stop"
	case llmwire.FinishLength:
		return "length"
	case llmwire.FinishToolCalls:
		return "tool_calls"
	case llmwire.FinishContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}
