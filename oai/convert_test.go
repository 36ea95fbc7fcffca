package oai

import (
	"testing"

	"github.com/corvid-labs/agentstream/llmwire"
)

func TestChatMessage_StringContent(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"plain_string", "hello", "hello"},
		{"nil", nil, ""},
		{
			"content_parts",
			[]any{
				map[string]any{"type": "text", "text": "part one "},
				map[string]any{"type": "image_url", "image_url": "ignored"},
				map[string]any{"type": "text", "text": "part two"},
			},
			"part one part two",
		},
		{"uninterpretable", 42, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ChatMessage{Role: "user", Content: tt.content}
			if got := m.StringContent(); got != tt.want {
				t.Errorf("StringContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranscriptFromMessages(t *testing.T) {
	msgs := []ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: FunctionCall{Name: "search", Arguments: `{"q":"x"}`},
			}},
		},
		{Role: "tool", Content: "result text", ToolCallID: "call_1"},
		{Role: "developer", Content: "dropped"},
	}

	transcript := TranscriptFromMessages(msgs)
	if len(transcript) != 4 {
		t.Fatalf("len(transcript) = %d, want 4 (unknown role dropped)", len(transcript))
	}

	if transcript[0].Role != llmwire.RoleSystem || transcript[0].Content != "be terse" {
		t.Errorf("transcript[0] = %+v", transcript[0])
	}
	if transcript[1].Role != llmwire.RoleUser {
		t.Errorf("transcript[1].Role = %q", transcript[1].Role)
	}

	assistant := transcript[2]
	if assistant.Role != llmwire.RoleAssistant {
		t.Errorf("transcript[2].Role = %q", assistant.Role)
	}
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(assistant.ToolCalls))
	}
	if assistant.ToolCalls[0].Name != "search" || assistant.ToolCalls[0].Args != `{"q":"x"}` {
		t.Errorf("ToolCalls[0] = %+v", assistant.ToolCalls[0])
	}

	tool := transcript[3]
	if tool.Role != llmwire.RoleTool || tool.ToolCallID != "call_1" {
		t.Errorf("transcript[3] = %+v", tool)
	}
}

func TestSpecsFromTools(t *testing.T) {
	tools := []Tool{
		{
			Type: "function",
			Function: FunctionDefinition{
				Name:        "search",
				Description: "Search the knowledge base",
				Parameters:  map[string]any{"type": "object"},
			},
		},
		{Type: "retrieval"}, // dropped
	}

	specs := SpecsFromTools(tools)
	if len(specs) != 1 {
		t.Fatalf("len(specs) = %d, want 1", len(specs))
	}
	if specs[0].Name != "search" || specs[0].Description != "Search the knowledge base" {
		t.Errorf("specs[0] = %+v", specs[0])
	}
	if specs[0].Parameters["type"] != "object" {
		t.Errorf("Parameters = %+v", specs[0].Parameters)
	}
}

func TestResponseFromTurn_Text(t *testing.T) {
	resp := ResponseFromTurn("m1", "The answer", nil, llmwire.FinishStop, llmwire.Usage{PromptTokens: 3, CompletionTokens: 4})

	if resp.Object != "chat.completion" {
		t.Errorf("Object = %q", resp.Object)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("len(Choices) = %d, want 1", len(resp.Choices))
	}
	choice := resp.Choices[0]
	if choice.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", choice.FinishReason)
	}
	if choice.Message.Content != "The answer" {
		t.Errorf("Content = %v", choice.Message.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", resp.Usage.TotalTokens)
	}
}

func TestResponseFromTurn_ToolCalls(t *testing.T) {
	calls := []llmwire.ToolCall{{ID: "call_1", Name: "search", Args: "{}"}}
	resp := ResponseFromTurn("m1", "", calls, "", llmwire.Usage{})

	choice := resp.Choices[0]
	if choice.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls (forced by calls)", choice.FinishReason)
	}
	if len(choice.Message.ToolCalls) != 1 {
		t.Fatalf("len(ToolCalls) = %d, want 1", len(choice.Message.ToolCalls))
	}
	tc := choice.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Type != "function" || tc.Function.Name != "search" {
		t.Errorf("ToolCalls[0] = %+v", tc)
	}
}
