package oai

import "github.com/corvid-labs/agentstream/llmwire"

// TranscriptFromMessages converts the messages of an inbound chat completion
// request into the internal transcript representation. Unknown roles are
// dropped.
func TranscriptFromMessages(msgs []ChatMessage) []llmwire.Message {
	transcript := make([]llmwire.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			transcript = append(transcript, llmwire.Message{
				Role:    llmwire.RoleSystem,
				Content: m.StringContent(),
			})

		case "user":
			transcript = append(transcript, llmwire.Message{
				Role:    llmwire.RoleUser,
				Content: m.StringContent(),
			})

		case "assistant":
			out := llmwire.Message{
				Role:    llmwire.RoleAssistant,
				Content: m.StringContent(),
			}
			for _, tc := range m.ToolCalls {
				out.ToolCalls = append(out.ToolCalls, llmwire.ToolCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: tc.Function.Arguments,
				})
			}
			transcript = append(transcript, out)

		case "tool":
			transcript = append(transcript, llmwire.Message{
				Role:       llmwire.RoleTool,
				Content:    m.StringContent(),
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return transcript
}

// SpecsFromTools converts request tool definitions into the internal tool
// spec representation. Non-function tools are dropped.
func SpecsFromTools(tools []Tool) []llmwire.ToolSpec {
	var specs []llmwire.ToolSpec
	for _, t := range tools {
		if t.Type != "function" {
			continue
		}
		specs = append(specs, llmwire.ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return specs
}
