package llmwire

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// OpenAIProvider produces model event streams from an OpenAI-compatible chat
// completion endpoint. It owns no per-turn state; one provider may serve many
// concurrent turns.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a provider that streams completions for the given
// model through client.
func NewOpenAIProvider(client openai.Client, model string) *OpenAIProvider {
	return &OpenAIProvider{client: client, model: model}
}

// Model returns the model name this provider streams from.
func (p *OpenAIProvider) Model() string { return p.model }

// Stream starts one model turn for the given transcript and tool set. The
// caller must call Close on the returned stream when done.
func (p *OpenAIProvider) Stream(ctx context.Context, transcript []Message, tools []ToolSpec) (Stream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: toParamMessages(transcript),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}

	s := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("starting completion stream: %w", err)
	}
	return &openaiStream{s: s}, nil
}

func toParamMessages(transcript []Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript))
	for _, m := range transcript {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))

		case RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))

		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				msgs = append(msgs, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Args,
					},
				})
			}
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})

		case RoleTool:
			msgs = append(msgs, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return msgs
}

// pendingCall accumulates the fragments of one streamed tool call. OpenAI
// streams tool calls as indexed deltas: the first fragment carries the id and
// name, later fragments append to the argument text.
type pendingCall struct {
	id   string
	name string
	args []byte
}

// openaiStream translates an OpenAI chunk stream into Events. Tool call
// fragments are coalesced so that every [ToolCallBegin] carries the complete
// argument object.
type openaiStream struct {
	s       *ssestream.Stream[openai.ChatCompletionChunk]
	queue   []Event
	calls   []pendingCall
	finish  FinishReason
	usage   *Usage
	drained bool
	done    bool
}

// Next returns the next event. It returns io.EOF after the [StreamEnd] event
// has been delivered.
func (os *openaiStream) Next() (Event, error) {
	for {
		if len(os.queue) > 0 {
			ev := os.queue[0]
			os.queue = os.queue[1:]
			return ev, nil
		}
		if os.done {
			return nil, io.EOF
		}
		if os.drained {
			os.flushCalls()
			os.queue = append(os.queue, &StreamEnd{FinishReason: os.finish, Usage: os.usage})
			os.done = true
			continue
		}

		if !os.s.Next() {
			if err := os.s.Err(); err != nil {
				return nil, fmt.Errorf("completion stream: %w", err)
			}
			os.drained = true
			continue
		}
		os.ingest(os.s.Current())
	}
}

func (os *openaiStream) ingest(chunk openai.ChatCompletionChunk) {
	if chunk.Usage.PromptTokens != 0 || chunk.Usage.CompletionTokens != 0 {
		os.usage = &Usage{
			PromptTokens:     int(chunk.Usage.PromptTokens),
			CompletionTokens: int(chunk.Usage.CompletionTokens),
		}
	}
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		os.queue = append(os.queue, &TextAppend{Text: choice.Delta.Content})
	}
	for _, tc := range choice.Delta.ToolCalls {
		idx := int(tc.Index)
		for len(os.calls) <= idx {
			os.calls = append(os.calls, pendingCall{})
		}
		pc := &os.calls[idx]
		if tc.ID != "" {
			pc.id = tc.ID
		}
		if tc.Function.Name != "" {
			pc.name = tc.Function.Name
		}
		pc.args = append(pc.args, tc.Function.Arguments...)
	}
	if choice.FinishReason != "" {
		os.finish = ParseFinishReason(choice.FinishReason)
	}
}

// flushCalls emits one ToolCallBegin per accumulated call, in index order.
// Calls with no arguments default to an empty JSON object.
func (os *openaiStream) flushCalls() {
	for _, pc := range os.calls {
		if pc.name == "" {
			continue
		}
		args := string(pc.args)
		if args == "" {
			args = "{}"
		}
		os.queue = append(os.queue, &ToolCallBegin{ID: pc.id, Name: pc.name, Args: args})
	}
	os.calls = nil
}

// Close terminates the stream and releases resources.
func (os *openaiStream) Close() error {
	os.done = true
	return os.s.Close()
}
