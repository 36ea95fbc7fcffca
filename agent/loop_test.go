package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/agentstream/llmwire"
)

// scriptedProvider returns one canned event sequence per model turn.
type scriptedProvider struct {
	turns [][]llmwire.Event
	calls int
}

func (p *scriptedProvider) Stream(ctx context.Context, transcript []llmwire.Message, tools []llmwire.ToolSpec) (llmwire.Stream, error) {
	if p.calls >= len(p.turns) {
		return nil, errors.New("no more scripted turns")
	}
	events := p.turns[p.calls]
	p.calls++
	return &sliceStream{events: events}, nil
}

type sliceStream struct {
	events []llmwire.Event
	pos    int
}

func (s *sliceStream) Next() (llmwire.Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *sliceStream) Close() error { return nil }

// traceSink records sink operations in order.
type traceSink struct {
	ops      []string
	finishes int
	errors   int
}

func (s *traceSink) OnTextDelta(delta string) error {
	s.ops = append(s.ops, "text:"+delta)
	return nil
}
func (s *traceSink) OnToolCallStart(id, name, args string) error {
	s.ops = append(s.ops, "call:"+name)
	return nil
}
func (s *traceSink) OnToolCallArgsDelta(id, delta string) error { return nil }
func (s *traceSink) OnToolCallResult(id string, result any, isError bool) error {
	s.ops = append(s.ops, "result")
	return nil
}
func (s *traceSink) OnSource(id, url, title string) error { return nil }
func (s *traceSink) OnFinish(reason llmwire.FinishReason, usage llmwire.Usage) error {
	s.finishes++
	s.ops = append(s.ops, "finish:"+string(reason))
	return nil
}
func (s *traceSink) OnError(message string) error {
	s.errors++
	s.ops = append(s.ops, "error")
	return nil
}

// echoTool returns its arguments verbatim.
type echoTool struct {
	name     string
	fail     bool
	invoked  int
	lastArgs string
}

func (t *echoTool) Name() string               { return t.name }
func (t *echoTool) Description() string        { return "echoes arguments" }
func (t *echoTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t *echoTool) Call(ctx context.Context, args json.RawMessage, tc *ToolContext) (any, error) {
	t.invoked++
	t.lastArgs = string(args)
	if t.fail {
		return nil, errors.New("echo failed")
	}
	return "echo:" + string(args), nil
}

func userTurn(text string) []llmwire.Message {
	return []llmwire.Message{{Role: llmwire.RoleUser, Content: text}}
}

func TestAgent_TextOnlyTurn(t *testing.T) {
	provider := &scriptedProvider{turns: [][]llmwire.Event{{
		&llmwire.TextAppend{Text: "Hello"},
		&llmwire.StreamEnd{FinishReason: llmwire.FinishStop, Usage: &llmwire.Usage{PromptTokens: 2, CompletionTokens: 1}},
	}}}
	sink := &traceSink{}
	a := New(Config{Provider: provider})

	transcript, err := a.Run(context.Background(), userTurn("hi"), sink)
	require.NoError(t, err)

	require.Len(t, transcript, 2)
	assert.Equal(t, llmwire.RoleAssistant, transcript[1].Role)
	assert.Equal(t, "Hello", transcript[1].Content)
	assert.Equal(t, 1, sink.finishes)
	assert.Equal(t, []string{"text:Hello", "finish:stop"}, sink.ops)
}

func TestAgent_ToolLoop(t *testing.T) {
	tool := &echoTool{name: "echo"}
	provider := &scriptedProvider{turns: [][]llmwire.Event{
		{
			&llmwire.ToolCallBegin{ID: "call_1", Name: "echo", Args: `{"x":1}`},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishToolCalls},
		},
		{
			&llmwire.TextAppend{Text: "done"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishStop},
		},
	}}
	sink := &traceSink{}
	a := New(Config{Provider: provider, Registry: NewRegistry(tool)})

	transcript, err := a.Run(context.Background(), userTurn("go"), sink)
	require.NoError(t, err)

	assert.Equal(t, 1, tool.invoked)
	assert.Equal(t, `{"x":1}`, tool.lastArgs)
	assert.Equal(t, 2, provider.calls)

	// user, assistant(tool_calls), tool result, final assistant
	require.Len(t, transcript, 4)
	assert.Equal(t, llmwire.RoleAssistant, transcript[1].Role)
	require.Len(t, transcript[1].ToolCalls, 1)
	assert.Equal(t, "call_1", transcript[1].ToolCalls[0].ID)
	assert.Equal(t, llmwire.RoleTool, transcript[2].Role)
	assert.Equal(t, "call_1", transcript[2].ToolCallID)
	assert.Equal(t, `echo:{"x":1}`, transcript[2].Content)
	assert.Equal(t, "done", transcript[3].Content)

	assert.Equal(t, []string{"call:echo", "result", "text:done", "finish:stop"}, sink.ops)
}

func TestAgent_ToolResultsKeepCallOrder(t *testing.T) {
	a := New(Config{Provider: &scriptedProvider{turns: [][]llmwire.Event{
		{
			&llmwire.ToolCallBegin{ID: "a", Name: "first", Args: "{}"},
			&llmwire.ToolCallBegin{ID: "b", Name: "second", Args: "{}"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishToolCalls},
		},
		{
			&llmwire.TextAppend{Text: "ok"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishStop},
		},
	}}, Registry: NewRegistry(&echoTool{name: "first"}, &echoTool{name: "second"})})

	transcript, err := a.Run(context.Background(), userTurn("go"), &traceSink{})
	require.NoError(t, err)

	// Regardless of completion order, transcript order follows call order.
	require.Len(t, transcript, 5)
	assert.Equal(t, "a", transcript[2].ToolCallID)
	assert.Equal(t, "b", transcript[3].ToolCallID)
}

func TestAgent_ToolFailureBecomesErrorResult(t *testing.T) {
	tool := &echoTool{name: "echo", fail: true}
	provider := &scriptedProvider{turns: [][]llmwire.Event{
		{
			&llmwire.ToolCallBegin{ID: "call_1", Name: "echo", Args: "{}"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishToolCalls},
		},
		{
			&llmwire.TextAppend{Text: "recovered"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishStop},
		},
	}}
	sink := &traceSink{}
	a := New(Config{Provider: provider, Registry: NewRegistry(tool)})

	transcript, err := a.Run(context.Background(), userTurn("go"), sink)
	require.NoError(t, err, "a failing tool must not abort the loop")

	assert.Equal(t, "echo failed", transcript[2].Content)
	assert.Equal(t, 0, sink.errors)
}

func TestAgent_UnknownToolBecomesErrorResult(t *testing.T) {
	provider := &scriptedProvider{turns: [][]llmwire.Event{
		{
			&llmwire.ToolCallBegin{ID: "call_1", Name: "nope", Args: "{}"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishToolCalls},
		},
		{
			&llmwire.TextAppend{Text: "ok"},
			&llmwire.StreamEnd{FinishReason: llmwire.FinishStop},
		},
	}}
	a := New(Config{Provider: provider})

	transcript, err := a.Run(context.Background(), userTurn("go"), &traceSink{})
	require.NoError(t, err)
	assert.Contains(t, transcript[2].Content, "unknown tool")
}

func TestAgent_IterationBudgetExhausted(t *testing.T) {
	// Every turn requests another tool call; the loop must give up.
	toolTurn := []llmwire.Event{
		&llmwire.ToolCallBegin{ID: "c", Name: "echo", Args: "{}"},
		&llmwire.StreamEnd{FinishReason: llmwire.FinishToolCalls},
	}
	provider := &scriptedProvider{turns: [][]llmwire.Event{toolTurn, toolTurn, toolTurn}}
	sink := &traceSink{}
	a := New(Config{
		Provider:      provider,
		Registry:      NewRegistry(&echoTool{name: "echo"}),
		MaxIterations: 3,
	})

	_, err := a.Run(context.Background(), userTurn("go"), sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 3 iterations")
	assert.Equal(t, 1, sink.errors, "exhaustion must be reported through the sink")
	assert.Equal(t, 0, sink.finishes)
}

func TestAgent_ProviderErrorReportedThroughSink(t *testing.T) {
	sink := &traceSink{}
	a := New(Config{Provider: &scriptedProvider{}}) // zero turns scripted

	_, err := a.Run(context.Background(), userTurn("go"), sink)
	require.Error(t, err)
	assert.Equal(t, 1, sink.errors)
}

func TestAgent_EmptyFinishReasonDefaultsToStop(t *testing.T) {
	provider := &scriptedProvider{turns: [][]llmwire.Event{{
		&llmwire.TextAppend{Text: "truncated"},
		// no StreamEnd event at all
	}}}
	sink := &traceSink{}
	a := New(Config{Provider: provider})

	_, err := a.Run(context.Background(), userTurn("go"), sink)
	require.NoError(t, err)
	assert.Equal(t, "finish:stop", sink.ops[len(sink.ops)-1])
}
