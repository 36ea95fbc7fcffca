package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/corvid-labs/agentstream/bridge"
	"github.com/corvid-labs/agentstream/llmwire"
	"github.com/corvid-labs/agentstream/turn"
)

// Provider starts one model turn for a transcript and tool set.
type Provider interface {
	Stream(ctx context.Context, transcript []llmwire.Message, tools []llmwire.ToolSpec) (llmwire.Stream, error)
}

// Config configures an [Agent].
type Config struct {
	// Provider streams model turns. Required.
	Provider Provider

	// Registry holds the tools exposed to the model. A nil registry runs
	// the agent without tools.
	Registry *Registry

	// MaxIterations bounds the number of model turns per request. Values
	// below 1 default to 5.
	MaxIterations int

	// Log receives per-turn diagnostics. Nil disables logging.
	Log *logrus.Logger
}

// Agent runs the turn loop for one request at a time. An Agent is stateless
// across requests and safe for concurrent use.
type Agent struct {
	provider Provider
	registry *Registry
	maxIters int
	log      *logrus.Logger
}

// New creates an Agent from cfg.
func New(cfg Config) *Agent {
	a := &Agent{
		provider: cfg.Provider,
		registry: cfg.Registry,
		maxIters: cfg.MaxIterations,
		log:      cfg.Log,
	}
	if a.registry == nil {
		a.registry = NewRegistry()
	}
	if a.maxIters < 1 {
		a.maxIters = 5
	}
	if a.log == nil {
		a.log = logrus.New()
		a.log.SetOutput(io.Discard)
	}
	return a
}

// Run executes the agent loop: stream a model turn into sink, execute any
// requested tools, append their results to the transcript, and repeat until
// the model answers with text or the iteration budget is exhausted.
//
// Tool calls and their results are appended to the transcript in one batch
// at the end of each turn, in call order; the bridge never depends on this
// policy. On success the returned transcript ends with the final assistant
// message and sink has received its terminal sequence. On failure the error
// has already been reported through sink.OnError, which emits a
// protocol-valid termination.
func (a *Agent) Run(ctx context.Context, transcript []llmwire.Message, sink bridge.EventSink) ([]llmwire.Message, error) {
	specs := a.registry.Specs()
	var total llmwire.Usage

	for i := 0; i < a.maxIters; i++ {
		stream, err := a.provider.Stream(ctx, transcript, specs)
		if err != nil {
			sink.OnError(err.Error())
			return transcript, fmt.Errorf("starting model turn: %w", err)
		}

		res, err := turn.Collect(stream, sink)
		stream.Close()
		if err != nil {
			sink.OnError(err.Error())
			return transcript, err
		}
		total = total.Add(res.Usage)

		if !res.ToolDriven() {
			transcript = append(transcript, llmwire.Message{
				Role:    llmwire.RoleAssistant,
				Content: res.Content,
			})
			reason := res.FinishReason
			if reason == "" {
				reason = llmwire.FinishStop
			}
			if err := sink.OnFinish(reason, total); err != nil {
				return transcript, err
			}
			return transcript, nil
		}

		a.log.WithFields(logrus.Fields{
			"iteration": i,
			"calls":     len(res.ToolCalls),
		}).Debug("executing tool calls")

		transcript = append(transcript, llmwire.Message{
			Role:      llmwire.RoleAssistant,
			ToolCalls: res.ToolCalls,
		})

		results, err := a.dispatch(ctx, res.ToolCalls, sink)
		if err != nil {
			sink.OnError(err.Error())
			return transcript, err
		}
		transcript = append(transcript, results...)
	}

	err := fmt.Errorf("tool loop exceeded %d iterations", a.maxIters)
	sink.OnError(err.Error())
	return transcript, err
}

// dispatch executes the turn's tool calls concurrently. Each completion is
// reported through sink as it resolves (the bridge serializes frames); the
// returned transcript messages are ordered by call order regardless of
// completion order. A sink write failure aborts the loop; a tool failure does
// not, it becomes an error result the model can react to.
func (a *Agent) dispatch(ctx context.Context, calls []llmwire.ToolCall, sink bridge.EventSink) ([]llmwire.Message, error) {
	sources, _ := sink.(SourceSink)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make([]llmwire.Message, len(calls))

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llmwire.ToolCall) {
			defer wg.Done()

			result, isErr := a.invoke(ctx, call, sources)
			if err := sink.OnToolCallResult(call.ID, result, isErr); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[i] = llmwire.Message{
				Role:       llmwire.RoleTool,
				Content:    resultText(result),
				ToolCallID: call.ID,
			}
		}(i, call)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// invoke runs one tool call and reports whether the result is an error.
func (a *Agent) invoke(ctx context.Context, call llmwire.ToolCall, sources SourceSink) (any, bool) {
	tool, err := a.registry.Get(call.Name)
	if err != nil {
		return err.Error(), true
	}

	tc := &ToolContext{CallID: call.ID, Sources: sources}
	result, err := tool.Call(ctx, json.RawMessage(call.Args), tc)
	if err != nil {
		a.log.WithFields(logrus.Fields{
			"tool": call.Name,
			"call": call.ID,
		}).WithError(err).Warn("tool call failed")
		return err.Error(), true
	}
	return result, false
}

// resultText renders a tool result as the text content of a transcript tool
// message.
func resultText(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
