// Package turn collects the event stream of a single model turn into a
// structured result, forwarding each event to a protocol sink as it arrives.
package turn

import (
	"errors"
	"fmt"
	"io"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/corvid-labs/agentstream/bridge"
	"github.com/corvid-labs/agentstream/llmwire"
)

// Result is the outcome of one collected turn: either an assistant message
// (Content plus finish metadata) or an ordered list of tool calls. The two
// are mutually exclusive; once any tool call occurs in a turn, the turn is
// tool-driven and accumulated text is discarded.
type Result struct {
	Content      string
	FinishReason llmwire.FinishReason
	Usage        llmwire.Usage
	ToolCalls    []llmwire.ToolCall
}

// ToolDriven reports whether the turn produced tool calls.
func (r *Result) ToolDriven() bool { return len(r.ToolCalls) > 0 }

// Collect consumes stream until exhaustion, forwarding events to sink in
// arrival order, and returns the structured turn result.
//
// Text fragments are accumulated and forwarded until the first tool call;
// after that, further text is neither accumulated nor forwarded: text and
// tool calls are mutually exclusive outcomes per turn, so trailing text on a
// tool-driven turn is dropped. Tool calls missing an upstream id
// get a synthesized collision-resistant one, used consistently downstream.
//
// A stream that ends without a terminal event (upstream truncation) yields a
// result with zero-value finish metadata. Sink errors are transport
// failures: collection stops immediately and the error is returned.
func Collect(stream llmwire.Stream, sink bridge.EventSink) (*Result, error) {
	var (
		res Result
		buf strings.Builder
	)

	for {
		ev, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading model stream: %w", err)
		}

		switch e := ev.(type) {
		case *llmwire.TextAppend:
			if res.ToolDriven() || e.Text == "" {
				continue
			}
			buf.WriteString(e.Text)
			if err := sink.OnTextDelta(e.Text); err != nil {
				return nil, err
			}

		case *llmwire.ToolCallBegin:
			id := e.ID
			if id == "" {
				id = NewCallID()
			}
			res.ToolCalls = append(res.ToolCalls, llmwire.ToolCall{
				ID:   id,
				Name: e.Name,
				Args: e.Args,
			})
			if err := sink.OnToolCallStart(id, e.Name, e.Args); err != nil {
				return nil, err
			}

		case *llmwire.StreamEnd:
			res.FinishReason = e.FinishReason
			if e.Usage != nil {
				res.Usage = *e.Usage
			}
		}
	}

	if !res.ToolDriven() {
		res.Content = buf.String()
	}
	return &res, nil
}

// NewCallID returns a fresh tool call id in the form "call_<nanoid>".
func NewCallID() string {
	return "call_" + gonanoid.Must()
}
