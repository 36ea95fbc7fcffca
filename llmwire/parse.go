package llmwire

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Parser reads NDJSON from an io.Reader and produces typed Event values.
// Each line is a JSON object with a "type" field discriminating between
// "text", "tool_call" and "end". This is the recorded form of a model turn,
// used for replay and for test fixtures.
type Parser struct {
	scanner *bufio.Scanner
}

// NewParser creates a Parser that reads from r.
func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // 4MB max line
	return &Parser{scanner: scanner}
}

// envelope is used for initial type discrimination.
type envelope struct {
	Type string `json:"type"`
}

// Next reads and returns the next Event. Returns io.EOF when the stream ends.
func (p *Parser) Next() (Event, error) {
	for p.scanner.Scan() {
		line := p.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			// Skip malformed lines
			continue
		}

		ev, err := parseTyped(env.Type, line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s event: %w", env.Type, err)
		}
		if ev == nil {
			continue
		}
		return ev, nil
	}

	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return nil, io.EOF
}

func parseTyped(typ string, data []byte) (Event, error) {
	switch EventType(typ) {
	case TypeText:
		var ev TextAppend
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return &ev, nil

	case TypeToolCall:
		var ev ToolCallBegin
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return &ev, nil

	case TypeEnd:
		var ev StreamEnd
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		ev.FinishReason = ParseFinishReason(string(ev.FinishReason))
		return &ev, nil

	default:
		// Unknown event types are silently skipped
		return nil, nil
	}
}

// ReaderStream adapts a Parser to the [Stream] interface. Close is a no-op;
// the caller retains ownership of the underlying reader.
type ReaderStream struct {
	p *Parser
}

// NewReaderStream creates a Stream that replays the NDJSON event recording
// read from r.
func NewReaderStream(r io.Reader) *ReaderStream {
	return &ReaderStream{p: NewParser(r)}
}

// Next returns the next recorded event, or io.EOF at end of input.
func (s *ReaderStream) Next() (Event, error) { return s.p.Next() }

// Close implements [Stream]. It is a no-op.
func (s *ReaderStream) Close() error { return nil }
