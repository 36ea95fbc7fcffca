// Package datastream implements the line-framed data stream protocol used by
// incremental-rendering chat frontends.
//
// Each frame is one line of the form "{code}:{json}\n", where the code is a
// single character identifying the frame kind:
//
//	0  text delta            JSON string
//	b  tool call begin       {toolCallId, toolName, parentId?}
//	c  tool args delta       {toolCallId, argsTextDelta}
//	a  tool result           {toolCallId, result, artifact?, isError?}
//	h  source / citation     {sourceType:"url", id, url, title?, parentId?}
//	d  finish message        {finishReason, usage:{promptTokens, completionTokens}}
//	3  error                 JSON string
//
// Optional keys are omitted entirely when absent; the protocol treats a
// missing key as "use default" and a frame never carries an explicit null in
// its place.
//
// Encoding is stateless: one encode function per frame variant, each producing
// a complete line. [Writer] pairs the codec with an output stream and flushes
// after every frame, so each frame reaches the client before the next begins.
package datastream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FrameCode is the single-character discriminator at the start of each line.
type FrameCode byte

const (
	CodeText          FrameCode = '0'
	CodeToolCallBegin FrameCode = 'b'
	CodeToolCallDelta FrameCode = 'c'
	CodeToolResult    FrameCode = 'a'
	CodeSource        FrameCode = 'h'
	CodeFinish        FrameCode = 'd'
	CodeError         FrameCode = '3'
)

// valid reports whether c is a known frame code.
func (c FrameCode) valid() bool {
	switch c {
	case CodeText, CodeToolCallBegin, CodeToolCallDelta, CodeToolResult,
		CodeSource, CodeFinish, CodeError:
		return true
	}
	return false
}

// ToolCallBeginFrame is the payload of a 'b' frame.
type ToolCallBeginFrame struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	ParentID   string `json:"parentId,omitempty"`
}

// ToolCallDeltaFrame is the payload of a 'c' frame, streaming a fragment of
// the call's JSON argument text.
type ToolCallDeltaFrame struct {
	ToolCallID    string `json:"toolCallId"`
	ArgsTextDelta string `json:"argsTextDelta"`
}

// ToolResultFrame is the payload of an 'a' frame. Result and Artifact must be
// valid JSON values.
type ToolResultFrame struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result"`
	Artifact   json.RawMessage `json:"artifact,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
}

// SourceFrame is the payload of an 'h' frame. SourceType is always "url".
type SourceFrame struct {
	SourceType string `json:"sourceType"`
	ID         string `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	ParentID   string `json:"parentId,omitempty"`
}

// FinishFrame is the payload of a 'd' frame, the terminal frame of a stream.
type FinishFrame struct {
	FinishReason string     `json:"finishReason"`
	Usage        FrameUsage `json:"usage"`
}

// FrameUsage carries the token counts reported in a [FinishFrame].
type FrameUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// EncodeText encodes a '0' text-delta frame.
func EncodeText(text string) ([]byte, error) {
	return encodeFrame(CodeText, text)
}

// EncodeToolCallBegin encodes a 'b' frame.
func EncodeToolCallBegin(f ToolCallBeginFrame) ([]byte, error) {
	return encodeFrame(CodeToolCallBegin, f)
}

// EncodeToolCallDelta encodes a 'c' frame.
func EncodeToolCallDelta(f ToolCallDeltaFrame) ([]byte, error) {
	return encodeFrame(CodeToolCallDelta, f)
}

// EncodeToolResult encodes an 'a' frame. A nil Result is encoded as JSON null.
func EncodeToolResult(f ToolResultFrame) ([]byte, error) {
	if f.Result == nil {
		f.Result = json.RawMessage("null")
	}
	return encodeFrame(CodeToolResult, f)
}

// EncodeSource encodes an 'h' frame. The sourceType key is forced to "url".
func EncodeSource(f SourceFrame) ([]byte, error) {
	f.SourceType = "url"
	return encodeFrame(CodeSource, f)
}

// EncodeFinish encodes a 'd' frame.
func EncodeFinish(f FinishFrame) ([]byte, error) {
	return encodeFrame(CodeFinish, f)
}

// EncodeError encodes a '3' frame carrying the error message as a JSON string.
func EncodeError(message string) ([]byte, error) {
	return encodeFrame(CodeError, message)
}

func encodeFrame(code FrameCode, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %c frame: %w", code, err)
	}
	line := make([]byte, 0, len(data)+3)
	line = append(line, byte(code), ':')
	line = append(line, data...)
	line = append(line, '\n')
	return line, nil
}

// Frame is a decoded wire frame: its code and the raw JSON payload.
type Frame struct {
	Code    FrameCode
	Payload json.RawMessage
}

// DecodeFrame parses a single line (with or without the trailing newline)
// into a [Frame]. The payload is validated as JSON but not interpreted.
func DecodeFrame(line []byte) (Frame, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) < 2 || line[1] != ':' {
		return Frame{}, fmt.Errorf("malformed frame %q", line)
	}
	code := FrameCode(line[0])
	if !code.valid() {
		return Frame{}, fmt.Errorf("unknown frame code %q", line[0])
	}
	payload := line[2:]
	if !json.Valid(payload) {
		return Frame{}, fmt.Errorf("frame %c payload is not valid JSON", code)
	}
	return Frame{Code: code, Payload: json.RawMessage(append([]byte(nil), payload...))}, nil
}
