package datastream

import (
	"io"
	"net/http"
)

// Writer serializes frames to a single output stream, flushing after every
// frame. Clients render incrementally, so a frame must reach the wire before
// the next one is written; nothing is ever buffered across frames.
//
// Writer itself performs no locking. Callers that may write from multiple
// goroutines must serialize access externally (the bridge layer does).
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a Writer over w. When w implements http.Flusher, every
// frame write is followed by a flush.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteText writes a '0' text-delta frame.
func (w *Writer) WriteText(text string) error {
	line, err := EncodeText(text)
	if err != nil {
		return err
	}
	return w.write(line)
}

// WriteToolCallBegin writes a 'b' frame.
func (w *Writer) WriteToolCallBegin(f ToolCallBeginFrame) error {
	line, err := EncodeToolCallBegin(f)
	if err != nil {
		return err
	}
	return w.write(line)
}

// WriteToolCallDelta writes a 'c' frame.
func (w *Writer) WriteToolCallDelta(f ToolCallDeltaFrame) error {
	line, err := EncodeToolCallDelta(f)
	if err != nil {
		return err
	}
	return w.write(line)
}

// WriteToolResult writes an 'a' frame.
func (w *Writer) WriteToolResult(f ToolResultFrame) error {
	line, err := EncodeToolResult(f)
	if err != nil {
		return err
	}
	return w.write(line)
}

// WriteSource writes an 'h' frame.
func (w *Writer) WriteSource(f SourceFrame) error {
	line, err := EncodeSource(f)
	if err != nil {
		return err
	}
	return w.write(line)
}

// WriteFinish writes the terminal 'd' frame.
func (w *Writer) WriteFinish(f FinishFrame) error {
	line, err := EncodeFinish(f)
	if err != nil {
		return err
	}
	return w.write(line)
}

// WriteError writes a '3' frame.
func (w *Writer) WriteError(message string) error {
	line, err := EncodeError(message)
	if err != nil {
		return err
	}
	return w.write(line)
}

func (w *Writer) write(line []byte) error {
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
