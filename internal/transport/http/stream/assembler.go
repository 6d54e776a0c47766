package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Assembler multiplexes model text deltas and out-of-band annotations into a
// single server-sent event stream. Every frame is flushed immediately so the
// client sees deltas as they are produced; nothing is buffered to the end.
//
// Frames:
//
//	event: delta       data: {"content": "..."}
//	event: annotation  data: {"messageIdFromServer": "..."}
//	event: error       data: {"message": "..."}
//	event: done        data: {}
type Assembler struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	closed  sync.Once
}

var ErrStreamingUnsupported = fmt.Errorf("response writer does not support streaming")

// New sets the SSE headers and returns an assembler bound to the response.
func New(w http.ResponseWriter) (*Assembler, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Assembler{w: w, flusher: flusher}, nil
}

func (a *Assembler) TextDelta(content string) error {
	return a.send("delta", map[string]string{"content": content})
}

// MessageAnnotation correlates streamed content with the durable id the
// server assigned to the message.
func (a *Assembler) MessageAnnotation(messageID string) error {
	return a.send("annotation", map[string]string{"messageIdFromServer": messageID})
}

func (a *Assembler) ErrorAnnotation(message string) error {
	return a.send("error", map[string]string{"message": message})
}

// Close terminates the stream with a done frame. Safe to call more than once;
// only the first call emits.
func (a *Assembler) Close() {
	a.closed.Do(func() {
		_ = a.send("done", struct{}{})
	})
}

func (a *Assembler) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload failed: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := fmt.Fprintf(a.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write sse frame failed: %w", err)
	}
	a.flusher.Flush()
	return nil
}
