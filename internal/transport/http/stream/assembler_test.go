package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewSetsSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, err := New(rec); err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestFrameLayout(t *testing.T) {
	rec := httptest.NewRecorder()
	a, err := New(rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.TextDelta("hel"); err != nil {
		t.Fatalf("TextDelta: %v", err)
	}
	if err := a.TextDelta("lo"); err != nil {
		t.Fatalf("TextDelta: %v", err)
	}
	if err := a.MessageAnnotation("msg-42"); err != nil {
		t.Fatalf("MessageAnnotation: %v", err)
	}
	a.Close()

	body := rec.Body.String()
	want := []string{
		"event: delta\ndata: {\"content\":\"hel\"}\n\n",
		"event: delta\ndata: {\"content\":\"lo\"}\n\n",
		"event: annotation\ndata: {\"messageIdFromServer\":\"msg-42\"}\n\n",
		"event: done\ndata: {}\n\n",
	}
	for _, frame := range want {
		if !strings.Contains(body, frame) {
			t.Fatalf("frame %q missing from stream:\n%s", frame, body)
		}
	}
}

func TestErrorAnnotation(t *testing.T) {
	rec := httptest.NewRecorder()
	a, err := New(rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.ErrorAnnotation("generation failed"); err != nil {
		t.Fatalf("ErrorAnnotation: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "event: error\ndata: {\"message\":\"generation failed\"}\n\n") {
		t.Fatalf("error frame missing:\n%s", rec.Body.String())
	}
}

func TestCloseEmitsOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	a, err := New(rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.Close()
	a.Close()
	a.Close()

	if got := strings.Count(rec.Body.String(), "event: done"); got != 1 {
		t.Fatalf("done emitted %d times", got)
	}
}

// nonFlusher satisfies http.ResponseWriter but not http.Flusher.
type nonFlusher struct{}

func (nonFlusher) Header() http.Header       { return http.Header{} }
func (nonFlusher) Write(p []byte) (int, error) { return len(p), nil }
func (nonFlusher) WriteHeader(int)           {}

func TestNewRejectsNonFlushingWriter(t *testing.T) {
	if _, err := New(nonFlusher{}); err != ErrStreamingUnsupported {
		t.Fatalf("err = %v, want ErrStreamingUnsupported", err)
	}
}
