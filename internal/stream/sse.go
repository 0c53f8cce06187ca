// Package stream turns a polled session into a Server-Sent Events feed.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Event types written to the wire.
const (
	EventSection  = "section"
	EventComplete = "complete"
	EventError    = "error"
)

// Writer writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any events to set the required headers.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a Writer. If w does not implement http.Flusher, events
// are still written but may be buffered.
func NewWriter(w http.ResponseWriter) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// Init sets the SSE response headers and flushes them to the client.
func (sw *Writer) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	sw.w.WriteHeader(http.StatusOK)
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// WriteEvent serializes payload as JSON and writes
//
//	event: <typ>\ndata: <json>\n\n
//
// then flushes so the client receives it immediately.
func (sw *Writer) WriteEvent(typ string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sse: marshal %s event: %w", typ, err)
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", typ, data); err != nil {
		return fmt.Errorf("sse: write %s event: %w", typ, err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// Event is one event read back from a stream.
type Event struct {
	Type string
	Data json.RawMessage
	Err  error
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// ReadEvents parses SSE events from body and delivers them on the returned
// channel. The channel is closed when the body is exhausted, a read error
// occurs, or ctx is cancelled; the body is closed when reading finishes.
// Multiple data lines in one event are joined with newlines. Data that is
// not valid JSON yields an Event with Err set.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		var (
			typ     string
			dataBuf strings.Builder
		)
		flush := func() bool {
			if dataBuf.Len() == 0 {
				typ = ""
				return true
			}
			ok := send(ctx, ch, typ, dataBuf.String())
			typ = ""
			dataBuf.Reset()
			return ok
		}

		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if !flush() {
					return
				}
			case strings.HasPrefix(line, ":"):
				// comment
			case strings.HasPrefix(line, "event:"):
				typ = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(payload)
			}
		}
		flush()
	}()
	return ch
}

func send(ctx context.Context, ch chan<- Event, typ, raw string) bool {
	if typ == "" {
		typ = "message"
	}
	ev := Event{Type: typ, Data: json.RawMessage(raw)}
	if !json.Valid(ev.Data) {
		ev.Err = fmt.Errorf("sse: %s event: invalid JSON data", typ)
	}
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
