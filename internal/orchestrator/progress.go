package orchestrator

import (
	"fmt"
	"time"
)

// Publisher receives progress events. Publish is called synchronously from
// the goroutine running the section, so implementations shared by a
// parallel run must be safe for concurrent use.
type Publisher interface {
	Publish(ev ProgressEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev ProgressEvent)

// Publish calls f(ev).
func (f PublisherFunc) Publish(ev ProgressEvent) { f(ev) }

// MultiPublisher fans each event out to every non-nil member in order.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ev ProgressEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(ev)
		}
	}
}

// publish stamps ev and hands it to pub, tolerating a nil pub.
func publish(pub Publisher, ev ProgressEvent) {
	if pub == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	pub.Publish(ev)
}

// ChannelPublisher delivers events through a buffered channel.
type ChannelPublisher struct {
	ch chan ProgressEvent
}

// NewChannelPublisher creates a ChannelPublisher with the given buffer size
// (64 when size <= 0).
func NewChannelPublisher(size int) *ChannelPublisher {
	if size <= 0 {
		size = 64
	}
	return &ChannelPublisher{ch: make(chan ProgressEvent, size)}
}

// Publish sends ev without blocking. If the buffer is full the event is
// dropped.
func (c *ChannelPublisher) Publish(ev ProgressEvent) {
	select {
	case c.ch <- ev:
	default:
	}
}

// Events returns the channel to consume.
func (c *ChannelPublisher) Events() <-chan ProgressEvent {
	return c.ch
}

// Close closes the channel. No Publish may follow.
func (c *ChannelPublisher) Close() {
	close(c.ch)
}

// FormatProgress renders ev as a single status line.
func FormatProgress(ev ProgressEvent) string {
	switch ev.Status {
	case StatusPending:
		return fmt.Sprintf("  \u25cb %s (pending)", ev.SectionName)
	case StatusInProgress:
		return fmt.Sprintf("  \u25cf %s...", ev.SectionName)
	case StatusCompleted:
		return fmt.Sprintf("  \u2713 %s complete", ev.SectionName)
	case StatusFailed:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		return fmt.Sprintf("  \u2717 %s failed: %s", ev.SectionName, msg)
	case StatusSkipped:
		return fmt.Sprintf("  - %s skipped", ev.SectionName)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", ev.SectionName)
	}
}
