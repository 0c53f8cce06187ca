// Package notify pushes progress events to external brokers so that other
// processes can follow a generation run without polling the session store.
package notify

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
)

// Message is the JSON document published for each progress event.
type Message struct {
	SessionID string              `json:"session_id"`
	Section   string              `json:"section"`
	Status    orchestrator.Status `json:"status"`
	Content   string              `json:"content,omitempty"`
	Error     string              `json:"error,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewMessage builds the Message for ev.
func NewMessage(sessionID string, ev orchestrator.ProgressEvent) Message {
	m := Message{
		SessionID: sessionID,
		Section:   ev.SectionName,
		Status:    ev.Status,
		Timestamp: ev.Timestamp,
	}
	if ev.Section != nil {
		m.Content = ev.Section.Content
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
	}
	return m
}

func encode(sessionID string, ev orchestrator.ProgressEvent) ([]byte, error) {
	return json.Marshal(NewMessage(sessionID, ev))
}
