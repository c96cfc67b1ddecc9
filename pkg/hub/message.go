// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the sketch service.
const (
	EventAnalysisStarted   = "analysis.started"
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisRejected  = "analysis.rejected"
	EventAnalysisFailed    = "analysis.failed"
)

// Event is one activity record sent to every client as JSON.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Time: time.Now().UTC(),
		Data: data,
	}
}

// Message is a pre-encoded payload queued for clients.
type Message struct {
	Data []byte
}

// NewJSONMessage encodes v as a message.
func NewJSONMessage(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
