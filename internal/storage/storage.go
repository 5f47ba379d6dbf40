package storage

import "time"

// Event is one completed chat exchange: the user's input and the canned reply
// it produced, plus the classified intent and any project it touched.
// Events are appended in the order replies are produced.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	SessionID         string    `json:"session_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Intent            string    `json:"intent"`
	ProjectID         string    `json:"project_id,omitempty"`
}

// Recorder abstracts persistence of interaction events.
// LoadInteractionsSince returns events stamped at or after since, in the
// order they were appended; the zero time returns everything.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractionsSince(since time.Time) ([]Event, error)
}

// Nop discards events.
type Nop struct{}

func (Nop) AppendInteraction(Event) error                    { return nil }
func (Nop) LoadInteractionsSince(time.Time) ([]Event, error) { return nil, nil }
