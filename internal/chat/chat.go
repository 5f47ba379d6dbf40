package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUser      Type = "user"
	TypeAssistant Type = "assistant"
)

// Message is a single chat entry. Messages are never modified after creation.
type Message struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessage(t Type, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      t,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Log is an append-only ordered message log. Safe for concurrent use.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

func NewLog() *Log {
	return &Log{messages: make([]Message, 0, 32)}
}

func (l *Log) Append(msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// All returns a copy of the log in insertion order.
func (l *Log) All() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}
