package auditlog

import "time"

// Event records one completed conversational turn for reporting.
// Events are expected to be appended in chronological order.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	Model     string    `json:"model"`
	Tokens    int       `json:"tokens"`
}

// Recorder abstracts persistence of turn events.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Append(event Event) error
	Load() ([]Event, error)
}
