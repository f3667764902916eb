package model

import "time"

// Message is a single inbox message as returned by a message source.
type Message struct {
	ID         string
	From       string
	Subject    string
	Preview    string
	ReceivedAt time.Time
}

// Received formats the receive time the way it is stored on a record.
func (m Message) Received() string {
	if m.ReceivedAt.IsZero() {
		return ""
	}
	return m.ReceivedAt.UTC().Format(time.RFC3339)
}
