package core

import "time"

// Message is the domain model for a chat message.
// Author is a snapshot taken at send time; later renames do not touch it.
type Message struct {
	ID        string
	Body      string
	Author    Identity
	CreatedAt time.Time
}
