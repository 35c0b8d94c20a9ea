package model

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat entry. UserID is uuid.Nil for system notices
// (joins, leaves, host changes); Name snapshots the author's display
// name at send time so renames and kicks do not rewrite history.
type Message struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	UserID    uuid.UUID
	Name      string
	Text      string
	MediaURL  string
	MediaType string
	CreatedAt time.Time
}
