package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Name      string
	RoomID    uuid.UUID
	IsHost    bool
	Online    bool
	SkipsLeft int
	JoinedAt  time.Time

	// ConnID references the websocket connection currently bound to
	// this user. Empty while the user is in the disconnect grace window.
	ConnID string

	// Addr is the remote address the user joined from; ban records are
	// keyed by it when a kick vote passes.
	Addr string
}
