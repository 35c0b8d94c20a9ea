package model

import (
	"time"

	"github.com/google/uuid"
)

type RoomKey string

const EmptyRoomKey RoomKey = ""

// Room is the persistent record of one game room. Live state
// (phase, timers, votes) is owned by the room's session.
type Room struct {
	ID           uuid.UUID
	Key          RoomKey
	HostID       uuid.UUID
	MaxSkips     int
	CreatedAt    time.Time
	LastActivity time.Time
	Expired      bool
}

const (
	// Rooms with no activity for this long are removed by the sweep,
	// online users included.
	RoomTTL = 30 * time.Minute

	DefaultMaxSkips = 3
)
