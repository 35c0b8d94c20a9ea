package model

import (
	"time"

	"github.com/google/uuid"
)

// BanRecord is written when a kick vote passes, keyed by room and the
// kicked connection's remote address. Rejoin prechecks bump
// RejoinAttempts; the record turns permanent once the cap is hit.
type BanRecord struct {
	RoomID         uuid.UUID
	Addr           string
	Name           string
	KickedAt       time.Time
	RejoinAttempts int
	LastAttempt    time.Time
	Permanent      bool
}

const MaxRejoinAttempts = 10
