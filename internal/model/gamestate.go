package model

import (
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseSpinning  Phase = "spinning"
	PhaseChoosing  Phase = "choosing"
	PhaseAsking    Phase = "asking"
	PhaseAnswering Phase = "answering"
)

type Choice string

const (
	ChoiceTruth Choice = "truth"
	ChoiceDare  Choice = "dare"
)

func (c Choice) Valid() bool {
	return c == ChoiceTruth || c == ChoiceDare
}

// GameState is the turn-engine state of one room, 1:1 with Room.
// CurrentTurnID and TargetID are uuid.Nil while unset.
type GameState struct {
	RoomID        uuid.UUID
	CurrentTurnID uuid.UUID
	TargetID      uuid.UUID
	Phase         Phase
	Question      string
	Choice        Choice
	UpdatedAt     time.Time
}

// SpinDurationsMs are the visual spin lengths clients animate; the
// server resolves the spin one second after the chosen duration.
var SpinDurationsMs = []int{2000, 4500, 7000}
