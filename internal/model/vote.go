package model

import (
	"time"

	"github.com/google/uuid"
)

type VoteKind string

const (
	VoteKick   VoteKind = "kick"
	VoteRejoin VoteKind = "rejoin"
)

func (k VoteKind) Valid() bool {
	return k == VoteKick || k == VoteRejoin
}

// SystemInitiator marks votes opened by the inactivity supervisor
// rather than a player.
const SystemInitiator = "system"

// Vote is ephemeral: it lives only inside the owning session and is
// discarded on resolution, never persisted.
//
// TargetID is uuid.Nil for rejoin votes; the banned player is
// identified by TargetName since they no longer hold a User record.
type Vote struct {
	ID         uuid.UUID
	TargetID   uuid.UUID
	TargetName string
	Initiator  string
	Kind       VoteKind
	Ballots    map[uuid.UUID]bool
	CreatedAt  time.Time
}

func (v *Vote) Counts() (yes, no int) {
	for _, b := range v.Ballots {
		if b {
			yes++
		} else {
			no++
		}
	}
	return yes, no
}

// Passed reports the resolution rule: strictly more yes than no.
// Ties fail; voters who never cast simply do not count.
func (v *Vote) Passed() bool {
	yes, no := v.Counts()
	return yes > no
}
