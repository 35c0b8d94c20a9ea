package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

// InitiateVote opens a quorum vote. Kick votes name a current member;
// rejoin votes name a banned player by display name, asking the room
// to lift the ban.
func (s *Session) InitiateVote(ctx context.Context, connID string, targetID uuid.UUID, targetName string, kind model.VoteKind) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		if !kind.Valid() {
			return model.ErrInvalidTransition
		}
		if kind == model.VoteKick {
			target := s.findByID(targetID)
			if target == nil {
				return model.ErrUserNotFound
			}
			targetName = target.Name
		} else {
			targetID = uuid.Nil
		}
		s.openVote(ctx, u.ID.String(), targetID, targetName, kind)
		s.bumpActivity(ctx)
		return nil
	})
}

// openVote runs on the session goroutine. It is shared by player
// initiated votes and the inactivity supervisor ("system" initiator).
func (s *Session) openVote(ctx context.Context, initiator string, targetID uuid.UUID, targetName string, kind model.VoteKind) {
	v := &liveVote{
		Vote: model.Vote{
			ID:         uuid.New(),
			TargetID:   targetID,
			TargetName: targetName,
			Initiator:  initiator,
			Kind:       kind,
			Ballots:    make(map[uuid.UUID]bool),
			CreatedAt:  time.Now(),
		},
	}
	id := v.ID
	v.timer = time.AfterFunc(s.deps.Timings.VoteTimeout, func() {
		// The request context that opened the vote is long gone by now.
		s.post(func() { s.resolveVote(context.Background(), id, "timeout") })
	})
	s.votes[id] = v

	s.broadcast(Event{Type: EventVoteStarted, Payload: VoteStartedDTO{
		VoteID:     id.String(),
		Kind:       string(kind),
		TargetID:   dtoID(targetID),
		TargetName: targetName,
		Initiator:  initiator,
	}})
	s.log.Info("vote started",
		"vote_id", id.String(),
		"kind", string(kind),
		"target", targetName,
		"initiator", initiator)
}

// CastVote records one ballot. A voter gets exactly one ballot per
// vote; recasting is rejected, not overwritten. The vote resolves
// early once every eligible voter has cast.
func (s *Session) CastVote(ctx context.Context, connID string, voteID uuid.UUID, approve bool) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		v, ok := s.votes[voteID]
		if !ok {
			return model.ErrVoteNotFound
		}
		if u.ID == v.TargetID {
			// The accused does not get a say.
			return model.ErrInvalidTransition
		}
		if _, cast := v.Ballots[u.ID]; cast {
			return model.ErrAlreadyVoted
		}
		v.Ballots[u.ID] = approve

		yes, no := v.Counts()
		s.broadcast(Event{Type: EventVoteUpdated, Payload: VoteProgressDTO{
			VoteID: voteID.String(),
			Yes:    yes,
			No:     no,
		}})
		s.bumpActivity(ctx)

		if len(v.Ballots) >= s.eligibleVoters(v) {
			s.resolveVote(ctx, voteID, "quorum")
		}
		return nil
	})
}

// eligibleVoters counts the room members allowed to cast: everyone in
// the room except the target (who, for rejoin votes, is not a member).
func (s *Session) eligibleVoters(v *liveVote) int {
	n := 0
	for _, u := range s.users {
		if u.Online && u.ID != v.TargetID {
			n++
		}
	}
	return n
}

// resolveVote settles a vote. Both the timeout path and the quorum
// path land here; whichever loses the race finds the vote gone from
// the map and no-ops.
func (s *Session) resolveVote(ctx context.Context, voteID uuid.UUID, cause string) {
	v, ok := s.votes[voteID]
	if !ok {
		s.log.Debug("stale vote resolution", "vote_id", voteID.String())
		return
	}
	v.timer.Stop()
	delete(s.votes, voteID)

	yes, no := v.Counts()
	passed := v.Passed()
	if passed {
		switch v.Kind {
		case model.VoteKick:
			s.removeKicked(ctx, v)
		case model.VoteRejoin:
			if err := s.deps.Bans.DeleteByName(ctx, s.room.ID, v.TargetName); err != nil {
				s.log.Error("lift ban failed", slog.String("error", err.Error()))
			}
			s.systemMessage(ctx, v.TargetName+" may rejoin the room")
		}
	}

	s.broadcast(Event{Type: EventVoteResolved, Payload: VoteResolvedDTO{
		VoteID: voteID.String(),
		Kind:   string(v.Kind),
		Passed: passed,
		Yes:    yes,
		No:     no,
	}})
	s.log.Info("vote resolved",
		"vote_id", voteID.String(),
		"passed", passed,
		"yes", yes,
		"no", no,
		"cause", cause)
}

// removeKicked removes a kicked user from the room, records the ban
// and migrates the host if the kicked user held it.
func (s *Session) removeKicked(ctx context.Context, v *liveVote) {
	target := s.findByID(v.TargetID)
	if target == nil {
		return
	}

	s.disarmWatch(target.ID)
	// Any pending grace timer sees the missing entry as stale.
	delete(s.grace, target.ID)

	ban := model.BanRecord{
		RoomID:   s.room.ID,
		Addr:     target.Addr,
		Name:     target.Name,
		KickedAt: time.Now(),
	}
	if err := s.deps.Bans.Create(ctx, ban); err != nil {
		s.log.Error("persist ban failed", slog.String("error", err.Error()))
	}
	if err := s.deps.Users.Delete(ctx, target.ID); err != nil {
		s.log.Error("delete user failed", slog.String("error", err.Error()))
	}
	for i, u := range s.users {
		if u.ID == target.ID {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}

	if target.ConnID != "" {
		s.deps.Broadcast.Send(target.ConnID, Event{Type: EventKickedFromRoom})
		s.deps.Broadcast.Detach(target.ConnID)
	}
	if target.IsHost {
		s.migrateHost(ctx)
	}
	if s.state.CurrentTurnID == target.ID || s.state.TargetID == target.ID {
		s.advanceTurn(ctx)
	}
	s.systemMessage(ctx, target.Name+" was removed by vote")
	s.log.Info("user kicked", "user", target.Name)
}

func dtoID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
