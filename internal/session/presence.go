package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

// graceExpired fires when a disconnected user did not come back in
// time. The generation check makes a resumed user's stale timer a
// no-op even if Stop lost the race.
func (s *Session) graceExpired(userID uuid.UUID, gen uint64) {
	if s.grace[userID] != gen {
		s.log.Debug("stale grace timer", "user_id", userID.String())
		return
	}
	u := s.findByID(userID)
	if u == nil || u.ConnID != "" || !u.Online {
		return
	}
	ctx := context.Background()
	u.Online = false
	s.persistUser(ctx, u)
	s.broadcast(Event{Type: EventUserLeft, Payload: userDTO(u)})
	s.systemMessage(ctx, u.Name+" left the room")
	if u.IsHost {
		u.IsHost = false
		s.persistUser(ctx, u)
		s.migrateHost(ctx)
	}
	// In waiting only the turn holder may spin, so a departed holder
	// would deadlock the room; hand the turn on. The other phases
	// resolve themselves (supervision, next_turn from anyone).
	if s.state.Phase == model.PhaseWaiting && s.state.CurrentTurnID == u.ID {
		s.advanceTurn(ctx)
	}
	delete(s.grace, u.ID)
	s.log.Info("grace expired, user offline", "user", u.Name)
}

// ensureHost guarantees the host invariant after membership changes:
// exactly one online host whenever anyone is online.
func (s *Session) ensureHost(ctx context.Context) {
	for _, u := range s.onlineUsers() {
		if u.IsHost {
			return
		}
	}
	s.migrateHost(ctx)
}

// migrateHost hands the host flag to the earliest-joined online user.
func (s *Session) migrateHost(ctx context.Context) {
	online := s.onlineUsers()
	if len(online) == 0 {
		s.room.HostID = uuid.Nil
		return
	}
	next := online[0] // users are kept in join order
	for _, u := range s.users {
		if u.IsHost && u != next {
			u.IsHost = false
			s.persistUser(ctx, u)
		}
	}
	if next.IsHost && s.room.HostID == next.ID {
		return
	}
	first := s.room.HostID == uuid.Nil
	next.IsHost = true
	s.room.HostID = next.ID
	s.persistUser(ctx, next)
	if err := s.deps.Rooms.SetHost(ctx, s.room.ID, next.ID); err != nil {
		s.log.Error("persist host failed", slog.String("error", err.Error()))
	}
	if !first {
		s.broadcast(Event{Type: EventNewHost, Payload: userDTO(next)})
		s.systemMessage(ctx, next.Name+" is the new host")
	}
	s.log.Info("host assigned", "user", next.Name)
}

// --- inactivity supervision ---

// armWatch starts the two-stage inactivity timers for the user who is
// expected to act: a warning, then an automatic kick vote. Arming
// replaces any prior watch for the same user.
func (s *Session) armWatch(userID uuid.UUID) {
	s.disarmWatch(userID)
	w := &watcher{gen: s.watchGen(userID) + 1}
	s.watch[userID] = w
	gen := w.gen
	t := s.deps.Timings
	w.warn = time.AfterFunc(t.InactivityWarn, func() {
		s.post(func() { s.inactivityWarn(userID, gen) })
	})
	w.kick = time.AfterFunc(t.InactivityWarn+t.InactivityKick, func() {
		s.post(func() { s.inactivityKick(userID, gen) })
	})
}

func (s *Session) watchGen(userID uuid.UUID) uint64 {
	if w, ok := s.watch[userID]; ok {
		return w.gen
	}
	return 0
}

func (s *Session) disarmWatch(userID uuid.UUID) {
	w, ok := s.watch[userID]
	if !ok {
		return
	}
	if w.warn != nil {
		w.warn.Stop()
	}
	if w.kick != nil {
		w.kick.Stop()
	}
	// Keep the entry so the generation keeps counting up; handlers
	// treat a gen mismatch as stale.
	w.gen++
	w.warn, w.kick = nil, nil
}

func (s *Session) watchStale(userID uuid.UUID, gen uint64) bool {
	w, ok := s.watch[userID]
	return !ok || w.gen != gen
}

func (s *Session) inactivityWarn(userID uuid.UUID, gen uint64) {
	if s.watchStale(userID, gen) {
		s.log.Debug("stale inactivity warning", "user_id", userID.String())
		return
	}
	u := s.findByID(userID)
	if u == nil {
		return
	}
	s.broadcast(Event{Type: EventUserInactive, Payload: userDTO(u)})
	s.log.Info("inactivity warning", "user", u.Name)
}

func (s *Session) inactivityKick(userID uuid.UUID, gen uint64) {
	if s.watchStale(userID, gen) {
		s.log.Debug("stale inactivity kick", "user_id", userID.String())
		return
	}
	u := s.findByID(userID)
	if u == nil {
		return
	}
	s.disarmWatch(userID)
	s.openVote(context.Background(), model.SystemInitiator, u.ID, u.Name, model.VoteKick)
	s.log.Info("inactivity kick vote opened", "user", u.Name)
}
