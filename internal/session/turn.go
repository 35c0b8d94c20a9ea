package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

// Spin runs waiting -> spinning. The spinner must hold the turn (the
// very first spin of a room claims it), at least two players must be
// online, and the target is drawn uniformly from the other online
// users. Resolution into choosing is scheduled and cannot be
// cancelled; turnGen guards it against a turn that moved on.
func (s *Session) Spin(ctx context.Context, connID string) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		if s.state.Phase != model.PhaseWaiting {
			return model.ErrInvalidTransition
		}
		online := s.onlineUsers()
		if len(online) < 2 {
			return model.ErrInsufficientPlayers
		}
		if s.state.CurrentTurnID == uuid.Nil {
			s.state.CurrentTurnID = u.ID
		} else if s.state.CurrentTurnID != u.ID {
			return model.ErrNotYourTurn
		}

		candidates := make([]*model.User, 0, len(online)-1)
		for _, c := range online {
			if c.ID != u.ID {
				candidates = append(candidates, c)
			}
		}
		target := candidates[s.rng.Intn(len(candidates))]
		durations := s.deps.Timings.SpinDurationsMs
		durationMs := durations[s.rng.Intn(len(durations))]

		s.state.Phase = model.PhaseSpinning
		s.state.TargetID = target.ID
		s.persistState(ctx)
		s.broadcast(Event{Type: EventBottleSpinning, Payload: SpinDTO{
			TargetID:   target.ID.String(),
			DurationMs: durationMs,
		}})

		s.turnGen++
		gen := s.turnGen
		delay := time.Duration(durationMs)*time.Millisecond + s.deps.Timings.SpinResolveLag
		time.AfterFunc(delay, func() {
			s.post(func() { s.resolveSpin(gen) })
		})

		s.bumpActivity(ctx)
		s.log.Info("bottle spinning", "spinner", u.Name, "target", target.Name)
		return nil
	})
}

func (s *Session) resolveSpin(gen uint64) {
	if s.turnGen != gen || s.state.Phase != model.PhaseSpinning {
		s.log.Debug("stale spin resolution")
		return
	}
	ctx := context.Background()
	s.state.Phase = model.PhaseChoosing
	s.persistState(ctx)
	s.armWatch(s.state.TargetID)
	s.broadcast(Event{Type: EventGameStateUpdated, Payload: gameStateDTO(s.state)})
}

// Choose runs choosing -> asking; only the spin target may choose.
func (s *Session) Choose(ctx context.Context, connID string, choice model.Choice) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		if s.state.Phase != model.PhaseChoosing {
			return model.ErrInvalidTransition
		}
		if u.ID != s.state.TargetID {
			return model.ErrNotYourTurn
		}
		if !choice.Valid() {
			return model.ErrInvalidTransition
		}

		s.disarmWatch(u.ID)
		s.state.Choice = choice
		s.state.Phase = model.PhaseAsking
		s.persistState(ctx)
		// Now the asker is on the clock.
		s.armWatch(s.state.CurrentTurnID)
		s.broadcast(Event{Type: EventGameStateUpdated, Payload: gameStateDTO(s.state)})
		s.bumpActivity(ctx)
		return nil
	})
}

// SubmitQuestion runs asking -> answering; only the turn holder may
// author the question or dare.
func (s *Session) SubmitQuestion(ctx context.Context, connID, text string) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		if s.state.Phase != model.PhaseAsking {
			return model.ErrInvalidTransition
		}
		if u.ID != s.state.CurrentTurnID {
			return model.ErrNotYourTurn
		}

		s.disarmWatch(u.ID)
		s.state.Question = text
		s.state.Phase = model.PhaseAnswering
		s.persistState(ctx)
		s.broadcast(Event{Type: EventGameStateUpdated, Payload: gameStateDTO(s.state)})
		s.bumpActivity(ctx)
		return nil
	})
}

// NextTurn runs answering -> waiting (or straight to choosing with two
// players). Any joined client may advance the turn.
func (s *Session) NextTurn(ctx context.Context, connID string) error {
	return s.call(ctx, func() error {
		if s.findByConn(connID) == nil {
			return model.ErrNotAuthenticated
		}
		if s.state.Phase != model.PhaseAnswering {
			return model.ErrInvalidTransition
		}
		s.advanceTurn(ctx)
		s.bumpActivity(ctx)
		return nil
	})
}

// UseSkip lets the current target burn one skip to bail out of the
// choosing or answering phase; it behaves like an immediate advance.
func (s *Session) UseSkip(ctx context.Context, connID string) error {
	return s.call(ctx, func() error {
		u := s.findByConn(connID)
		if u == nil {
			return model.ErrNotAuthenticated
		}
		if s.state.Phase != model.PhaseChoosing && s.state.Phase != model.PhaseAnswering {
			return model.ErrInvalidTransition
		}
		if u.ID != s.state.TargetID {
			return model.ErrNotYourTurn
		}
		if u.SkipsLeft <= 0 {
			return model.ErrNoSkipsRemaining
		}

		u.SkipsLeft--
		s.persistUser(ctx, u)
		s.broadcast(Event{Type: EventUserUsedSkip, Payload: userDTO(u)})
		s.advanceTurn(ctx)
		s.bumpActivity(ctx)
		s.log.Info("skip used", "user", u.Name, "left", u.SkipsLeft)
		return nil
	})
}

// advanceTurn passes the turn to the next online user in join order
// and resets the round. With exactly two players online the waiting
// and spinning phases are skipped: the other player is the implicit
// target and the round starts in choosing.
func (s *Session) advanceTurn(ctx context.Context) {
	if s.state.TargetID != uuid.Nil {
		s.disarmWatch(s.state.TargetID)
	}
	if s.state.CurrentTurnID != uuid.Nil {
		s.disarmWatch(s.state.CurrentTurnID)
	}
	s.turnGen++ // invalidate any in-flight spin resolution

	online := s.onlineUsers()
	s.state.TargetID = uuid.Nil
	s.state.Question = ""
	s.state.Choice = ""

	if len(online) == 0 {
		s.state.CurrentTurnID = uuid.Nil
		s.state.Phase = model.PhaseWaiting
		s.persistState(ctx)
		s.broadcast(Event{Type: EventGameStateUpdated, Payload: gameStateDTO(s.state)})
		return
	}

	next := online[0]
	for i, u := range online {
		if u.ID == s.state.CurrentTurnID {
			next = online[(i+1)%len(online)]
			break
		}
	}
	s.state.CurrentTurnID = next.ID

	if len(online) == 2 {
		other := online[0]
		if other.ID == next.ID {
			other = online[1]
		}
		s.state.TargetID = other.ID
		s.state.Phase = model.PhaseChoosing
		s.armWatch(other.ID)
	} else {
		s.state.Phase = model.PhaseWaiting
	}
	s.persistState(ctx)
	s.broadcast(Event{Type: EventGameStateUpdated, Payload: gameStateDTO(s.state)})
}

// maybeStartTwoPlayerGame starts the round immediately when the second
// player joins a waiting room: the first-joined user takes the turn
// and the newcomer becomes the target, no spin involved.
func (s *Session) maybeStartTwoPlayerGame(ctx context.Context) {
	if s.state.Phase != model.PhaseWaiting || s.state.CurrentTurnID != uuid.Nil {
		return
	}
	online := s.onlineUsers()
	if len(online) != 2 {
		return
	}
	s.state.CurrentTurnID = online[0].ID
	s.state.TargetID = online[1].ID
	s.state.Phase = model.PhaseChoosing
	s.persistState(ctx)
	s.armWatch(online[1].ID)
	s.broadcast(Event{Type: EventGameStateUpdated, Payload: gameStateDTO(s.state)})
	s.log.Info("two-player round started", "turn", online[0].Name, "target", online[1].Name)
}
