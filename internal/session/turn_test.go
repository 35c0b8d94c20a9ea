package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lidiakram/bottlespin/internal/model"
)

// threePlayers joins alice, bob and carol. The two-player fast path
// fires on bob's join, so the room lands in choosing with alice on
// turn and bob as target.
func threePlayers(t *testing.T) *harness {
	t.Helper()
	h := newHarness(testTimings())
	require.NoError(t, h.join("conn-a", "10.0.0.1", "alice"))
	require.NoError(t, h.join("conn-b", "10.0.0.2", "bob"))
	require.NoError(t, h.join("conn-c", "10.0.0.3", "carol"))
	return h
}

func TestFullRoundWalk(t *testing.T) {
	h := threePlayers(t)
	defer h.sess.Close()
	ctx := context.Background()

	// choosing: only the target may pick.
	require.NoError(t, h.sess.Choose(ctx, "conn-b", model.ChoiceTruth))
	state := h.state()
	assert.Equal(t, model.PhaseAsking, state.Phase)
	assert.Equal(t, model.ChoiceTruth, state.Choice)

	// asking: only the turn holder writes the question.
	require.NoError(t, h.sess.SubmitQuestion(ctx, "conn-a", "ever lied to win?"))
	state = h.state()
	assert.Equal(t, model.PhaseAnswering, state.Phase)
	assert.Equal(t, "ever lied to win?", state.Question)

	// answering: anyone may advance; with three online the round
	// resets to waiting and bob (next in join order) takes the turn.
	require.NoError(t, h.sess.NextTurn(ctx, "conn-c"))
	state = h.state()
	assert.Equal(t, model.PhaseWaiting, state.Phase)
	assert.Equal(t, h.userByName("bob").ID, state.CurrentTurnID)
	assert.Equal(t, uuid.Nil, state.TargetID)
	assert.Empty(t, state.Question)
	assert.Empty(t, state.Choice)

	// bob spins; the target is some other online player and the spin
	// resolves into choosing on its own.
	require.NoError(t, h.sess.Spin(ctx, "conn-b"))
	state = h.state()
	assert.Equal(t, model.PhaseSpinning, state.Phase)
	assert.NotEqual(t, h.userByName("bob").ID, state.TargetID)

	spins := h.hub.broadcastOfType(EventBottleSpinning)
	require.Len(t, spins, 1)
	assert.Equal(t, 1, spins[0].Payload.(SpinDTO).DurationMs)

	assert.Eventually(t, func() bool {
		return h.state().Phase == model.PhaseChoosing
	}, waitFor, 2*time.Millisecond)
}

func TestSpinRequiresTwoOnline(t *testing.T) {
	h := newHarness(testTimings())
	defer h.sess.Close()

	require.NoError(t, h.join("conn-a", "10.0.0.1", "alice"))
	err := h.sess.Spin(context.Background(), "conn-a")
	assert.ErrorIs(t, err, model.ErrInsufficientPlayers)
	assert.Equal(t, model.PhaseWaiting, h.state().Phase)
}

func TestSpinOutOfTurnRejected(t *testing.T) {
	h := threePlayers(t)
	defer h.sess.Close()
	ctx := context.Background()

	require.NoError(t, h.sess.Choose(ctx, "conn-b", model.ChoiceDare))
	require.NoError(t, h.sess.SubmitQuestion(ctx, "conn-a", "do a dance"))
	require.NoError(t, h.sess.NextTurn(ctx, "conn-a"))

	// bob holds the turn now; carol may not spin.
	err := h.sess.Spin(ctx, "conn-c")
	assert.ErrorIs(t, err, model.ErrNotYourTurn)
}

func TestInvalidTransitionsRejected(t *testing.T) {
	h := threePlayers(t)
	defer h.sess.Close()
	ctx := context.Background()

	// Room sits in choosing.
	assert.ErrorIs(t, h.sess.Spin(ctx, "conn-a"), model.ErrInvalidTransition)
	assert.ErrorIs(t, h.sess.NextTurn(ctx, "conn-a"), model.ErrInvalidTransition)
	assert.ErrorIs(t, h.sess.SubmitQuestion(ctx, "conn-a", "too early"), model.ErrInvalidTransition)

	// Non-target choosing, target asking.
	assert.ErrorIs(t, h.sess.Choose(ctx, "conn-a", model.ChoiceTruth), model.ErrNotYourTurn)
	assert.ErrorIs(t, h.sess.Choose(ctx, "conn-b", model.Choice("chicken")), model.ErrInvalidTransition)

	require.NoError(t, h.sess.Choose(ctx, "conn-b", model.ChoiceTruth))
	assert.ErrorIs(t, h.sess.SubmitQuestion(ctx, "conn-b", "asking myself"), model.ErrNotYourTurn)

	// Nothing above moved the state.
	assert.Equal(t, model.PhaseAsking, h.state().Phase)
}

func TestSkipDecrementsAndAdvances(t *testing.T) {
	h := newHarness(testTimings())
	defer h.sess.Close()
	ctx := context.Background()

	require.NoError(t, h.join("conn-a", "10.0.0.1", "alice"))
	require.NoError(t, h.join("conn-b", "10.0.0.2", "bob"))

	// alice is not the target, so she cannot skip.
	assert.ErrorIs(t, h.sess.UseSkip(ctx, "conn-a"), model.ErrNotYourTurn)

	require.NoError(t, h.sess.UseSkip(ctx, "conn-b"))
	assert.Equal(t, model.DefaultMaxSkips-1, h.userByName("bob").SkipsLeft)

	skips := h.hub.broadcastOfType(EventUserUsedSkip)
	require.Len(t, skips, 1)
	assert.Equal(t, "bob", skips[0].Payload.(UserDTO).Name)

	// Two players online: the skip hands the turn to bob and the
	// round restarts in choosing with alice as target.
	state := h.state()
	assert.Equal(t, model.PhaseChoosing, state.Phase)
	assert.Equal(t, h.userByName("bob").ID, state.CurrentTurnID)
	assert.Equal(t, h.userByName("alice").ID, state.TargetID)
}

func TestSkipExhaustedRejected(t *testing.T) {
	h := newHarness(testTimings())
	defer h.sess.Close()
	ctx := context.Background()

	require.NoError(t, h.join("conn-a", "10.0.0.1", "alice"))
	require.NoError(t, h.join("conn-b", "10.0.0.2", "bob"))

	h.inspect(func(s *Session) {
		for _, u := range s.users {
			if u.Name == "bob" {
				u.SkipsLeft = 0
			}
		}
	})
	assert.ErrorIs(t, h.sess.UseSkip(ctx, "conn-b"), model.ErrNoSkipsRemaining)
	assert.Equal(t, 0, h.userByName("bob").SkipsLeft)
	assert.Equal(t, model.PhaseChoosing, h.state().Phase)
}

func TestSkipOutsideChoosingOrAnsweringRejected(t *testing.T) {
	h := threePlayers(t)
	defer h.sess.Close()
	ctx := context.Background()

	require.NoError(t, h.sess.Choose(ctx, "conn-b", model.ChoiceDare))
	require.NoError(t, h.sess.SubmitQuestion(ctx, "conn-a", "sing"))
	require.NoError(t, h.sess.NextTurn(ctx, "conn-b"))

	// Back in waiting with three online.
	assert.ErrorIs(t, h.sess.UseSkip(ctx, "conn-b"), model.ErrInvalidTransition)
}

func TestSkipDuringAnswering(t *testing.T) {
	h := threePlayers(t)
	defer h.sess.Close()
	ctx := context.Background()

	require.NoError(t, h.sess.Choose(ctx, "conn-b", model.ChoiceTruth))
	require.NoError(t, h.sess.SubmitQuestion(ctx, "conn-a", "worst haircut?"))

	require.NoError(t, h.sess.UseSkip(ctx, "conn-b"))
	state := h.state()
	assert.Equal(t, model.PhaseWaiting, state.Phase, "three online, skip resets to waiting")
	assert.Empty(t, state.Question)
}
