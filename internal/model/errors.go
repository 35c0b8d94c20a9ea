package model

import "errors"

// Domain sentinels. Delivery layers map these onto HTTP statuses or
// per-connection error events; none of them are ever broadcast.
var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomExpired         = errors.New("room expired")
	ErrInsufficientPlayers = errors.New("not enough online players")
	ErrNoSkipsRemaining    = errors.New("no skips remaining")
	ErrInvalidTransition   = errors.New("action not valid in current phase")
	ErrNotYourTurn         = errors.New("not allowed for this user right now")
	ErrUserNotFound        = errors.New("user not found")
	ErrVoteNotFound        = errors.New("vote not found")
	ErrAlreadyVoted        = errors.New("ballot already cast")
	ErrRateLimited         = errors.New("rate limited")
	ErrBanned              = errors.New("banned from this room")
	ErrPermanentlyBanned   = errors.New("permanently banned from this room")
	ErrInternal            = errors.New("internal error")
)

// Reason returns the machine-readable code delivered in error events.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomExpired):
		return "room_expired"
	case errors.Is(err, ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, ErrNoSkipsRemaining):
		return "no_skips_remaining"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrVoteNotFound):
		return "vote_not_found"
	case errors.Is(err, ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrBanned):
		return "banned"
	case errors.Is(err, ErrPermanentlyBanned):
		return "permanently_banned"
	default:
		return "internal"
	}
}
