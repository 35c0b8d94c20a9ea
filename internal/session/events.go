package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

const (
	EventRoomJoined       = "room_joined"
	EventUserJoined       = "user_joined"
	EventUserLeft         = "user_left"
	EventNewHost          = "new_host"
	EventGameStateUpdated = "game_state_updated"
	EventBottleSpinning   = "bottle_spinning"
	EventNewMessage       = "new_message"
	EventVoteStarted      = "vote_started"
	EventVoteUpdated      = "vote_updated"
	EventVoteResolved     = "vote_resolved"
	EventUserInactive     = "user_inactive"
	EventUserUsedSkip     = "user_used_skip"
	EventKickedFromRoom   = "kicked_from_room"
	EventRoomClosed       = "room_closed"
	EventError            = "error"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type UserDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsHost    bool      `json:"is_host"`
	Online    bool      `json:"online"`
	SkipsLeft int       `json:"skips_left"`
	JoinedAt  time.Time `json:"joined_at"`
}

type RoomDTO struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	HostID   string `json:"host_id,omitempty"`
	MaxSkips int    `json:"max_skips"`
}

type GameStateDTO struct {
	CurrentTurnID string `json:"current_turn_id,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
	Phase         string `json:"phase"`
	Question      string `json:"question,omitempty"`
	Choice        string `json:"choice,omitempty"`
}

type MessageDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Text      string    `json:"text,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SnapshotDTO struct {
	You      UserDTO      `json:"you"`
	Room     RoomDTO      `json:"room"`
	Users    []UserDTO    `json:"users"`
	Game     GameStateDTO `json:"game_state"`
	Messages []MessageDTO `json:"messages"`
}

type SpinDTO struct {
	TargetID   string `json:"target_id"`
	DurationMs int    `json:"duration_ms"`
}

type VoteStartedDTO struct {
	VoteID     string `json:"vote_id"`
	Kind       string `json:"kind"`
	TargetID   string `json:"target_id,omitempty"`
	TargetName string `json:"target_name"`
	Initiator  string `json:"initiator"`
}

type VoteProgressDTO struct {
	VoteID string `json:"vote_id"`
	Yes    int    `json:"yes"`
	No     int    `json:"no"`
}

type VoteResolvedDTO struct {
	VoteID string `json:"vote_id"`
	Kind   string `json:"kind"`
	Passed bool   `json:"passed"`
	Yes    int    `json:"yes"`
	No     int    `json:"no"`
}

type ErrorDTO struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`

	// RetryAfter is set only for rate-limit errors, in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}

func userDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:        u.ID.String(),
		Name:      u.Name,
		IsHost:    u.IsHost,
		Online:    u.Online,
		SkipsLeft: u.SkipsLeft,
		JoinedAt:  u.JoinedAt,
	}
}

func roomDTO(r model.Room) RoomDTO {
	dto := RoomDTO{
		ID:       r.ID.String(),
		Key:      string(r.Key),
		MaxSkips: r.MaxSkips,
	}
	if r.HostID != uuid.Nil {
		dto.HostID = r.HostID.String()
	}
	return dto
}

func gameStateDTO(g model.GameState) GameStateDTO {
	dto := GameStateDTO{
		Phase:    string(g.Phase),
		Question: g.Question,
		Choice:   string(g.Choice),
	}
	if g.CurrentTurnID != uuid.Nil {
		dto.CurrentTurnID = g.CurrentTurnID.String()
	}
	if g.TargetID != uuid.Nil {
		dto.TargetID = g.TargetID.String()
	}
	return dto
}

func messageDTO(m model.Message) MessageDTO {
	dto := MessageDTO{
		ID:        m.ID.String(),
		Name:      m.Name,
		Text:      m.Text,
		MediaURL:  m.MediaURL,
		MediaType: m.MediaType,
		CreatedAt: m.CreatedAt,
	}
	if m.UserID != uuid.Nil {
		dto.UserID = m.UserID.String()
	}
	return dto
}
