package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

//go:generate mockery --name=RoomRepository --output=./mocks/rooms --filename=rooms.go
type RoomRepository interface {
	ByKey(ctx context.Context, key model.RoomKey) (model.Room, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	SetHost(ctx context.Context, roomID, hostID uuid.UUID) error
	ListIdle(ctx context.Context, cutoff time.Time) ([]model.Room, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

//go:generate mockery --name=UserRepository --output=./mocks/users --filename=users.go
type UserRepository interface {
	Upsert(ctx context.Context, user model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.User, error)
	DeleteByRoom(ctx context.Context, roomID uuid.UUID) error
}

//go:generate mockery --name=GameStateRepository --output=./mocks/states --filename=states.go
type GameStateRepository interface {
	Upsert(ctx context.Context, state model.GameState) error
	ByRoom(ctx context.Context, roomID uuid.UUID) (model.GameState, error)
	DeleteByRoom(ctx context.Context, roomID uuid.UUID) error
}

//go:generate mockery --name=MessageRepository --output=./mocks/messages --filename=messages.go
type MessageRepository interface {
	Create(ctx context.Context, msg model.Message) error
	Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error)
	MediaURLs(ctx context.Context, roomID uuid.UUID) ([]string, error)
	DeleteByRoom(ctx context.Context, roomID uuid.UUID) error
}

//go:generate mockery --name=BanRepository --output=./mocks/bans --filename=bans.go
type BanRepository interface {
	Create(ctx context.Context, ban model.BanRecord) error
	ByAddr(ctx context.Context, roomID uuid.UUID, addr string) (model.BanRecord, bool, error)
	DeleteByName(ctx context.Context, roomID uuid.UUID, name string) error
	DeleteByRoom(ctx context.Context, roomID uuid.UUID) error
}

// MediaStore deletes uploaded objects when their room is reaped.
type MediaStore interface {
	Delete(ctx context.Context, url string) error
}

// Broadcaster is implemented by the websocket hub. Broadcast fans an
// event out to every connection in the room group; Send targets a
// single connection; Detach removes a connection from its group.
type Broadcaster interface {
	Broadcast(key model.RoomKey, ev Event)
	Send(connID string, ev Event)
	Detach(connID string)
}
