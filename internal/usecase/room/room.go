package usecase_room

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lidiakram/bottlespin/internal/model"
)

var (
	ErrKeyConflict      = errors.New("room key conflict")
	ErrRoomsUnavailable = errors.New("no available room keys")
)

//go:generate mockery --name=RoomRepository --output=./mocks/repository --filename=repository.go
type RoomRepository interface {
	// Create returns ErrKeyConflict when the key is taken.
	Create(ctx context.Context, room model.Room) error
	ByKey(ctx context.Context, key model.RoomKey) (model.Room, error)
}

//go:generate mockery --name=GameStateRepository --output=./mocks/gamestate --filename=gamestate.go
type GameStateRepository interface {
	Upsert(ctx context.Context, state model.GameState) error
}

//go:generate mockery --name=BanRepository --output=./mocks/bans --filename=bans.go
type BanRepository interface {
	ByAddr(ctx context.Context, roomID uuid.UUID, addr string) (model.BanRecord, bool, error)
	Update(ctx context.Context, ban model.BanRecord) error
}

type Usecase struct {
	rooms  RoomRepository
	states GameStateRepository
	bans   BanRepository
}

func New(rooms RoomRepository, states GameStateRepository, bans BanRepository) *Usecase {
	return &Usecase{
		rooms:  rooms,
		states: states,
		bans:   bans,
	}
}

// Create books a new room under a fresh shareable key and seeds its
// game state in the waiting phase.
func (u *Usecase) Create(ctx context.Context, maxSkips int) (model.Room, error) {
	if maxSkips <= 0 {
		maxSkips = model.DefaultMaxSkips
	}

	// Assuming that keys can conflict. Retrying...
	var retries = 3
	for retries > 0 {
		now := time.Now()
		room := model.Room{
			ID:           uuid.New(),
			Key:          buildRoomKey(),
			MaxSkips:     maxSkips,
			CreatedAt:    now,
			LastActivity: now,
		}
		if err := u.rooms.Create(ctx, room); err != nil {
			if errors.Is(err, ErrKeyConflict) {
				retries--
				continue
			}
			return model.Room{}, errors.Join(model.ErrInternal, err)
		}
		state := model.GameState{
			RoomID:    room.ID,
			Phase:     model.PhaseWaiting,
			UpdatedAt: now,
		}
		if err := u.states.Upsert(ctx, state); err != nil {
			return model.Room{}, errors.Join(model.ErrInternal, err)
		}
		return room, nil
	}
	return model.Room{}, ErrRoomsUnavailable
}

func buildRoomKey() model.RoomKey {
	const keyLen = 6
	var builder strings.Builder
	builder.Grow(keyLen)

	for range keyLen {
		builder.WriteByte(byte(rand.Intn(10)) + '0')
	}

	return model.RoomKey(builder.String())
}

// Precheck is the outcome of a join precheck for one caller address.
type Precheck struct {
	Room             model.Room
	Banned           bool
	CanRequestRejoin bool
}

// JoinPrecheck validates a join attempt before the websocket is ever
// opened. A banned address has its rejoin-attempt counter bumped on
// every precheck and turns permanently blocked at the cap; until then
// the caller is told a rejoin vote may be requested.
func (u *Usecase) JoinPrecheck(ctx context.Context, key model.RoomKey, addr string) (Precheck, error) {
	room, err := u.rooms.ByKey(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			return Precheck{}, model.ErrRoomNotFound
		}
		return Precheck{}, errors.Join(model.ErrInternal, err)
	}
	if room.Expired || time.Since(room.LastActivity) > model.RoomTTL {
		return Precheck{}, model.ErrRoomExpired
	}

	ban, found, err := u.bans.ByAddr(ctx, room.ID, addr)
	if err != nil {
		return Precheck{}, errors.Join(model.ErrInternal, err)
	}
	if !found {
		return Precheck{Room: room}, nil
	}
	if ban.Permanent {
		return Precheck{}, model.ErrPermanentlyBanned
	}

	ban.RejoinAttempts++
	ban.LastAttempt = time.Now()
	if ban.RejoinAttempts >= model.MaxRejoinAttempts {
		ban.Permanent = true
	}
	if err := u.bans.Update(ctx, ban); err != nil {
		return Precheck{}, errors.Join(model.ErrInternal, err)
	}
	if ban.Permanent {
		return Precheck{}, model.ErrPermanentlyBanned
	}

	return Precheck{
		Room:             room,
		Banned:           true,
		CanRequestRejoin: true,
	}, nil
}
