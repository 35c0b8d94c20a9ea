package infra_postgres_room

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lidiakram/bottlespin/internal/model"
	usecase_room "github.com/lidiakram/bottlespin/internal/usecase/room"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type roomDTO struct {
	ID           uuid.UUID     `db:"id"`
	Key          string        `db:"key"`
	HostID       uuid.NullUUID `db:"host_id"`
	MaxSkips     int           `db:"max_skips"`
	CreatedAt    time.Time     `db:"created_at"`
	LastActivity time.Time     `db:"last_activity"`
	Expired      bool          `db:"expired"`
}

func (dto roomDTO) toModel() model.Room {
	room := model.Room{
		ID:           dto.ID,
		Key:          model.RoomKey(dto.Key),
		MaxSkips:     dto.MaxSkips,
		CreatedAt:    dto.CreatedAt,
		LastActivity: dto.LastActivity,
		Expired:      dto.Expired,
	}
	if dto.HostID.Valid {
		room.HostID = dto.HostID.UUID
	}
	return room
}

func (d *Driver) Create(ctx context.Context, room model.Room) error {
	dto := roomDTO{
		ID:           room.ID,
		Key:          string(room.Key),
		MaxSkips:     room.MaxSkips,
		CreatedAt:    room.CreatedAt,
		LastActivity: room.LastActivity,
		Expired:      room.Expired,
	}
	if room.HostID != uuid.Nil {
		dto.HostID = uuid.NullUUID{UUID: room.HostID, Valid: true}
	}

	query := `
		INSERT INTO rooms (id, key, host_id, max_skips, created_at, last_activity, expired)
		VALUES (:id, :key, :host_id, :max_skips, :created_at, :last_activity, :expired)
	`

	_, err := d.db.NamedExecContext(ctx, query, dto)
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") ||
			strings.Contains(err.Error(), "duplicate key") {
			return usecase_room.ErrKeyConflict
		}
		return err
	}
	return nil
}

func (d *Driver) ByKey(ctx context.Context, key model.RoomKey) (model.Room, error) {
	var dto roomDTO

	query := `
		SELECT id, key, host_id, max_skips, created_at, last_activity, expired
		FROM rooms
		WHERE key = $1
	`

	err := d.db.GetContext(ctx, &dto, query, string(key))
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Room{}, model.ErrRoomNotFound
		}
		return model.Room{}, err
	}

	return dto.toModel(), nil
}

func (d *Driver) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE rooms
		SET last_activity = $2
		WHERE id = $1
	`

	_, err := d.db.ExecContext(ctx, query, id, at)
	return err
}

func (d *Driver) SetHost(ctx context.Context, roomID, hostID uuid.UUID) error {
	query := `
		UPDATE rooms
		SET host_id = $2
		WHERE id = $1
	`

	_, err := d.db.ExecContext(ctx, query, roomID, hostID)
	return err
}

func (d *Driver) ListIdle(ctx context.Context, cutoff time.Time) ([]model.Room, error) {
	var dtos []roomDTO

	query := `
		SELECT id, key, host_id, max_skips, created_at, last_activity, expired
		FROM rooms
		WHERE last_activity < $1
	`

	if err := d.db.SelectContext(ctx, &dtos, query, cutoff); err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(dtos))
	for _, dto := range dtos {
		rooms = append(rooms, dto.toModel())
	}
	return rooms, nil
}

func (d *Driver) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM rooms
		WHERE id = $1
	`

	_, err := d.db.ExecContext(ctx, query, id)
	return err
}
