package infra_postgres_user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lidiakram/bottlespin/internal/model"
)

type Driver struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Driver {
	return &Driver{db: db}
}

type userDTO struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	RoomID    uuid.UUID `db:"room_id"`
	IsHost    bool      `db:"is_host"`
	Online    bool      `db:"online"`
	SkipsLeft int       `db:"skips_left"`
	JoinedAt  time.Time `db:"joined_at"`
	Addr      string    `db:"addr"`
}

func (dto userDTO) toModel() model.User {
	return model.User{
		ID:        dto.ID,
		Name:      dto.Name,
		RoomID:    dto.RoomID,
		IsHost:    dto.IsHost,
		Online:    dto.Online,
		SkipsLeft: dto.SkipsLeft,
		JoinedAt:  dto.JoinedAt,
		Addr:      dto.Addr,
	}
}

// Upsert covers both join inserts and the frequent flag flips
// (online, host, skips) the session applies.
func (d *Driver) Upsert(ctx context.Context, user model.User) error {
	dto := userDTO{
		ID:        user.ID,
		Name:      user.Name,
		RoomID:    user.RoomID,
		IsHost:    user.IsHost,
		Online:    user.Online,
		SkipsLeft: user.SkipsLeft,
		JoinedAt:  user.JoinedAt,
		Addr:      user.Addr,
	}

	query := `
		INSERT INTO users (id, name, room_id, is_host, online, skips_left, joined_at, addr)
		VALUES (:id, :name, :room_id, :is_host, :online, :skips_left, :joined_at, :addr)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    is_host = EXCLUDED.is_host,
		    online = EXCLUDED.online,
		    skips_left = EXCLUDED.skips_left,
		    addr = EXCLUDED.addr
	`

	_, err := d.db.NamedExecContext(ctx, query, dto)
	return err
}

func (d *Driver) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM users
		WHERE id = $1
	`

	_, err := d.db.ExecContext(ctx, query, id)
	return err
}

func (d *Driver) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.User, error) {
	var dtos []userDTO

	query := `
		SELECT id, name, room_id, is_host, online, skips_left, joined_at, addr
		FROM users
		WHERE room_id = $1
		ORDER BY joined_at
	`

	if err := d.db.SelectContext(ctx, &dtos, query, roomID); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(dtos))
	for _, dto := range dtos {
		users = append(users, dto.toModel())
	}
	return users, nil
}

func (d *Driver) DeleteByRoom(ctx context.Context, roomID uuid.UUID) error {
	query := `
		DELETE FROM users
		WHERE room_id = $1
	`

	_, err := d.db.ExecContext(ctx, query, roomID)
	return err
}
