package infra_postgres_ban

import (
	"context"
	"database/sql"
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

type banDTO struct {
	RoomID         uuid.UUID    `db:"room_id"`
	Addr           string       `db:"addr"`
	Name           string       `db:"name"`
	KickedAt       time.Time    `db:"kicked_at"`
	RejoinAttempts int          `db:"rejoin_attempts"`
	LastAttempt    sql.NullTime `db:"last_attempt"`
	Permanent      bool         `db:"permanent"`
}

func (dto banDTO) toModel() model.BanRecord {
	return model.BanRecord{
		RoomID:         dto.RoomID,
		Addr:           dto.Addr,
		Name:           dto.Name,
		KickedAt:       dto.KickedAt,
		RejoinAttempts: dto.RejoinAttempts,
		LastAttempt:    dto.LastAttempt.Time,
		Permanent:      dto.Permanent,
	}
}

func toDTO(ban model.BanRecord) banDTO {
	return banDTO{
		RoomID:         ban.RoomID,
		Addr:           ban.Addr,
		Name:           ban.Name,
		KickedAt:       ban.KickedAt,
		RejoinAttempts: ban.RejoinAttempts,
		LastAttempt:    sql.NullTime{Time: ban.LastAttempt, Valid: !ban.LastAttempt.IsZero()},
		Permanent:      ban.Permanent,
	}
}

func (d *Driver) Create(ctx context.Context, ban model.BanRecord) error {
	query := `
		INSERT INTO bans (room_id, addr, name, kicked_at, rejoin_attempts, last_attempt, permanent)
		VALUES (:room_id, :addr, :name, :kicked_at, :rejoin_attempts, :last_attempt, :permanent)
		ON CONFLICT (room_id, addr) DO UPDATE
		SET name = EXCLUDED.name,
		    kicked_at = EXCLUDED.kicked_at
	`

	_, err := d.db.NamedExecContext(ctx, query, toDTO(ban))
	return err
}

func (d *Driver) ByAddr(ctx context.Context, roomID uuid.UUID, addr string) (model.BanRecord, bool, error) {
	var dto banDTO

	query := `
		SELECT room_id, addr, name, kicked_at, rejoin_attempts, last_attempt, permanent
		FROM bans
		WHERE room_id = $1 AND addr = $2
	`

	err := d.db.GetContext(ctx, &dto, query, roomID, addr)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.BanRecord{}, false, nil
		}
		return model.BanRecord{}, false, err
	}

	return dto.toModel(), true, nil
}

func (d *Driver) Update(ctx context.Context, ban model.BanRecord) error {
	query := `
		UPDATE bans
		SET rejoin_attempts = :rejoin_attempts,
		    last_attempt = :last_attempt,
		    permanent = :permanent
		WHERE room_id = :room_id AND addr = :addr
	`

	_, err := d.db.NamedExecContext(ctx, query, toDTO(ban))
	return err
}

func (d *Driver) DeleteByName(ctx context.Context, roomID uuid.UUID, name string) error {
	query := `
		DELETE FROM bans
		WHERE room_id = $1 AND name = $2
	`

	_, err := d.db.ExecContext(ctx, query, roomID, name)
	return err
}

func (d *Driver) DeleteByRoom(ctx context.Context, roomID uuid.UUID) error {
	query := `
		DELETE FROM bans
		WHERE room_id = $1
	`

	_, err := d.db.ExecContext(ctx, query, roomID)
	return err
}
