package infra_postgres_message

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

type messageDTO struct {
	ID        uuid.UUID      `db:"id"`
	RoomID    uuid.UUID      `db:"room_id"`
	UserID    uuid.NullUUID  `db:"user_id"`
	Name      string         `db:"name"`
	Text      sql.NullString `db:"text"`
	MediaURL  sql.NullString `db:"media_url"`
	MediaType sql.NullString `db:"media_type"`
	CreatedAt time.Time      `db:"created_at"`
}

func (dto messageDTO) toModel() model.Message {
	msg := model.Message{
		ID:        dto.ID,
		RoomID:    dto.RoomID,
		Name:      dto.Name,
		Text:      dto.Text.String,
		MediaURL:  dto.MediaURL.String,
		MediaType: dto.MediaType.String,
		CreatedAt: dto.CreatedAt,
	}
	if dto.UserID.Valid {
		msg.UserID = dto.UserID.UUID
	}
	return msg
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (d *Driver) Create(ctx context.Context, msg model.Message) error {
	dto := messageDTO{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Name:      msg.Name,
		Text:      nullable(msg.Text),
		MediaURL:  nullable(msg.MediaURL),
		MediaType: nullable(msg.MediaType),
		CreatedAt: msg.CreatedAt,
	}
	if msg.UserID != uuid.Nil {
		dto.UserID = uuid.NullUUID{UUID: msg.UserID, Valid: true}
	}

	query := `
		INSERT INTO messages (id, room_id, user_id, name, text, media_url, media_type, created_at)
		VALUES (:id, :room_id, :user_id, :name, :text, :media_url, :media_type, :created_at)
	`

	_, err := d.db.NamedExecContext(ctx, query, dto)
	return err
}

// Recent returns the latest messages in chronological order.
func (d *Driver) Recent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	var dtos []messageDTO

	query := `
		SELECT id, room_id, user_id, name, text, media_url, media_type, created_at
		FROM (
			SELECT id, room_id, user_id, name, text, media_url, media_type, created_at
			FROM messages
			WHERE room_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at
	`

	if err := d.db.SelectContext(ctx, &dtos, query, roomID, limit); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(dtos))
	for _, dto := range dtos {
		msgs = append(msgs, dto.toModel())
	}
	return msgs, nil
}

func (d *Driver) MediaURLs(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	var urls []string

	query := `
		SELECT media_url
		FROM messages
		WHERE room_id = $1 AND media_url IS NOT NULL
	`

	if err := d.db.SelectContext(ctx, &urls, query, roomID); err != nil {
		return nil, err
	}
	return urls, nil
}

func (d *Driver) DeleteByRoom(ctx context.Context, roomID uuid.UUID) error {
	query := `
		DELETE FROM messages
		WHERE room_id = $1
	`

	_, err := d.db.ExecContext(ctx, query, roomID)
	return err
}
