package infra_postgres_gamestate

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

type stateDTO struct {
	RoomID        uuid.UUID      `db:"room_id"`
	CurrentTurnID uuid.NullUUID  `db:"current_turn_id"`
	TargetID      uuid.NullUUID  `db:"target_id"`
	Phase         string         `db:"phase"`
	Question      sql.NullString `db:"question"`
	Choice        sql.NullString `db:"choice"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (dto stateDTO) toModel() model.GameState {
	state := model.GameState{
		RoomID:    dto.RoomID,
		Phase:     model.Phase(dto.Phase),
		Question:  dto.Question.String,
		Choice:    model.Choice(dto.Choice.String),
		UpdatedAt: dto.UpdatedAt,
	}
	if dto.CurrentTurnID.Valid {
		state.CurrentTurnID = dto.CurrentTurnID.UUID
	}
	if dto.TargetID.Valid {
		state.TargetID = dto.TargetID.UUID
	}
	return state
}

func (d *Driver) Upsert(ctx context.Context, state model.GameState) error {
	dto := stateDTO{
		RoomID:    state.RoomID,
		Phase:     string(state.Phase),
		Question:  sql.NullString{String: state.Question, Valid: state.Question != ""},
		Choice:    sql.NullString{String: string(state.Choice), Valid: state.Choice != ""},
		UpdatedAt: state.UpdatedAt,
	}
	if state.CurrentTurnID != uuid.Nil {
		dto.CurrentTurnID = uuid.NullUUID{UUID: state.CurrentTurnID, Valid: true}
	}
	if state.TargetID != uuid.Nil {
		dto.TargetID = uuid.NullUUID{UUID: state.TargetID, Valid: true}
	}

	query := `
		INSERT INTO game_states (room_id, current_turn_id, target_id, phase, question, choice, updated_at)
		VALUES (:room_id, :current_turn_id, :target_id, :phase, :question, :choice, :updated_at)
		ON CONFLICT (room_id) DO UPDATE
		SET current_turn_id = EXCLUDED.current_turn_id,
		    target_id = EXCLUDED.target_id,
		    phase = EXCLUDED.phase,
		    question = EXCLUDED.question,
		    choice = EXCLUDED.choice,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := d.db.NamedExecContext(ctx, query, dto)
	return err
}

func (d *Driver) ByRoom(ctx context.Context, roomID uuid.UUID) (model.GameState, error) {
	var dto stateDTO

	query := `
		SELECT room_id, current_turn_id, target_id, phase, question, choice, updated_at
		FROM game_states
		WHERE room_id = $1
	`

	err := d.db.GetContext(ctx, &dto, query, roomID)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.GameState{}, model.ErrRoomNotFound
		}
		return model.GameState{}, err
	}

	return dto.toModel(), nil
}

func (d *Driver) DeleteByRoom(ctx context.Context, roomID uuid.UUID) error {
	query := `
		DELETE FROM game_states
		WHERE room_id = $1
	`

	_, err := d.db.ExecContext(ctx, query, roomID)
	return err
}
