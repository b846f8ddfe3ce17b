package save

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/clawmachine/internal/models"
	"github.com/playmatatu/clawmachine/internal/prize"
)

// PostgresStore keeps save slots in the machine_saves table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, profileID int) (*State, error) {
	var row models.MachineSave
	err := s.db.GetContext(ctx, &row, `SELECT profile_id, last_saved, coins, ball_count, prizes, updated_at FROM machine_saves WHERE profile_id=$1`, profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("load save for profile %d: %w", profileID, err)
	}

	var catalog prize.Catalog
	if len(row.Prizes) > 0 {
		if err := json.Unmarshal(row.Prizes, &catalog); err != nil {
			return nil, fmt.Errorf("parse prizes for profile %d: %w", profileID, err)
		}
	}
	return &State{
		LastSaved: Timestamp{fromDB(row.LastSaved)},
		Coins:     row.Coins,
		Balls:     row.BallCount,
		Prizes:    catalog,
	}, nil
}

func (s *PostgresStore) Save(ctx context.Context, profileID int, st *State) error {
	prizes, err := json.Marshal(st.Prizes)
	if err != nil {
		return fmt.Errorf("encode prizes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO machine_saves (profile_id, last_saved, coins, ball_count, prizes, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, NOW())
		ON CONFLICT (profile_id) DO UPDATE SET
			last_saved = EXCLUDED.last_saved,
			coins = EXCLUDED.coins,
			ball_count = EXCLUDED.ball_count,
			prizes = EXCLUDED.prizes,
			updated_at = NOW()
	`, profileID, toDB(st.LastSaved.Time), st.Coins, st.Balls, string(prizes))
	if err != nil {
		return fmt.Errorf("save profile %d: %w", profileID, err)
	}
	return nil
}

// RecordWin appends an awarded prize to the profile's win history.
func (s *PostgresStore) RecordWin(ctx context.Context, profileID int, award prize.Award) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prize_wins (profile_id, section, subsection, prize_key, won_at) VALUES ($1, $2, $3, $4, NOW())`,
		profileID, award.Section, award.Subsection, award.Key,
	)
	if err != nil {
		return fmt.Errorf("record win for profile %d: %w", profileID, err)
	}
	return nil
}

// Wins returns the profile's win history, newest first.
func (s *PostgresStore) Wins(ctx context.Context, profileID int, limit int) ([]models.PrizeWin, error) {
	var wins []models.PrizeWin
	err := s.db.SelectContext(ctx, &wins,
		`SELECT id, profile_id, section, subsection, prize_key, won_at FROM prize_wins WHERE profile_id=$1 ORDER BY won_at DESC LIMIT $2`,
		profileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list wins for profile %d: %w", profileID, err)
	}
	return wins, nil
}

// toDB normalises a save time to UTC before it reaches last_saved.
func toDB(t time.Time) time.Time { return t.UTC() }

// fromDB reads last_saved back as an absolute instant in UTC, whatever zone
// the driver attached.
func fromDB(t time.Time) time.Time { return t.In(time.UTC) }
