package models

import (
	"database/sql"
	"time"
)

// Profile is a player with a PIN-protected save slot
type Profile struct {
	ID         int          `db:"id" json:"id"`
	Name       string       `db:"name" json:"name"`
	PINHash    string       `db:"pin_hash" json:"-"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	LastActive sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// MachineSave is the persisted claw machine slot for a profile
type MachineSave struct {
	ProfileID int       `db:"profile_id" json:"profile_id"`
	LastSaved time.Time `db:"last_saved" json:"last_saved"`
	Coins     int       `db:"coins" json:"coins"`
	BallCount int       `db:"ball_count" json:"ball_count"`
	Prizes    []byte    `db:"prizes" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PrizeWin records a single prize awarded to a profile
type PrizeWin struct {
	ID         int       `db:"id" json:"id"`
	ProfileID  int       `db:"profile_id" json:"profile_id"`
	Section    string    `db:"section" json:"section"`
	Subsection string    `db:"subsection" json:"subsection"`
	PrizeKey   string    `db:"prize_key" json:"prize_key"`
	WonAt      time.Time `db:"won_at" json:"won_at"`
}
