package game

import "github.com/playmatatu/clawmachine/internal/prize"

// ClawView is the serialisable claw state.
type ClawView struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	State     ClawState `json:"state"`
	Frame     int       `json:"frame"`
	HoldLeft  bool      `json:"hold_left"`
	HoldRight bool      `json:"hold_right"`
	HeldBall  int       `json:"held_ball,omitempty"`
}

// BallView is the serialisable state of one ball.
type BallView struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Snapshot is everything a front-end needs to draw one frame.
type Snapshot struct {
	Tick      uint64       `json:"tick"`
	Mode      Mode         `json:"mode"`
	Coins     int          `json:"coins"`
	MaxCoins  int          `json:"max_coins"`
	Spawned   int          `json:"spawned"`
	MaxBalls  int          `json:"max_balls"`
	Claw      ClawView     `json:"claw"`
	Balls     []BallView   `json:"balls"`
	Pending   *prize.Award `json:"pending_prize,omitempty"`
	Shelf     *prize.Page  `json:"shelf,omitempty"`
	PrizesWon int          `json:"prizes_won"`
	Prizes    int          `json:"prizes_total"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:     s.ticks,
		Mode:     s.mode,
		Coins:    s.coins,
		MaxCoins: s.tuning.MaxCoins,
		Spawned:  s.spawned,
		MaxBalls: s.tuning.MaxBalls,
		Claw: ClawView{
			X:         s.claw.X(),
			Y:         s.claw.Y(),
			State:     s.claw.State(),
			Frame:     s.claw.Frame(),
			HoldLeft:  s.holdLeft,
			HoldRight: s.holdRight,
		},
		Balls: make([]BallView, 0, s.balls.Len()),
	}
	if held := s.claw.Grabbed(); held != nil {
		snap.Claw.HeldBall = held.ID
	}
	for _, b := range s.balls.All() {
		pos := b.Position(s.world)
		snap.Balls = append(snap.Balls, BallView{ID: b.ID, X: pos.X, Y: pos.Y, Angle: b.Angle(s.world)})
	}
	if s.pending != nil {
		award := *s.pending
		snap.Pending = &award
	}
	if page, ok := s.ShelfPage(); ok {
		snap.Shelf = &page
	}
	snap.PrizesWon, snap.Prizes = s.catalog.Counts()
	return snap
}
