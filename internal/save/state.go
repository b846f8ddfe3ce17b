package save

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/playmatatu/clawmachine/internal/prize"
)

// timestampLayout matches an ISO-8601 local timestamp with microseconds.
// Parsing also accepts the value without a fractional part.
const (
	timestampLayout = "2006-01-02T15:04:05.000000"
	parseLayout     = "2006-01-02T15:04:05"
)

// Timestamp is a local wall-clock time serialised without a zone offset.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Local().Format(timestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(parseLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// State is the persisted save slot. Field names follow the save-file format.
type State struct {
	LastSaved Timestamp     `json:"Last Saved DateTime"`
	Coins     int           `json:"Coins"`
	Balls     int           `json:"Gacha Balls"`
	Prizes    prize.Catalog `json:"Prizes"`
}

// Limits bound currency and the ball budget on restore.
type Limits struct {
	MaxCoins  int
	MaxBalls  int
	CoinEvery time.Duration
}

// DefaultLimits returns the stock machine limits.
func DefaultLimits() Limits {
	return Limits{
		MaxCoins:  20,
		MaxBalls:  20,
		CoinEvery: 300 * time.Second,
	}
}

// NewState returns a fresh slot with full coins and a full machine of balls.
func NewState(now time.Time, catalog prize.Catalog, lim Limits) *State {
	return &State{
		LastSaved: Timestamp{now},
		Coins:     lim.MaxCoins,
		Balls:     lim.MaxBalls,
		Prizes:    catalog,
	}
}

// Source is what Capture reads from a running machine.
type Source interface {
	Coins() int
	BallCount() int
	Catalog() prize.Catalog
}

// Capture snapshots a running machine into a State stamped at now.
func Capture(src Source, now time.Time) *State {
	return &State{
		LastSaved: Timestamp{now},
		Coins:     src.Coins(),
		Balls:     src.BallCount(),
		Prizes:    src.Catalog().Clone(),
	}
}

// Restored is the session starting point derived from a State.
type Restored struct {
	Coins   int
	Spawned int
	Catalog prize.Catalog
}

// Restore applies idle-time coin accrual and the daily ball budget. Coins
// grow by one per CoinEvery elapsed since the save, capped at MaxCoins. The
// spawned count starts at zero on a new calendar day; otherwise it resumes
// at MaxBalls minus the saved ball count so the same balls are refilled.
func Restore(st *State, now time.Time, lim Limits) Restored {
	saved := st.LastSaved.Time.In(now.Location())

	elapsed := now.Sub(saved)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	coins := st.Coins
	if lim.CoinEvery > 0 {
		coins += int(elapsed / lim.CoinEvery)
	}
	if coins > lim.MaxCoins {
		coins = lim.MaxCoins
	}

	spawned := 0
	if sameDay(saved, now) {
		spawned = lim.MaxBalls - st.Balls
		if spawned < 0 {
			spawned = 0
		}
		if spawned > lim.MaxBalls {
			spawned = lim.MaxBalls
		}
	}

	catalog := st.Prizes
	if catalog == nil {
		catalog = prize.Catalog{}
	}
	return Restored{Coins: coins, Spawned: spawned, Catalog: catalog.Clone()}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
