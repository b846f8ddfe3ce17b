package game

import (
	"errors"
	"math/rand/v2"

	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/physics"
	"github.com/playmatatu/clawmachine/internal/prize"
	"github.com/playmatatu/clawmachine/internal/save"
)

// Command is a player input. The string values double as the wire names.
type Command string

const (
	CmdMoveLeft     Command = "move_left"
	CmdMoveRight    Command = "move_right"
	CmdHoldLeft     Command = "hold_left"
	CmdReleaseLeft  Command = "release_left"
	CmdHoldRight    Command = "hold_right"
	CmdReleaseRight Command = "release_right"
	CmdDrop         Command = "drop"
	CmdShuffle      Command = "shuffle"
	CmdAckPrize     Command = "ack_prize"
	CmdOpenShelf    Command = "open_shelf"
	CmdCloseShelf   Command = "close_shelf"
	CmdShelfNext    Command = "shelf_next"
	CmdShelfPrev    Command = "shelf_prev"
)

// Commands lists every command a session accepts.
func Commands() []Command {
	return []Command{
		CmdMoveLeft, CmdMoveRight, CmdHoldLeft, CmdReleaseLeft, CmdHoldRight, CmdReleaseRight,
		CmdDrop, CmdShuffle, CmdAckPrize, CmdOpenShelf, CmdCloseShelf, CmdShelfNext, CmdShelfPrev,
	}
}

var (
	ErrPaused         = errors.New("machine is paused")
	ErrNoCoins        = errors.New("no coins left")
	ErrClawBusy       = errors.New("claw is not idle")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoPendingPrize = errors.New("no prize to acknowledge")
	ErrShelfClosed    = errors.New("prize shelf is not open")
	ErrNoFrames       = errors.New("claw frame table is required")
)

// NewRand returns a seeded source for a Session.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// TickResult reports what happened during one Session.Tick.
type TickResult struct {
	Advanced    bool
	SpawnedBall int
	Collected   int
	Award       *prize.Award
	CoinAdded   bool
}

// Session is one running machine: the world, claw, container and balls plus
// coins, the ball budget, timers, the prize catalog and the modal state.
// A Session is not safe for concurrent use.
type Session struct {
	tuning    Tuning
	rng       Rand
	world     *physics.World
	container Container
	claw      *Claw
	balls     BallSet

	coins      int
	spawned    int
	nextBallID int
	ticks      uint64
	spawnTimer int
	coinTimer  int

	holdLeft  bool
	holdRight bool

	catalog prize.Catalog
	mode    Mode
	pending *prize.Award
	shelf   *prize.Shelf
}

// NewSession builds a machine from a restored save. The world starts empty
// apart from the container and the claw; balls arrive on the spawn timer.
func NewSession(t Tuning, frames *geometry.FrameTable, start save.Restored, rng Rand) (*Session, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if frames == nil {
		return nil, ErrNoFrames
	}

	catalog := start.Catalog
	if catalog == nil {
		catalog = prize.Catalog{}
	}

	world := physics.NewWorld(t.Gravity)
	s := &Session{
		tuning:    t,
		rng:       rng,
		world:     world,
		container: BuildContainer(world, t),
		claw:      NewClaw(world, frames, t, rng),
		coins:     min(max(start.Coins, 0), t.MaxCoins),
		spawned:   min(max(start.Spawned, 0), t.MaxBalls),
		catalog:   catalog,
		mode:      ModePlaying,
	}
	return s, nil
}

// Apply executes one command. Commands that do not fit the current state
// return a sentinel error and change nothing.
func (s *Session) Apply(cmd Command) error {
	switch cmd {
	case CmdHoldLeft:
		s.holdLeft = true
		return nil
	case CmdReleaseLeft:
		s.holdLeft = false
		return nil
	case CmdHoldRight:
		s.holdRight = true
		return nil
	case CmdReleaseRight:
		s.holdRight = false
		return nil
	}

	switch s.mode {
	case ModePrizePopup:
		return s.applyPopup(cmd)
	case ModeShelf:
		return s.applyShelf(cmd)
	}

	switch cmd {
	case CmdMoveLeft, CmdMoveRight:
		if s.claw.State() != ClawIdle {
			return ErrClawBusy
		}
		if cmd == CmdMoveLeft {
			s.claw.MoveLeft()
		} else {
			s.claw.MoveRight()
		}
	case CmdDrop:
		if s.claw.State() != ClawIdle {
			return ErrClawBusy
		}
		if s.coins <= 0 {
			return ErrNoCoins
		}
		s.coins--
		s.claw.Drop()
	case CmdShuffle:
		for _, b := range s.balls.All() {
			b.Shuffle(s.world, s.rng, s.tuning.ShuffleIntensity)
		}
	case CmdOpenShelf:
		s.shelf = prize.NewShelf(s.catalog, prize.DefaultLayout)
		s.mode = ModeShelf
	case CmdAckPrize:
		return ErrNoPendingPrize
	case CmdCloseShelf, CmdShelfNext, CmdShelfPrev:
		return ErrShelfClosed
	default:
		return ErrUnknownCommand
	}
	return nil
}

func (s *Session) applyPopup(cmd Command) error {
	switch cmd {
	case CmdAckPrize:
		s.pending = nil
		s.mode = ModePlaying
		return nil
	case CmdMoveLeft, CmdMoveRight, CmdDrop, CmdShuffle, CmdOpenShelf, CmdCloseShelf, CmdShelfNext, CmdShelfPrev:
		return ErrPaused
	}
	return ErrUnknownCommand
}

func (s *Session) applyShelf(cmd Command) error {
	switch cmd {
	case CmdShelfNext:
		s.shelf.Next()
		return nil
	case CmdShelfPrev:
		s.shelf.Prev()
		return nil
	case CmdCloseShelf:
		s.shelf = nil
		s.mode = ModePlaying
		return nil
	case CmdMoveLeft, CmdMoveRight, CmdDrop, CmdShuffle, CmdOpenShelf, CmdAckPrize:
		return ErrPaused
	}
	return ErrUnknownCommand
}

// Tick runs one fixed step: held movement, the claw, prize award, the spawn
// and coin timers, then physics. Nothing advances while a modal is open.
func (s *Session) Tick() TickResult {
	if s.mode != ModePlaying {
		return TickResult{}
	}
	res := TickResult{Advanced: true}
	s.ticks++

	if s.holdLeft {
		s.claw.MoveLeft()
	}
	if s.holdRight {
		s.claw.MoveRight()
	}

	if ball := s.claw.Tick(&s.balls); ball != nil {
		res.Collected = ball.ID
		if award, ok := s.catalog.Award(s.rng); ok {
			res.Award = &award
			s.pending = &award
			s.mode = ModePrizePopup
		}
	}

	s.spawnTimer++
	if s.spawnTimer >= s.tuning.SpawnEveryTicks {
		s.spawnTimer = 0
		if s.spawned < s.tuning.MaxBalls {
			s.nextBallID++
			s.balls.Add(SpawnBall(s.world, s.tuning, s.rng, s.nextBallID))
			s.spawned++
			res.SpawnedBall = s.nextBallID
		}
	}

	s.coinTimer++
	if s.coinTimer >= s.tuning.CoinEveryTicks {
		s.coinTimer = 0
		if s.coins < s.tuning.MaxCoins {
			s.coins++
			res.CoinAdded = true
		}
	}

	s.world.Step(s.tuning.Dt())
	return res
}

// Close deregisters the claw and every ball.
func (s *Session) Close() {
	for _, b := range append([]*Ball(nil), s.balls.All()...) {
		s.balls.Remove(b)
		b.Remove(s.world)
	}
	s.claw.Destroy()
}

func (s *Session) Coins() int                 { return s.coins }
func (s *Session) BallCount() int             { return s.balls.Len() }
func (s *Session) Catalog() prize.Catalog     { return s.catalog }
func (s *Session) Spawned() int               { return s.spawned }
func (s *Session) Mode() Mode                 { return s.mode }
func (s *Session) Ticks() uint64              { return s.ticks }
func (s *Session) Claw() *Claw                { return s.claw }
func (s *Session) Balls() *BallSet            { return &s.balls }
func (s *Session) World() *physics.World      { return s.world }
func (s *Session) Tuning() Tuning             { return s.tuning }
func (s *Session) Container() Container       { return s.container }
func (s *Session) PendingPrize() *prize.Award { return s.pending }

// ShelfPage returns the open shelf page, or false when the shelf is closed.
func (s *Session) ShelfPage() (prize.Page, bool) {
	if s.shelf == nil {
		return prize.Page{}, false
	}
	return s.shelf.Current(), true
}
