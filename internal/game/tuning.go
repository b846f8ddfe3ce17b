package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/physics"
)

// Tuning holds every constant the machine runs with. Positions are in
// screen pixels with y growing downwards.
type Tuning struct {
	ScreenWidth  float64
	ScreenHeight float64
	Gravity      physics.Vec
	TickRate     int

	ClawOriginY    float64
	ClawTargetY    float64
	ClawSpeed      float64
	ClawMinX       float64
	ClawMaxX       float64
	ClawFrameDelay int
	ClawFrameScale float64
	ClawMaterial   physics.Material
	HoldOffset     physics.Vec
	GrabRadius     float64
	GrabChance     float64

	BallRadius       float64
	BallMass         float64
	BallMaterial     physics.Material
	BallSpawnMinX    int
	BallSpawnMaxX    int
	BallSpawnY       float64
	ShuffleIntensity float64

	ContainerCentre    physics.Vec
	ContainerWidth     float64
	ContainerHeight    float64
	ContainerThickness float64
	ContainerMaterial  physics.Material

	MaxBalls        int
	MaxCoins        int
	SpawnEveryTicks int
	CoinEveryTicks  int
}

// DefaultTuning returns the stock 700x700 cabinet.
func DefaultTuning() Tuning {
	return Tuning{
		ScreenWidth:  700,
		ScreenHeight: 700,
		Gravity:      physics.Vec{X: 0, Y: 900},
		TickRate:     60,

		ClawOriginY:    210,
		ClawTargetY:    450,
		ClawSpeed:      5,
		ClawMinX:       100,
		ClawMaxX:       600,
		ClawFrameDelay: 5,
		ClawFrameScale: 1,
		ClawMaterial:   physics.Material{Elasticity: 0.4, Friction: 0.5},
		HoldOffset:     physics.Vec{X: 0, Y: 40},
		GrabRadius:     40,
		GrabChance:     1,

		BallRadius:       35,
		BallMass:         1,
		BallMaterial:     physics.Material{Elasticity: 0.8, Friction: 0.5, CollisionType: 1},
		BallSpawnMinX:    29,
		BallSpawnMaxX:    30,
		BallSpawnY:       150,
		ShuffleIntensity: 500,

		ContainerCentre:    physics.Vec{X: 350, Y: 340},
		ContainerWidth:     770,
		ContainerHeight:    450,
		ContainerThickness: 50,
		ContainerMaterial:  physics.Material{Elasticity: 0.6},

		MaxBalls:        20,
		MaxCoins:        20,
		SpawnEveryTicks: 30,
		CoinEveryTicks:  3600,
	}
}

// ErrInvalidTuning wraps every Validate failure.
var ErrInvalidTuning = errors.New("invalid tuning")

// Validate rejects tunings the claw state machine cannot honour. The descent
// distance must be a whole number of steps so the claw stops exactly on
// ClawTargetY and ClawOriginY.
func (t Tuning) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidTuning, fmt.Sprintf(format, args...))
	}

	switch {
	case t.TickRate <= 0:
		return fail("tick rate %d must be positive", t.TickRate)
	case t.ClawSpeed <= 0:
		return fail("claw speed %v must be positive", t.ClawSpeed)
	case t.ClawOriginY >= t.ClawTargetY:
		return fail("claw origin y %v must be above target y %v", t.ClawOriginY, t.ClawTargetY)
	case math.Mod(t.ClawTargetY-t.ClawOriginY, t.ClawSpeed) != 0:
		return fail("descent %v is not a multiple of claw speed %v", t.ClawTargetY-t.ClawOriginY, t.ClawSpeed)
	case t.ClawMinX > t.ClawMaxX:
		return fail("claw min x %v exceeds max x %v", t.ClawMinX, t.ClawMaxX)
	case t.ClawFrameDelay < 1:
		return fail("frame delay %d must be at least 1", t.ClawFrameDelay)
	case t.ClawFrameScale <= 0:
		return fail("frame scale %v must be positive", t.ClawFrameScale)
	case t.GrabRadius < 0:
		return fail("grab radius %v is negative", t.GrabRadius)
	case t.GrabChance < 0 || t.GrabChance > 1:
		return fail("grab chance %v outside [0, 1]", t.GrabChance)
	case t.BallRadius <= 0 || t.BallMass <= 0:
		return fail("ball radius %v and mass %v must be positive", t.BallRadius, t.BallMass)
	case t.BallSpawnMinX > t.BallSpawnMaxX:
		return fail("ball spawn band [%d, %d] is empty", t.BallSpawnMinX, t.BallSpawnMaxX)
	case t.MaxBalls < 0 || t.MaxCoins < 0:
		return fail("max balls %d and max coins %d must not be negative", t.MaxBalls, t.MaxCoins)
	case t.SpawnEveryTicks <= 0 || t.CoinEveryTicks <= 0:
		return fail("timer periods must be positive")
	}
	return nil
}

// CentreX is the claw's starting column.
func (t Tuning) CentreX() float64 {
	return math.Floor(t.ScreenWidth / 2)
}

// Dt is the fixed physics step.
func (t Tuning) Dt() float64 {
	return 1 / float64(t.TickRate)
}

// TuningFromConfig applies the environment overrides to DefaultTuning. Timer
// periods follow the tick rate so spawns stay at two per second and coins at
// one per minute.
func TuningFromConfig(cfg *config.Config) Tuning {
	t := DefaultTuning()
	if cfg == nil {
		return t
	}
	if cfg.TickRate > 0 {
		t.TickRate = cfg.TickRate
		t.SpawnEveryTicks = max(1, cfg.TickRate/2)
		t.CoinEveryTicks = 60 * cfg.TickRate
	}
	if cfg.ClawSpeed > 0 {
		t.ClawSpeed = cfg.ClawSpeed
	}
	if cfg.ClawGrabRadius > 0 {
		t.GrabRadius = cfg.ClawGrabRadius
	}
	if cfg.ClawGrabChance > 0 {
		t.GrabChance = cfg.ClawGrabChance
	}
	if cfg.ClawFrameDelay > 0 {
		t.ClawFrameDelay = cfg.ClawFrameDelay
	}
	if cfg.BallMax > 0 {
		t.MaxBalls = cfg.BallMax
	}
	if cfg.CoinMax > 0 {
		t.MaxCoins = cfg.CoinMax
	}
	return t
}
