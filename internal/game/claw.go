package game

import (
	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/physics"
)

// Claw is the kinematic grabber. It owns its body and collision shape and,
// while ascending, at most one carried ball.
type Claw struct {
	world  *physics.World
	frames *geometry.FrameTable
	tuning Tuning
	rng    Rand

	body         physics.BodyID
	x, y         float64
	state        ClawState
	frame        int
	frameCounter int
	grabbed      *Ball
}

// NewClaw registers the claw at the machine centre, idle and fully open.
func NewClaw(w *physics.World, frames *geometry.FrameTable, t Tuning, rng Rand) *Claw {
	c := &Claw{
		world:  w,
		frames: frames,
		tuning: t,
		rng:    rng,
		x:      t.CentreX(),
		y:      t.ClawOriginY,
		state:  ClawIdle,
	}
	c.body = w.AddKinematicBody(physics.Vec{X: c.x, Y: c.y})
	c.rebuildShape()
	return c
}

func (c *Claw) State() ClawState { return c.state }
func (c *Claw) X() float64       { return c.x }
func (c *Claw) Y() float64       { return c.y }
func (c *Claw) Frame() int       { return c.frame }

// Grabbed returns the carried ball, or nil.
func (c *Claw) Grabbed() *Ball { return c.grabbed }

func (c *Claw) Body() physics.BodyID { return c.body }

// FrameCount returns the length of the table the current state draws from.
func (c *Claw) FrameCount() int {
	if c.state == ClawAscending {
		return c.frames.OpeningCount()
	}
	return c.frames.ClosingCount()
}

// MoveLeft steps the claw left, clamped at ClawMinX. Ignored unless idle.
func (c *Claw) MoveLeft() {
	if c.state != ClawIdle {
		return
	}
	c.x = max(c.tuning.ClawMinX, c.x-c.tuning.ClawSpeed)
	c.world.SetPosition(c.body, physics.Vec{X: c.x, Y: c.y})
}

// MoveRight steps the claw right, clamped at ClawMaxX. Ignored unless idle.
func (c *Claw) MoveRight() {
	if c.state != ClawIdle {
		return
	}
	c.x = min(c.tuning.ClawMaxX, c.x+c.tuning.ClawSpeed)
	c.world.SetPosition(c.body, physics.Vec{X: c.x, Y: c.y})
}

// Drop starts a descent. It reports false, changing nothing, unless idle.
// Paying for the drop is the caller's concern.
func (c *Claw) Drop() bool {
	if c.state != ClawIdle {
		return false
	}
	c.enter(ClawDescending)
	return true
}

// Tick advances the claw by one step and rebuilds its collision shape. When
// an ascent finishes with a ball in the claw, the ball is removed from balls
// and the world and returned.
func (c *Claw) Tick(balls *BallSet) *Ball {
	var collected *Ball

	switch c.state {
	case ClawDescending:
		c.y += c.tuning.ClawSpeed
		c.advanceFrame(c.frames.ClosingCount())
		if c.y >= c.tuning.ClawTargetY {
			c.grabbed = findGrab(c.world, physics.Vec{X: c.x, Y: c.y}, balls.All(),
				c.tuning.GrabRadius, c.tuning.GrabChance, c.rng)
			c.enter(ClawAscending)
		}

	case ClawAscending:
		c.y -= c.tuning.ClawSpeed
		c.carry()
		c.advanceFrame(c.frames.OpeningCount())
		if c.y <= c.tuning.ClawOriginY {
			c.enter(ClawIdle)
			if c.grabbed != nil {
				collected = c.grabbed
				c.grabbed = nil
				balls.Remove(collected)
				collected.Remove(c.world)
			}
		}
	}

	c.world.SetPosition(c.body, physics.Vec{X: c.x, Y: c.y})
	c.rebuildShape()
	return collected
}

// Destroy deregisters the claw. A carried ball is released to the world.
func (c *Claw) Destroy() {
	c.grabbed = nil
	c.world.Remove(c.body)
	c.body = physics.NoBody
}

// carry pins the held ball below the claw and cancels its momentum so the
// solver does not fling it on the next step.
func (c *Claw) carry() {
	if c.grabbed == nil {
		return
	}
	pos := physics.Vec{X: c.x, Y: c.y}.Add(c.tuning.HoldOffset)
	c.world.SetPosition(c.grabbed.body, pos)
	c.world.SetVelocity(c.grabbed.body, physics.Vec{})
}

// advanceFrame moves one frame forward every ClawFrameDelay ticks and holds
// on the last frame.
func (c *Claw) advanceFrame(count int) {
	c.frameCounter++
	if c.frameCounter < c.tuning.ClawFrameDelay {
		return
	}
	c.frameCounter = 0
	if c.frame < count-1 {
		c.frame++
	}
}

// enter switches state and rewinds the animation.
func (c *Claw) enter(s ClawState) {
	c.state = s
	c.frame = 0
	c.frameCounter = 0
}

func (c *Claw) rebuildShape() {
	var poly geometry.Polygon
	if c.state == ClawAscending {
		poly = c.frames.Opening(c.frame)
	} else {
		poly = c.frames.Closing(c.frame)
	}
	c.world.ReplacePolygon(c.body, poly, c.tuning.ClawMaterial)
}
