package game

import (
	"fmt"

	"github.com/playmatatu/clawmachine/internal/physics"
)

// Rand is the random source the machine draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Ball is a prize ball: a dynamic circle in the world.
type Ball struct {
	ID   int
	body physics.BodyID
}

// SpawnBall drops a new ball into the world at the spawn height, with x
// drawn from the inclusive spawn band.
func SpawnBall(w *physics.World, t Tuning, rng Rand, id int) *Ball {
	x := t.BallSpawnMinX + rng.IntN(t.BallSpawnMaxX-t.BallSpawnMinX+1)
	pos := physics.Vec{X: float64(x), Y: t.BallSpawnY}

	body := w.AddDynamicBody(t.BallMass, physics.MomentForCircle(t.BallMass, t.BallRadius), pos)
	w.AddCircle(body, t.BallRadius, t.BallMaterial)
	return &Ball{ID: id, body: body}
}

func (b *Ball) Body() physics.BodyID { return b.body }

func (b *Ball) Position(w *physics.World) physics.Vec { return w.Position(b.body) }

func (b *Ball) Angle(w *physics.World) float64 { return w.Angle(b.body) }

// Shuffle kicks the ball with an impulse whose components are uniform in
// [-intensity, intensity].
func (b *Ball) Shuffle(w *physics.World, rng Rand, intensity float64) {
	impulse := physics.Vec{
		X: (rng.Float64()*2 - 1) * intensity,
		Y: (rng.Float64()*2 - 1) * intensity,
	}
	w.ApplyImpulse(b.body, impulse, physics.Vec{})
}

// Remove deregisters the ball's body and shape.
func (b *Ball) Remove(w *physics.World) {
	w.Remove(b.body)
}

// BallSet is the ordered collection of active balls. Every ball in the set
// is registered in the world.
type BallSet struct {
	balls []*Ball
}

func (s *BallSet) Add(b *Ball) {
	s.balls = append(s.balls, b)
}

// Remove drops b from the set, keeping the order of the rest. Removing a
// ball that is not in the set panics.
func (s *BallSet) Remove(b *Ball) {
	for i, cur := range s.balls {
		if cur == b {
			s.balls = append(s.balls[:i], s.balls[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("game: ball %d is not active", b.ID))
}

func (s *BallSet) Contains(b *Ball) bool {
	for _, cur := range s.balls {
		if cur == b {
			return true
		}
	}
	return false
}

func (s *BallSet) Len() int { return len(s.balls) }

// All returns the balls in insertion order. The slice must not be modified.
func (s *BallSet) All() []*Ball { return s.balls }
