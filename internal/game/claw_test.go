package game

import (
	"testing"

	"github.com/playmatatu/clawmachine/internal/geometry"
	"github.com/playmatatu/clawmachine/internal/physics"
)

// fixedRand returns the same draw every time.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(n int) int   { return r.n % n }

// seqRand replays draws in order, repeating the last one.
type seqRand struct {
	fs []float64
	i  int
}

func (r *seqRand) Float64() float64 {
	f := r.fs[min(r.i, len(r.fs)-1)]
	r.i++
	return f
}

func (r *seqRand) IntN(n int) int { return 0 }

// tinyFrames is a three-frame table of small triangles so the claw barely
// touches anything it passes.
func tinyFrames(t *testing.T) *geometry.FrameTable {
	t.Helper()
	tri := func(s float64) geometry.Polygon {
		return geometry.Polygon{{X: -s, Y: -s}, {X: s, Y: -s}, {X: 0, Y: s}}
	}
	ft, err := geometry.NewFrameTable([]geometry.Polygon{tri(3), tri(2), tri(1)})
	if err != nil {
		t.Fatalf("NewFrameTable: %v", err)
	}
	return ft
}

func setupClaw(t *testing.T, rng Rand) (*physics.World, *Claw) {
	t.Helper()
	tuning := DefaultTuning()
	w := physics.NewWorld(physics.Vec{})
	return w, NewClaw(w, tinyFrames(t), tuning, rng)
}

// placeBall registers a resting ball at pos without going through the spawn band.
func placeBall(w *physics.World, set *BallSet, id int, pos physics.Vec) *Ball {
	tuning := DefaultTuning()
	body := w.AddDynamicBody(tuning.BallMass, physics.MomentForCircle(tuning.BallMass, tuning.BallRadius), pos)
	w.AddCircle(body, tuning.BallRadius, tuning.BallMaterial)
	b := &Ball{ID: id, body: body}
	set.Add(b)
	return b
}

func TestNewClawStartsIdleAtCentre(t *testing.T) {
	w, c := setupClaw(t, fixedRand{})

	if c.State() != ClawIdle {
		t.Errorf("state = %s, want IDLE", c.State())
	}
	if c.X() != 350 || c.Y() != 210 {
		t.Errorf("position = (%v, %v), want (350, 210)", c.X(), c.Y())
	}
	if n := w.ShapeCount(c.Body()); n != 1 {
		t.Errorf("claw has %d shapes, want 1", n)
	}
}

func TestDescendingIncrementsThenTurnsOnce(t *testing.T) {
	_, c := setupClaw(t, fixedRand{f: 0})
	var balls BallSet
	tuning := DefaultTuning()

	if !c.Drop() {
		t.Fatalf("drop from idle was rejected")
	}
	if c.State() != ClawDescending || c.Frame() != 0 {
		t.Fatalf("after drop: state=%s frame=%d", c.State(), c.Frame())
	}

	transitions := 0
	prevY := c.Y()
	for i := 0; i < 200 && c.State() == ClawDescending; i++ {
		c.Tick(&balls)
		if c.State() == ClawDescending {
			if c.Y() != prevY+tuning.ClawSpeed {
				t.Fatalf("tick %d: y went %v -> %v", i, prevY, c.Y())
			}
			if c.Y() >= tuning.ClawTargetY {
				t.Fatalf("still descending at y=%v", c.Y())
			}
		} else {
			transitions++
		}
		prevY = c.Y()
	}

	if transitions != 1 || c.State() != ClawAscending {
		t.Fatalf("expected one transition to ASCENDING, got %d (state %s)", transitions, c.State())
	}
	if c.Y() != tuning.ClawTargetY {
		t.Errorf("turned at y=%v, want %v", c.Y(), tuning.ClawTargetY)
	}
}

func TestFullCycleReturnsToIdle(t *testing.T) {
	_, c := setupClaw(t, fixedRand{})
	var balls BallSet
	tuning := DefaultTuning()

	c.Drop()
	ticks := 0
	for c.State() != ClawIdle {
		c.Tick(&balls)
		ticks++
		if c.Y() < tuning.ClawOriginY || c.Y() > tuning.ClawTargetY {
			t.Fatalf("tick %d: y=%v left [%v, %v]", ticks, c.Y(), tuning.ClawOriginY, tuning.ClawTargetY)
		}
		if ticks > 1000 {
			t.Fatalf("claw never returned to idle")
		}
	}

	steps := int((tuning.ClawTargetY - tuning.ClawOriginY) / tuning.ClawSpeed)
	if ticks != 2*steps {
		t.Errorf("cycle took %d ticks, want %d", ticks, 2*steps)
	}
	if c.Y() != tuning.ClawOriginY || c.Frame() != 0 {
		t.Errorf("after cycle: y=%v frame=%d", c.Y(), c.Frame())
	}
}

func TestMovesIgnoredUnlessIdle(t *testing.T) {
	_, c := setupClaw(t, fixedRand{})
	var balls BallSet

	c.Drop()
	for c.State() != ClawIdle {
		x, y := c.X(), c.Y()
		c.MoveLeft()
		c.MoveRight()
		if c.X() != x || c.Y() != y {
			t.Fatalf("%s: move changed position (%v, %v) -> (%v, %v)", c.State(), x, y, c.X(), c.Y())
		}
		if c.Drop() {
			t.Fatalf("%s: drop accepted while busy", c.State())
		}
		c.Tick(&balls)
	}
}

func TestMovesClampToTravelBounds(t *testing.T) {
	_, c := setupClaw(t, fixedRand{})
	tuning := DefaultTuning()

	for i := 0; i < 500; i++ {
		c.MoveLeft()
	}
	if c.X() != tuning.ClawMinX {
		t.Errorf("x = %v, want min %v", c.X(), tuning.ClawMinX)
	}
	for i := 0; i < 500; i++ {
		c.MoveRight()
	}
	if c.X() != tuning.ClawMaxX {
		t.Errorf("x = %v, want max %v", c.X(), tuning.ClawMaxX)
	}
}

func TestFrameStaysInRangeAndAdvancesOnDelay(t *testing.T) {
	w, c := setupClaw(t, fixedRand{})
	var balls BallSet
	tuning := DefaultTuning()

	c.Drop()
	for i := 1; c.State() != ClawIdle; i++ {
		c.Tick(&balls)
		if c.Frame() < 0 || c.Frame() >= c.FrameCount() {
			t.Fatalf("tick %d: frame %d outside [0, %d)", i, c.Frame(), c.FrameCount())
		}
		if n := w.ShapeCount(c.Body()); n != 1 {
			t.Fatalf("tick %d: claw has %d shapes", i, n)
		}
		if c.State() == ClawDescending && i == tuning.ClawFrameDelay && c.Frame() != 1 {
			t.Errorf("frame %d after %d ticks, want 1", c.Frame(), i)
		}
		if c.State() == ClawDescending && i == 3*tuning.ClawFrameDelay && c.Frame() != 2 {
			t.Errorf("frame %d after %d ticks, want capped at 2", c.Frame(), i)
		}
	}
}

func TestShapeFollowsFrameTable(t *testing.T) {
	w, c := setupClaw(t, fixedRand{})
	var balls BallSet
	frames := tinyFrames(t)

	if got := w.PolygonVerts(c.Body()); !sameVerts(got, frames.Closing(0)) {
		t.Errorf("idle shape %v, want closing frame 0 %v", got, frames.Closing(0))
	}

	c.Drop()
	for c.State() == ClawDescending {
		c.Tick(&balls)
	}
	if got := w.PolygonVerts(c.Body()); !sameVerts(got, frames.Opening(0)) {
		t.Errorf("first ascending shape %v, want opening frame 0 %v", got, frames.Opening(0))
	}
}

// sameVerts compares vertex sets ignoring order.
func sameVerts(got []physics.Vec, want geometry.Polygon) bool {
	if len(got) != len(want) {
		return false
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g.Sub(w).Length() < 1e-9 {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestHeldBallTracksClawWhileAscending(t *testing.T) {
	w, c := setupClaw(t, fixedRand{f: 0})
	var balls BallSet
	tuning := DefaultTuning()
	ball := placeBall(w, &balls, 1, physics.Vec{X: 350, Y: 480})

	c.Drop()
	for c.State() == ClawDescending {
		c.Tick(&balls)
	}
	if c.Grabbed() != ball {
		t.Fatalf("ball within radius was not grabbed")
	}

	for c.State() == ClawAscending {
		collected := c.Tick(&balls)
		if collected != nil {
			break
		}
		want := physics.Vec{X: c.X(), Y: c.Y()}.Add(tuning.HoldOffset)
		if got := ball.Position(w); got != want {
			t.Fatalf("held ball at %v, want %v", got, want)
		}
		if v := w.Velocity(ball.Body()); v != (physics.Vec{}) {
			t.Fatalf("held ball has velocity %v", v)
		}
	}

	if c.State() != ClawIdle || c.Grabbed() != nil {
		t.Fatalf("after ascent: state=%s grabbed=%v", c.State(), c.Grabbed())
	}
	if balls.Contains(ball) || w.Contains(ball.Body()) {
		t.Errorf("collected ball still registered")
	}
}

func TestGrabChanceAndRadius(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		chance float64
		draw   float64
		pos    physics.Vec
		want   bool
	}{
		{"certain grab within radius", 40, 1, 0.999, physics.Vec{X: 350, Y: 480}, true},
		{"on the radius edge", 40, 1, 0.5, physics.Vec{X: 390, Y: 450}, true},
		{"outside radius", 40, 1, 0, physics.Vec{X: 350, Y: 495}, false},
		{"zero radius never grabs", 0, 1, 0, physics.Vec{X: 351, Y: 450}, false},
		{"zero chance never grabs", 40, 0, 0, physics.Vec{X: 350, Y: 480}, false},
		{"failed trial", 40, 0.5, 0.5, physics.Vec{X: 350, Y: 480}, false},
		{"passed trial", 40, 0.5, 0.49, physics.Vec{X: 350, Y: 480}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := physics.NewWorld(physics.Vec{})
			var balls BallSet
			b := placeBall(w, &balls, 1, tt.pos)

			got := findGrab(w, physics.Vec{X: 350, Y: 450}, balls.All(), tt.radius, tt.chance, fixedRand{f: tt.draw})
			if (got == b) != tt.want {
				t.Errorf("grabbed=%v, want %v", got != nil, tt.want)
			}
		})
	}
}

// The scan takes the first ball in collection order that passes, not the
// nearest one.
func TestGrabIsFirstMatchNotNearest(t *testing.T) {
	w := physics.NewWorld(physics.Vec{})
	var balls BallSet
	far := placeBall(w, &balls, 1, physics.Vec{X: 385, Y: 450})
	near := placeBall(w, &balls, 2, physics.Vec{X: 350, Y: 455})

	got := findGrab(w, physics.Vec{X: 350, Y: 450}, balls.All(), 40, 1, fixedRand{})
	if got != far {
		t.Errorf("grabbed ball %v, want first in-radius ball %d", got, far.ID)
	}

	// a failed trial on the first ball moves the scan on
	got = findGrab(w, physics.Vec{X: 350, Y: 450}, balls.All(), 40, 0.5, &seqRand{fs: []float64{0.9, 0.1}})
	if got != near {
		t.Errorf("grabbed ball %v, want %d after the first trial failed", got, near.ID)
	}
}

func TestDestroyDeregistersClaw(t *testing.T) {
	w, c := setupClaw(t, fixedRand{})
	body := c.Body()
	c.Destroy()
	if w.Contains(body) {
		t.Errorf("claw body still registered after Destroy")
	}
}
