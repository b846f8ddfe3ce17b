package game

import "github.com/playmatatu/clawmachine/internal/physics"

// findGrab scans balls in collection order and returns the first one within
// radius of at whose trial succeeds, or nil. The first qualifying ball wins
// even when a nearer one follows it.
func findGrab(w *physics.World, at physics.Vec, balls []*Ball, radius, chance float64, rng Rand) *Ball {
	for _, b := range balls {
		if at.Sub(b.Position(w)).Length() > radius {
			continue
		}
		if rng.Float64() < chance {
			return b
		}
	}
	return nil
}
