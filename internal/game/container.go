package game

import (
	"math"

	"github.com/playmatatu/clawmachine/internal/physics"
)

// Container is the static box the balls live in.
type Container struct {
	TopLeft     physics.Vec
	BottomRight physics.Vec
}

// BuildContainer adds the four container walls to the world. The walls are
// never removed.
func BuildContainer(w *physics.World, t Tuning) Container {
	halfW := math.Floor(t.ContainerWidth / 2)
	halfH := math.Floor(t.ContainerHeight / 2)
	c := t.ContainerCentre

	topLeft := physics.Vec{X: c.X - halfW, Y: c.Y - halfH}
	topRight := physics.Vec{X: c.X + halfW, Y: c.Y - halfH}
	bottomLeft := physics.Vec{X: c.X - halfW, Y: c.Y + halfH}
	bottomRight := physics.Vec{X: c.X + halfW, Y: c.Y + halfH}

	for _, wall := range [][2]physics.Vec{
		{topLeft, topRight},
		{topRight, bottomRight},
		{bottomRight, bottomLeft},
		{bottomLeft, topLeft},
	} {
		w.AddStaticSegment(wall[0], wall[1], t.ContainerThickness, t.ContainerMaterial)
	}
	return Container{TopLeft: topLeft, BottomRight: bottomRight}
}
