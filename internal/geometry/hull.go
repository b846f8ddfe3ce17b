package geometry

import (
	"errors"
	"image"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/playmatatu/clawmachine/internal/physics"
)

// Polygon is a convex outline in shape-local coordinates.
type Polygon []physics.Vec

var (
	ErrEmptySilhouette = errors.New("geometry: image has no opaque pixels")
	ErrDegenerateHull  = errors.New("geometry: silhouette hull has fewer than 3 vertices")
)

// HullFromImage computes the convex hull of every pixel with non-zero alpha,
// centres it on the hull's bounding-box midpoint and scales it.
func HullFromImage(img image.Image, scale float64) (Polygon, error) {
	b := img.Bounds()
	points := make([]cp.Vector, 0, b.Dx()*b.Dy()/4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				points = append(points, cp.Vector{X: float64(x - b.Min.X), Y: float64(y - b.Min.Y)})
			}
		}
	}
	if len(points) == 0 {
		return nil, ErrEmptySilhouette
	}
	return hull(points, scale)
}

func hull(points []cp.Vector, scale float64) (Polygon, error) {
	n := cp.ConvexHull(len(points), points, nil, 0)
	if n < 3 {
		return nil, ErrDegenerateHull
	}
	verts := points[:n]

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range verts {
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
		maxY = math.Max(maxY, v.Y)
	}
	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2

	poly := make(Polygon, n)
	for i, v := range verts {
		poly[i] = physics.Vec{X: (v.X - cx) * scale, Y: (v.Y - cy) * scale}
	}
	return poly, nil
}

// Bounds returns the min and max corners of the polygon.
func (p Polygon) Bounds() (min, max physics.Vec) {
	if len(p) == 0 {
		return
	}
	min, max = p[0], p[0]
	for _, v := range p[1:] {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
	}
	return
}
