package geometry

import (
	"image"
	"image/color"
	"math"
)

const (
	frameSize     = 90
	prongHalfWide = 4.0
)

// prong spreads per frame, open to closed
var prongSpreads = []float64{36, 22, 9}

// ProceduralFrames rasterises the built-in claw silhouettes, one image per
// closing frame. Used when no sprite directory is configured.
func ProceduralFrames() []image.Image {
	frames := make([]image.Image, len(prongSpreads))
	for i, spread := range prongSpreads {
		frames[i] = clawSilhouette(spread)
	}
	return frames
}

// ProceduralFrameTable derives the frame table from ProceduralFrames.
func ProceduralFrameTable(scale float64) (*FrameTable, error) {
	imgs := ProceduralFrames()
	polys := make([]Polygon, 0, len(imgs))
	for _, img := range imgs {
		poly, err := HullFromImage(img, scale)
		if err != nil {
			return nil, err
		}
		polys = append(polys, poly)
	}
	return NewFrameTable(polys)
}

type segment struct{ ax, ay, bx, by float64 }

func clawSilhouette(spread float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, frameSize, frameSize))
	mid := float64(frameSize) / 2

	prongs := []segment{
		{mid, 24, mid - spread, 62},
		{mid - spread, 62, mid - spread*0.4, 86},
		{mid, 24, mid + spread, 62},
		{mid + spread, 62, mid + spread*0.4, 86},
	}
	solid := color.NRGBA{R: 180, G: 180, B: 190, A: 255}

	for y := 0; y < frameSize; y++ {
		for x := 0; x < frameSize; x++ {
			fx, fy := float64(x), float64(y)
			inHub := fx >= mid-10 && fx <= mid+10 && fy <= 26
			if inHub {
				img.SetNRGBA(x, y, solid)
				continue
			}
			for _, s := range prongs {
				if distToSegment(fx, fy, s) <= prongHalfWide {
					img.SetNRGBA(x, y, solid)
					break
				}
			}
		}
	}
	return img
}

func distToSegment(px, py float64, s segment) float64 {
	dx, dy := s.bx-s.ax, s.by-s.ay
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((px-s.ax)*dx + (py-s.ay)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx, cy := s.ax+t*dx, s.ay+t*dy
	return math.Hypot(px-cx, py-cy)
}

// FramesFor loads DefaultFrameFiles from dir, or the procedural frames when
// dir is empty.
func FramesFor(dir string, scale float64) (*FrameTable, error) {
	if dir == "" {
		return ProceduralFrameTable(scale)
	}
	return LoadFrameTable(dir, DefaultFrameFiles, scale)
}
