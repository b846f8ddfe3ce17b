package geometry

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// DefaultFrameFiles are the claw animation frames, from fully open to closed.
var DefaultFrameFiles = []string{"claw1.png", "claw2.png", "claw3.png"}

// FrameTable holds the claw collision geometry for both animation directions,
// indexed by frame. Closing plays while descending, Opening while ascending.
type FrameTable struct {
	closing []Polygon
	opening []Polygon
}

// NewFrameTable builds a table from the closing sequence; the opening
// sequence is the same frames in reverse.
func NewFrameTable(closing []Polygon) (*FrameTable, error) {
	if len(closing) == 0 {
		return nil, errors.New("geometry: frame table needs at least one frame")
	}
	c := make([]Polygon, len(closing))
	copy(c, closing)
	o := make([]Polygon, len(closing))
	for i := range closing {
		o[i] = closing[len(closing)-1-i]
	}
	return &FrameTable{closing: c, opening: o}, nil
}

// Closing returns frame i of the closing (descending) sequence.
func (t *FrameTable) Closing(i int) Polygon { return t.closing[i] }

// Opening returns frame i of the opening (ascending) sequence.
func (t *FrameTable) Opening(i int) Polygon { return t.opening[i] }

// ClosingCount returns the number of closing frames.
func (t *FrameTable) ClosingCount() int { return len(t.closing) }

// OpeningCount returns the number of opening frames.
func (t *FrameTable) OpeningCount() int { return len(t.opening) }

// LoadFrameTable decodes each PNG in files (relative to dir) and derives its
// collision hull. Any missing or unreadable frame is an error.
func LoadFrameTable(dir string, files []string, scale float64) (*FrameTable, error) {
	polys := make([]Polygon, 0, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		img, err := decodePNG(path)
		if err != nil {
			return nil, err
		}
		poly, err := HullFromImage(img, scale)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", path, err)
		}
		polys = append(polys, poly)
	}
	return NewFrameTable(polys)
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}
