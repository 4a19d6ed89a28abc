package imaging

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Region is a rectangle in frame pixels. (X1,Y1) is inclusive and (X2,Y2)
// is exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Crop returns a view of the region of m. The view shares storage with m.
func Crop(m *mat.Dense, r Region) (*mat.Dense, error) {
	rows, cols := m.Dims()

	if r.X1 < 0 || r.Y1 < 0 || r.X2 > cols || r.Y2 > rows {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside frame bounds (0,0)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, cols, rows)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	return m.Slice(r.Y1, r.Y2, r.X1, r.X2).(*mat.Dense), nil
}

// QuadrantRegion returns a named region of a width×height frame.
func QuadrantRegion(width, height int, name string) (Region, error) {
	midX := width / 2
	midY := height / 2

	var x1, y1, x2, y2 int

	switch name {
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, width, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, height
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, width, height
	case "top-half":
		x1, y1, x2, y2 = 0, 0, width, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, width, height
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, height
	case "right-half":
		x1, y1, x2, y2 = midX, 0, width, height
	case "center":
		// Center 50% of the frame
		qW := width / 4
		qH := height / 4
		x1, y1, x2, y2 = qW, qH, width-qW, height-qH
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}

	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

// CenteredRegion returns the square of half-size halfWidth around (cx, cy),
// clipped to the frame.
func CenteredRegion(width, height int, cx, cy, halfWidth float64) Region {
	r := Region{
		X1: int(cx - halfWidth),
		Y1: int(cy - halfWidth),
		X2: int(cx+halfWidth) + 1,
		Y2: int(cy+halfWidth) + 1,
	}
	r.X1 = max(r.X1, 0)
	r.Y1 = max(r.Y1, 0)
	r.X2 = min(r.X2, width)
	r.Y2 = min(r.Y2, height)
	return r
}
