package beam

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// grid is a dense row-major copy of the caller's matrix.
type grid struct {
	rows, cols int
	data       []float64
}

func newGrid(m mat.Matrix) (grid, error) {
	if m == nil {
		return grid{}, invalidf("nil grid")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return grid{}, invalidf("empty grid (%dx%d)", r, c)
	}

	g := grid{rows: r, cols: c, data: make([]float64, r*c)}
	if d, ok := m.(mat.RawMatrixer); ok {
		raw := d.RawMatrix()
		for y := 0; y < r; y++ {
			copy(g.data[y*c:(y+1)*c], raw.Data[y*raw.Stride:y*raw.Stride+c])
		}
	} else {
		for y := 0; y < r; y++ {
			for x := 0; x < c; x++ {
				g.data[y*c+x] = m.At(y, x)
			}
		}
	}

	for i, v := range g.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return grid{}, invalidf("non-finite sample %v at row %d, column %d", v, i/c, i%c)
		}
	}
	return g, nil
}

// decimate keeps every step-th row and column, starting at (0, 0).
func (g grid) decimate(step int) grid {
	if step == 1 {
		return g
	}
	r := (g.rows + step - 1) / step
	c := (g.cols + step - 1) / step
	out := grid{rows: r, cols: c, data: make([]float64, r*c)}
	for y := 0; y < r; y++ {
		src := g.data[y*step*g.cols:]
		dst := out.data[y*c : (y+1)*c]
		for x := range dst {
			dst[x] = src[x*step]
		}
	}
	return out
}

func (g grid) min() float64 { return floats.Min(g.data) }
func (g grid) max() float64 { return floats.Max(g.data) }

func (g grid) dense() *mat.Dense {
	data := make([]float64, len(g.data))
	copy(data, g.data)
	return mat.NewDense(g.rows, g.cols, data)
}

// Decimate returns a copy of m keeping every step-th row and column.
func Decimate(m mat.Matrix, step int) (*mat.Dense, error) {
	if step <= 0 {
		return nil, invalidf("decimation must be a positive integer, got %d", step)
	}
	g, err := newGrid(m)
	if err != nil {
		return nil, err
	}
	return g.decimate(step).dense(), nil
}
