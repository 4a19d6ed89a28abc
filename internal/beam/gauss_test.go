package beam

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGaussianGrid(t *testing.T) {
	m, err := GaussianGrid(21, 31, GaussianParams{
		Amplitude: 100, CenterX: 15, CenterY: 10, SigmaP: 3, SigmaS: 3, Offset: 0,
	})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 21, r)
	assert.Equal(t, 31, c)
	assert.InDelta(t, 100, m.At(10, 15), 1e-12)
	assert.InDelta(t, 100*math.Exp(-0.5), m.At(10, 18), 1e-9)
	assert.InDelta(t, m.At(10, 12), m.At(10, 18), 1e-12)
	assert.Equal(t, m.At(10, 18), GaussianParams{
		Amplitude: 100, CenterX: 15, CenterY: 10, SigmaP: 3, SigmaS: 3,
	}.At(18, 10))
}

func TestGaussianGrid_ClipsToAmplitude(t *testing.T) {
	m, err := GaussianGrid(11, 11, GaussianParams{
		Amplitude: 100, CenterX: 5, CenterY: 5, SigmaP: 2, SigmaS: 1, Phi: 0.3, Offset: 10,
	})
	require.NoError(t, err)

	// Peak plus offset exceeds the amplitude and is clipped to it.
	assert.Equal(t, 100.0, m.At(5, 5))
	assert.InDelta(t, 10, m.At(0, 10), 1e-6)
	assert.Equal(t, 100.0, mat.Max(m))
}

func TestGaussianGrid_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		p          GaussianParams
	}{
		{"zero rows", 0, 5, GaussianParams{SigmaP: 1, SigmaS: 1}},
		{"negative cols", 5, -1, GaussianParams{SigmaP: 1, SigmaS: 1}},
		{"zero sigma", 5, 5, GaussianParams{SigmaP: 1}},
		{"nan sigma", 5, 5, GaussianParams{SigmaP: math.NaN(), SigmaS: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GaussianGrid(tt.rows, tt.cols, tt.p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestEllipseFromGauss_RoundTrip(t *testing.T) {
	tests := []struct {
		name           string
		sigmaP, sigmaS float64
		phi            float64
	}{
		{"tilted", 5, 2, 0.3},
		{"negative tilt", 8, 3, -0.6},
		{"diagonal", 6, 2, math.Pi / 4},
		{"axis aligned", 4, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b, c := gaussABC(tt.sigmaP, tt.sigmaS, tt.phi)
			e, err := ellipseFromGauss([]float64{1, 10, 20, a, b, c, 0})
			require.NoError(t, err)

			e = e.Normalize()
			assert.InDelta(t, 10, e.MeanX, 1e-12)
			assert.InDelta(t, 20, e.MeanY, 1e-12)
			assert.InDelta(t, tt.sigmaP, e.SigmaP, 1e-9)
			assert.InDelta(t, tt.sigmaS, e.SigmaS, 1e-9)
			assert.InDelta(t, 0, angleDiff(e.Phi, tt.phi), 1e-9)
			assert.InDelta(t, math.Sqrt(1/(2*a)), e.SigmaX, 1e-12)
			assert.InDelta(t, math.Sqrt(1/(2*c)), e.SigmaY, 1e-12)
		})
	}
}

func TestEllipseFromGauss_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c float64
	}{
		{"negative a", -1, 0, 1},
		{"zero c", 1, 0, 0},
		{"singular", 1, 1, 1},
		{"indefinite", 1, 2, 1},
		{"nan", math.NaN(), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ellipseFromGauss([]float64{1, 0, 0, tt.a, tt.b, tt.c, 0})
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestGaussProblem_Scaling(t *testing.T) {
	g := grid{rows: 2, cols: 2, data: []float64{1, 2, 3, 4}}
	init := []float64{100, 5, -3, 0.02, 0, 0.01, 0}

	gp := newGaussProblem(g, init)
	assert.InDelta(t, 0.1*math.Sqrt(0.02*0.01), gp.scale[parB], 1e-15)
	assert.InDelta(t, 0.5, gp.scale[parOffset], 1e-15)

	z := gp.initial(init)
	assert.InDeltaSlice(t, init, gp.params(z), 1e-12)
	assert.InDelta(t, gp.residual(init), gp.objective(z), 1e-9)
}

func TestGaussProblem_RSquared(t *testing.T) {
	g := grid{rows: 1, cols: 4, data: []float64{1, 2, 3, 4}}
	gp := newGaussProblem(g, []float64{1, 1, 1, 1, 1, 1, 1})

	assert.Equal(t, 1.0, gp.rSquared(0))
	assert.InDelta(t, 0, gp.rSquared(5), 1e-12)

	flat := newGaussProblem(grid{rows: 1, cols: 2, data: []float64{3, 3}}, []float64{1, 1, 1, 1, 1, 1, 1})
	assert.Equal(t, 0.0, flat.rSquared(0))

	// Total sum of squares about the mean 3 is 68.
	skewed := newGaussProblem(grid{rows: 2, cols: 2, data: []float64{0, 0, 10, 2}}, []float64{1, 1, 1, 1, 1, 1, 1})
	assert.InDelta(t, 0.75, skewed.rSquared(17), 1e-12)
	assert.InDelta(t, -1, skewed.rSquared(136), 1e-12)
}
