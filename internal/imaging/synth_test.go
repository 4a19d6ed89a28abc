package imaging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
)

func TestToGray16(t *testing.T) {
	m := mat.NewDense(1, 4, []float64{-5, 0.4, 1234.6, 70000})
	img, clipped := ToGray16(m)

	assert.Equal(t, 2, clipped)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(0), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(1235), img.Gray16At(2, 0).Y)
	assert.Equal(t, uint16(65535), img.Gray16At(3, 0).Y)
}

func TestSynthesizeFrame_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beam.png")
	truth := beam.GaussianParams{Amplitude: 30000, CenterX: 45, CenterY: 28, SigmaP: 9, SigmaS: 5, Phi: 0.3, Offset: 1000}

	res, err := SynthesizeFrame(path, 60, 80, truth)
	require.NoError(t, err)
	assert.Equal(t, 80, res.Width)
	assert.Equal(t, 60, res.Height)
	assert.Equal(t, 16, res.BitDepth)
	assert.Zero(t, res.Clipped)
	assert.InDelta(t, 31000, res.Max, 1000)

	frame, err := NewFrameCache().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, frame.BitDepth)
	assert.Equal(t, 80, frame.Width())
	assert.Equal(t, 60, frame.Height())

	p, err := beam.Fit(frame.Pixels, beam.MethodISO)
	require.NoError(t, err)
	assert.InDelta(t, truth.CenterX, p.MeanX, 0.1)
	assert.InDelta(t, truth.CenterY, p.MeanY, 0.1)
}

func TestSynthesizeFrame_Clipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hot.png")
	res, err := SynthesizeFrame(path, 20, 20, beam.GaussianParams{Amplitude: 100000, CenterX: 10, CenterY: 10, SigmaP: 2, SigmaS: 2})
	require.NoError(t, err)
	assert.Positive(t, res.Clipped)
}

func TestSynthesizeFrame_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := SynthesizeFrame(filepath.Join(dir, "a.png"), 0, 10, beam.GaussianParams{SigmaP: 1, SigmaS: 1})
	assert.ErrorIs(t, err, beam.ErrInvalidInput)

	_, err = SynthesizeFrame(filepath.Join(dir, "b.png"), 10, 10, beam.GaussianParams{SigmaP: 0, SigmaS: 1})
	assert.ErrorIs(t, err, beam.ErrInvalidInput)

	_, err = SynthesizeFrame(filepath.Join(dir, "missing", "c.png"), 10, 10, beam.GaussianParams{SigmaP: 1, SigmaS: 1})
	assert.Error(t, err)
}
