package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
)

// SynthResult describes a synthesized frame written to disk.
type SynthResult struct {
	Path     string  `json:"path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	BitDepth int     `json:"bit_depth"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Clipped  int     `json:"clipped_pixels"`
}

// ToGray16 rounds m into a 16-bit grayscale image. Samples outside
// [0, 65535] are clipped and counted.
func ToGray16(m mat.Matrix) (*image.Gray16, int) {
	rows, cols := m.Dims()
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	clipped := 0
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := math.Round(m.At(y, x))
			switch {
			case v < 0:
				v = 0
				clipped++
			case v > math.MaxUint16:
				v = math.MaxUint16
				clipped++
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	return img, clipped
}

// SynthesizeFrame renders the Gaussian model p on a rows×cols grid and saves
// it as a 16-bit grayscale PNG.
func SynthesizeFrame(path string, rows, cols int, p beam.GaussianParams) (*SynthResult, error) {
	m, err := beam.GaussianGrid(rows, cols, p)
	if err != nil {
		return nil, err
	}

	img, clipped := ToGray16(m)
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return nil, fmt.Errorf("failed to save synthesized frame: %w", err)
	}

	return &SynthResult{
		Path:     path,
		Width:    cols,
		Height:   rows,
		BitDepth: 16,
		Min:      mat.Min(m),
		Max:      mat.Max(m),
		Clipped:  clipped,
	}, nil
}
