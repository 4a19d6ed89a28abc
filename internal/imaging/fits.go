package imaging

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/mat"
)

// decodeFITS reads the primary HDU of a FITS file as a 2D intensity grid.
// NAXIS1 is the width. fitsio converts every BITPIX to float64 and samples
// are then scaled as BZERO + BSCALE·raw. The returned bit depth is |BITPIX|.
func decodeFITS(r io.Reader) (*mat.Dense, int, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open FITS: %w", err)
	}
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, 0, fmt.Errorf("FITS primary HDU is not an image")
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, 0, fmt.Errorf("FITS primary image has %d axes, expected 2", len(axes))
	}
	w, h := axes[0], axes[1]
	if w <= 0 || h <= 0 {
		return nil, 0, fmt.Errorf("FITS primary image is empty (%dx%d)", w, h)
	}

	data := make([]float64, w*h)
	if err := img.Read(&data); err != nil {
		return nil, 0, fmt.Errorf("failed to read FITS image data: %w", err)
	}
	if len(data) != w*h {
		return nil, 0, fmt.Errorf("FITS data has %d samples for %dx%d", len(data), w, h)
	}

	zero := cardFloat(hdr, "BZERO", 0)
	scale := cardFloat(hdr, "BSCALE", 1)
	if zero != 0 || scale != 1 {
		for i, v := range data {
			data[i] = zero + scale*v
		}
	}

	depth := hdr.Bitpix()
	if depth < 0 {
		depth = -depth
	}
	return mat.NewDense(h, w, data), depth, nil
}

func cardFloat(hdr *fitsio.Header, key string, fallback float64) float64 {
	card := hdr.Get(key)
	if card == nil {
		return fallback
	}
	switch v := card.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return fallback
	}
}
