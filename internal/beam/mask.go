package beam

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// cornerFraction sizes each background patch relative to the grid.
	cornerFraction = 0.05
	// noiseFactor multiplies the background level to get the signal threshold.
	noiseFactor = 2.0
	// noisePercentile caps the threshold for peaked, low-background frames.
	noisePercentile = 95.0
)

// illumination separates beam pixels from background.
type illumination struct {
	mask       []bool
	background float64
	threshold  float64
	clamped    bool
}

// illuminationMask estimates the background from the darkest of the four
// corner patches and marks pixels at or above noiseFactor times that level.
// A patch spans 5% of the width in rows and 5% of the height in columns.
func illuminationMask(g grid, logger *slog.Logger) illumination {
	ph := max(1, int(float64(g.cols)*cornerFraction))
	pw := max(1, int(float64(g.rows)*cornerFraction))

	corners := [4]float64{
		cornerMean(g, 0, 0, ph, pw),
		cornerMean(g, 0, g.cols-pw, ph, pw),
		cornerMean(g, g.rows-ph, 0, ph, pw),
		cornerMean(g, g.rows-ph, g.cols-pw, ph, pw),
	}
	background := corners[0]
	for _, m := range corners[1:] {
		background = math.Min(background, m)
	}

	ill := illumination{
		mask:       make([]bool, len(g.data)),
		background: background,
		threshold:  background * noiseFactor,
	}
	if p := percentile(g.data, noisePercentile); ill.threshold > p {
		ill.threshold = p
		ill.clamped = true
		logger.Debug("noise threshold clamped to percentile",
			"percentile", noisePercentile, "threshold", p, "eta", p/background)
	}

	for i, v := range g.data {
		ill.mask[i] = v >= ill.threshold
	}
	return ill
}

func cornerMean(g grid, top, left, h, w int) float64 {
	vals := make([]float64, 0, h*w)
	for y := top; y < top+h; y++ {
		vals = append(vals, g.data[y*g.cols+left:y*g.cols+left+w]...)
	}
	return stat.Mean(vals, nil)
}

// percentile returns the p-th percentile of data, interpolating linearly
// between the two nearest ranks.
func percentile(data []float64, p float64) float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
