package beam

import "fmt"

const (
	// roiHalfWidth is the region-of-interest half size in sigmas.
	roiHalfWidth = 3.0

	defaultISOMaxIterations = 50
	defaultISOTolerance     = 1e-9
)

type isoResult struct {
	estimate   Ellipse
	iterations int
	converged  bool
	background float64
	threshold  float64
}

// iterativeISO estimates the beam from background-subtracted moments,
// repeatedly narrowing an axis-aligned ±3σ box around the previous estimate
// until the estimate stops changing or the iteration cap is reached.
func iterativeISO(g grid, cfg *config) (isoResult, error) {
	ill := illuminationMask(g, cfg.logger)
	res := isoResult{background: ill.background, threshold: ill.threshold}

	w := make([]float64, len(g.data))
	for i, v := range g.data {
		if ill.mask[i] {
			w[i] = v - ill.background
		}
	}

	est, err := moments(g.cols, w)
	if err != nil {
		return res, err
	}

	roi := make([]float64, len(w))
	for res.iterations < cfg.isoMaxIterations {
		res.iterations++
		clipToBox(g, est, w, roi)

		next, err := moments(g.cols, roi)
		if err != nil {
			return res, fmt.Errorf("region of interest around (%.1f, %.1f): %w", est.MeanX, est.MeanY, err)
		}
		if next.within(est, cfg.isoTolerance) {
			est = next
			res.converged = true
			break
		}
		est = next
	}

	if !res.converged {
		cfg.logger.Warn("iso estimate did not settle", "iterations", res.iterations)
	}
	res.estimate = est
	return res, nil
}

// clipToBox copies the weights strictly inside the ±3σ box of e into dst
// and zeroes the rest.
func clipToBox(g grid, e Ellipse, w, dst []float64) {
	x0, x1 := e.MeanX-roiHalfWidth*e.SigmaX, e.MeanX+roiHalfWidth*e.SigmaX
	y0, y1 := e.MeanY-roiHalfWidth*e.SigmaY, e.MeanY+roiHalfWidth*e.SigmaY
	for y := 0; y < g.rows; y++ {
		fy := float64(y)
		inRow := fy > y0 && fy < y1
		for x := 0; x < g.cols; x++ {
			i := y*g.cols + x
			fx := float64(x)
			if inRow && fx > x0 && fx < x1 {
				dst[i] = w[i]
			} else {
				dst[i] = 0
			}
		}
	}
}
