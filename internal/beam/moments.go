package beam

import "math"

// degenerateEps is the relative size below which the denominator of an
// orientation angle is treated as zero.
const degenerateEps = 1e-12

// moments computes the intensity-weighted centroid and second moments of w,
// laid out row-major with the given number of columns.
func moments(cols int, w []float64) (Ellipse, error) {
	rows := len(w) / cols

	var sum, sumX, sumY float64
	for y := 0; y < rows; y++ {
		fy := float64(y)
		for x, v := range w[y*cols : (y+1)*cols] {
			sum += v
			sumX += v * float64(x)
			sumY += v * fy
		}
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return Ellipse{}, invalidf("total intensity %g is not positive", sum)
	}
	meanX := sumX / sum
	meanY := sumY / sum

	var vxx, vyy, vxy float64
	for y := 0; y < rows; y++ {
		dy := float64(y) - meanY
		for x, v := range w[y*cols : (y+1)*cols] {
			if v == 0 {
				continue
			}
			dx := float64(x) - meanX
			vxx += v * dx * dx
			vyy += v * dy * dy
			vxy += v * dx * dy
		}
	}
	vxx /= sum
	vyy /= sum
	vxy /= sum
	if vxx < 0 || vyy < 0 {
		return Ellipse{}, invalidf("negative variance (%g, %g) from negative intensities", vxx, vyy)
	}

	e := Ellipse{
		MeanX:   meanX,
		MeanY:   meanY,
		SigmaX:  math.Sqrt(vxx),
		SigmaY:  math.Sqrt(vyy),
		SigmaXY: vxy,
		Phi:     halfAtan(2*vxy, vxx-vyy, vxx+vyy),
	}
	e.SigmaP, e.SigmaS = principalSigmas(vxx, vyy, vxy)
	return e, nil
}

// principalSigmas converts second moments to widths along and across the
// axis returned by halfAtan. The second-moment beam diameters are
// 2√2·sqrt(vxx+vyy ± γ·sqrt((vxx−vyy)²+4vxy²)); a sigma is a quarter of a
// diameter.
func principalSigmas(vxx, vyy, vxy float64) (sigmaP, sigmaS float64) {
	sum := vxx + vyy
	diff := vxx - vyy
	gamma := branch(diff, sum)
	root := math.Sqrt(diff*diff + 4*vxy*vxy)

	dp := 2 * math.Sqrt2 * math.Sqrt(math.Max(0, sum+gamma*root))
	ds := 2 * math.Sqrt2 * math.Sqrt(math.Max(0, sum-gamma*root))
	return dp / 4, ds / 4
}

// halfAtan returns 0.5·atan(num/den). A denominator that vanishes relative
// to scale takes atan's limit: ±π/4 following the sign of num, or 0 when
// num is zero as well.
func halfAtan(num, den, scale float64) float64 {
	if math.Abs(den) <= degenerateEps*math.Abs(scale) {
		switch {
		case num > 0:
			return math.Pi / 4
		case num < 0:
			return -math.Pi / 4
		default:
			return 0
		}
	}
	return 0.5 * math.Atan(num/den)
}

// branch is the sign of den with a vanishing den counted as positive, which
// keeps the principal width on the axis chosen by halfAtan.
func branch(den, scale float64) float64 {
	if den < 0 && math.Abs(den) > degenerateEps*math.Abs(scale) {
		return -1
	}
	return 1
}
