package beam

import "math"

// Ellipse describes a beam as an oriented ellipse in grid pixel units.
//
// SigmaP and SigmaS are the standard deviations along the principal axis
// (rotated by Phi from +x) and the secondary axis. After Normalize,
// SigmaP >= SigmaS.
type Ellipse struct {
	MeanX   float64 `json:"mean_x"`   // centroid column
	MeanY   float64 `json:"mean_y"`   // centroid row
	SigmaX  float64 `json:"sigma_x"`  // width along the grid x axis
	SigmaY  float64 `json:"sigma_y"`  // width along the grid y axis
	SigmaXY float64 `json:"sigma_xy"` // x-y covariance, pixels²
	SigmaP  float64 `json:"sigma_p"`  // width along the principal axis
	SigmaS  float64 `json:"sigma_s"`  // width along the secondary axis
	Phi     float64 `json:"phi"`      // principal axis angle, radians
}

// Normalize returns the equivalent ellipse with SigmaP >= SigmaS. When the
// axes are swapped Phi is advanced by π/2.
func (e Ellipse) Normalize() Ellipse {
	if e.SigmaP < e.SigmaS {
		e.SigmaP, e.SigmaS = e.SigmaS, e.SigmaP
		e.Phi += math.Pi / 2
	}
	return e
}

// scaled expresses e in a grid whose pixels are factor times larger.
func (e Ellipse) scaled(factor float64) Ellipse {
	e.MeanX *= factor
	e.MeanY *= factor
	e.SigmaX *= factor
	e.SigmaY *= factor
	e.SigmaXY *= factor * factor
	e.SigmaP *= factor
	e.SigmaS *= factor
	return e
}

func (e Ellipse) fields() [8]float64 {
	return [8]float64{e.MeanX, e.MeanY, e.SigmaX, e.SigmaY, e.SigmaXY, e.SigmaP, e.SigmaS, e.Phi}
}

// within reports whether every field of e differs from o by at most
// tol relative to the larger magnitude.
func (e Ellipse) within(o Ellipse, tol float64) bool {
	a, b := e.fields(), o.fields()
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		if math.Abs(a[i]-b[i]) > tol*math.Max(math.Abs(a[i]), math.Abs(b[i])) {
			return false
		}
	}
	return true
}

func (e Ellipse) finite() bool {
	for _, v := range e.fields() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Profile is the result of Fit: the final ellipse in original-grid pixels
// plus the ellipticity and run diagnostics.
type Profile struct {
	Ellipse
	Ellipticity float64     `json:"ellipticity"`
	Method      Method      `json:"method"`
	Decimation  int         `json:"decimation"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Diagnostics records how the estimators terminated. Background and
// NoiseThreshold are intensities of the (decimated) input grid.
type Diagnostics struct {
	Background     float64 `json:"background"`
	NoiseThreshold float64 `json:"noise_threshold"`
	ISOIterations  int     `json:"iso_iterations"`
	ISOConverged   bool    `json:"iso_converged"`

	// Gauss is nil for MethodISO.
	Gauss *GaussDiagnostics `json:"gauss,omitempty"`
}

// GaussDiagnostics describes the Nelder–Mead run of MethodGauss.
type GaussDiagnostics struct {
	Iterations  int     `json:"iterations"`
	Evaluations int     `json:"evaluations"`
	Converged   bool    `json:"converged"`
	Status      string  `json:"status"`
	Residual    float64 `json:"residual"`
	RSquared    float64 `json:"r_squared"`

	// Model is the fitted Gaussian in original-grid pixels, normalized like
	// the Profile.
	Model GaussianParams `json:"model"`
}

// Converged reports whether every estimator met its stopping criterion
// within budget.
func (d Diagnostics) Converged() bool {
	return d.ISOConverged && (d.Gauss == nil || d.Gauss.Converged)
}
