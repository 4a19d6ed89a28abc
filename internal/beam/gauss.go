package beam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Parameter vector layout of the Gaussian model.
const (
	parAmplitude = iota
	parCenterX
	parCenterY
	parA
	parB
	parC
	parOffset
	numParams
)

const (
	// Nelder–Mead budgets per row of the fitted grid.
	iterationsPerRow  = 10
	evaluationsPerRow = 5
	// gaussTolerance is the absolute objective change treated as converged.
	gaussTolerance = 1e-8
	// gaussStallIterations is how long the objective may stall before stopping.
	gaussStallIterations = 100
)

// GaussianParams describes a rotated elliptical Gaussian spot on a grid.
type GaussianParams struct {
	Amplitude float64 `json:"amplitude"`
	CenterX   float64 `json:"center_x"`
	CenterY   float64 `json:"center_y"`
	SigmaP    float64 `json:"sigma_p"`
	SigmaS    float64 `json:"sigma_s"`
	Phi       float64 `json:"phi"`
	Offset    float64 `json:"offset"`
}

// gaussABC converts principal widths and rotation to the quadratic form
// a·dx² + 2b·dx·dy + c·dy² of the model exponent.
func gaussABC(sigmaP, sigmaS, phi float64) (a, b, c float64) {
	cos, sin := math.Cos(phi), math.Sin(phi)
	a = (cos/sigmaP)*(cos/sigmaP)/2 + (sin/sigmaS)*(sin/sigmaS)/2
	b = math.Sin(2*phi) / 4 * (1/(sigmaP*sigmaP) - 1/(sigmaS*sigmaS))
	c = (sin/sigmaP)*(sin/sigmaP)/2 + (cos/sigmaS)*(cos/sigmaS)/2
	return a, b, c
}

// gaussValue evaluates the model at offset (dx, dy) from the center. Values
// above the amplitude are clipped to it after the offset is added.
func gaussValue(p []float64, dx, dy float64) float64 {
	amp := p[parAmplitude]
	v := amp*math.Exp(-(p[parA]*dx*dx+2*p[parB]*dx*dy+p[parC]*dy*dy)) + p[parOffset]
	if v > amp {
		return amp
	}
	return v
}

// At evaluates the model at column x, row y.
func (p GaussianParams) At(x, y float64) float64 {
	a, b, c := gaussABC(p.SigmaP, p.SigmaS, p.Phi)
	return gaussValue([]float64{p.Amplitude, p.CenterX, p.CenterY, a, b, c, p.Offset}, x-p.CenterX, y-p.CenterY)
}

// GaussianGrid renders the model described by p on a rows×cols grid.
func GaussianGrid(rows, cols int, p GaussianParams) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, invalidf("grid size %dx%d", rows, cols)
	}
	if !(p.SigmaP > 0) || !(p.SigmaS > 0) {
		return nil, invalidf("widths must be positive, got sigma_p=%g sigma_s=%g", p.SigmaP, p.SigmaS)
	}

	a, b, c := gaussABC(p.SigmaP, p.SigmaS, p.Phi)
	par := []float64{p.Amplitude, p.CenterX, p.CenterY, a, b, c, p.Offset}
	data := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		dy := float64(y) - p.CenterY
		for x := 0; x < cols; x++ {
			data[y*cols+x] = gaussValue(par, float64(x)-p.CenterX, dy)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

// gaussProblem is the least-squares objective in a scaled parameter space:
// the optimizer works on z where p[i] = z[i]·scale[i].
type gaussProblem struct {
	g     grid
	scale [numParams]float64
	par   []float64
}

func newGaussProblem(g grid, init []float64) *gaussProblem {
	gp := &gaussProblem{g: g, par: make([]float64, numParams)}
	for i, v := range init {
		gp.scale[i] = math.Abs(v)
	}
	// Zero-valued starting points still need a sensible step size.
	if gp.scale[parB] == 0 {
		gp.scale[parB] = 0.1 * math.Sqrt(math.Abs(init[parA]*init[parC]))
	}
	if gp.scale[parOffset] == 0 {
		gp.scale[parOffset] = 0.005 * math.Abs(init[parAmplitude])
	}
	for i, s := range gp.scale {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			gp.scale[i] = 1
		}
	}
	return gp
}

func (gp *gaussProblem) params(z []float64) []float64 {
	out := make([]float64, numParams)
	for i := range out {
		out[i] = z[i] * gp.scale[i]
	}
	return out
}

func (gp *gaussProblem) initial(p []float64) []float64 {
	z := make([]float64, numParams)
	for i := range z {
		z[i] = p[i] / gp.scale[i]
	}
	return z
}

// residual is the sum of squared differences between the grid and the
// model with parameters p.
func (gp *gaussProblem) residual(p []float64) float64 {
	g := gp.g
	var sum float64
	for y := 0; y < g.rows; y++ {
		dy := float64(y) - p[parCenterY]
		row := g.data[y*g.cols : (y+1)*g.cols]
		for x, v := range row {
			d := v - gaussValue(p, float64(x)-p[parCenterX], dy)
			sum += d * d
		}
	}
	return sum
}

func (gp *gaussProblem) objective(z []float64) float64 {
	for i := range gp.par {
		gp.par[i] = z[i] * gp.scale[i]
	}
	return gp.residual(gp.par)
}

// rSquared is the coefficient of determination for a fit with residual rss.
func (gp *gaussProblem) rSquared(rss float64) float64 {
	tss := stat.PopVariance(gp.g.data, nil) * float64(len(gp.g.data))
	if tss == 0 {
		return 0
	}
	return 1 - rss/tss
}

type gaussResult struct {
	estimate Ellipse
	diag     GaussDiagnostics
}

// fitGauss refines a normalized ISO estimate by Nelder–Mead least squares
// against the full grid.
func fitGauss(g grid, iso Ellipse, cfg *config) (gaussResult, error) {
	offset := g.min()
	a, b, c := gaussABC(iso.SigmaP, iso.SigmaS, iso.Phi)
	init := []float64{g.max() - offset, iso.MeanX, iso.MeanY, a, b, c, offset}

	gp := newGaussProblem(g, init)
	settings := &optimize.Settings{
		MajorIterations: iterationsPerRow * g.rows,
		FuncEvaluations: evaluationsPerRow * g.rows,
		Converger: &optimize.FunctionConverge{
			Absolute:   gaussTolerance,
			Iterations: gaussStallIterations,
		},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: gp.objective}, gp.initial(init), settings, &optimize.NelderMead{})
	if res == nil {
		return gaussResult{}, fmt.Errorf("gaussian fit: %w", err)
	}

	converged := err == nil && (res.Status == optimize.FunctionConvergence ||
		res.Status == optimize.MethodConverge || res.Status == optimize.Success)
	if !converged {
		// Budget exhaustion keeps the best point found.
		cfg.logger.Warn("gaussian fit stopped before convergence",
			"status", res.Status.String(), "evaluations", res.Stats.FuncEvaluations, "err", err)
	}

	p := gp.params(res.X)
	rss := gp.residual(p)
	est, terr := ellipseFromGauss(p)
	if terr != nil {
		return gaussResult{}, terr
	}
	return gaussResult{
		estimate: est,
		diag:     GaussDiagnostics{
			Iterations:  res.Stats.MajorIterations,
			Evaluations: res.Stats.FuncEvaluations,
			Converged:   converged,
			Status:      res.Status.String(),
			Residual:    rss,
			RSquared:    gp.rSquared(rss),
			Model:       GaussianParams{
				Amplitude: p[parAmplitude],
				Offset:    p[parOffset],
			},
		},
	}, nil
}

// ellipseFromGauss converts fitted model parameters to an Ellipse.
func ellipseFromGauss(p []float64) (Ellipse, error) {
	a, b, c := p[parA], p[parB], p[parC]
	if !(a > 0) || !(c > 0) {
		return Ellipse{}, invalidf("fitted quadratic form is not positive definite: a=%g c=%g", a, c)
	}
	det := a*c - b*b
	if !(det > degenerateEps*a*c) {
		return Ellipse{}, invalidf("fitted quadratic form is singular: b²=%g, ac=%g", b*b, a*c)
	}

	// (a−c)/cos(2φ) is γ·sqrt((a−c)²+4b²) for every a ≠ c; the root form
	// stays finite at a = c, where φ takes its ±π/4 limit.
	gamma := branch(a-c, a+c)
	root := math.Sqrt((a-c)*(a-c) + 4*b*b)
	sigmaP := math.Pow(a+c+gamma*root, -0.5)

	e := Ellipse{
		MeanX:   p[parCenterX],
		MeanY:   p[parCenterY],
		SigmaX:  math.Sqrt(1 / (2 * a)),
		SigmaY:  math.Sqrt(1 / (2 * c)),
		SigmaXY: b / (b*b - a*c) / 2,
		SigmaP:  sigmaP,
		SigmaS:  math.Pow(2*(a+c)-1/(sigmaP*sigmaP), -0.5),
		Phi:     halfAtan(2*b, a-c, a+c),
	}
	if !e.finite() {
		return Ellipse{}, invalidf("gaussian fit produced non-finite parameters %+v", e)
	}
	return e, nil
}
