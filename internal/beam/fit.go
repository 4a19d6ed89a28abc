package beam

import (
	"io"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Method selects the estimator used by Fit.
type Method int

const (
	// MethodISO is the iterative second-moment estimate.
	MethodISO Method = iota + 1
	// MethodGauss refines the ISO estimate with a rotated Gaussian fit.
	MethodGauss
)

func (m Method) String() string {
	switch m {
	case MethodISO:
		return "iso"
	case MethodGauss:
		return "gauss"
	default:
		return "unknown"
	}
}

// MarshalText encodes the method by name.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "iso" or "gauss".
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod maps "iso" and "gauss" (case-insensitive) to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iso":
		return MethodISO, nil
	case "gauss":
		return MethodGauss, nil
	default:
		return 0, &UnsupportedMethodError{Method: s}
	}
}

type config struct {
	decimation       int
	isoMaxIterations int
	isoTolerance     float64
	logger           *slog.Logger
}

func defaultConfig() config {
	return config{
		decimation:       1,
		isoMaxIterations: defaultISOMaxIterations,
		isoTolerance:     defaultISOTolerance,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (c *config) validate() error {
	if c.decimation <= 0 {
		return invalidf("decimation must be a positive integer, got %d", c.decimation)
	}
	if c.isoMaxIterations <= 0 {
		return invalidf("iso iteration cap must be positive, got %d", c.isoMaxIterations)
	}
	if c.isoTolerance < 0 {
		return invalidf("iso tolerance must not be negative, got %g", c.isoTolerance)
	}
	return nil
}

// Option configures Fit.
type Option func(*config)

// WithDecimation keeps every nth row and column before estimating.
// Without this option n is 1.
func WithDecimation(n int) Option {
	return func(c *config) {
		c.decimation = n
	}
}

// WithMaxISOIterations caps the region-of-interest refinement loop.
func WithMaxISOIterations(n int) Option {
	return func(c *config) {
		c.isoMaxIterations = n
	}
}

// WithISOTolerance sets the relative change below which the ISO estimate
// counts as settled. Zero demands exact repetition.
func WithISOTolerance(tol float64) Option {
	return func(c *config) {
		c.isoTolerance = tol
	}
}

// WithLogger routes estimator warnings and debug output to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Fit estimates the beam ellipse of the intensity grid m.
//
// The ISO estimate is always computed first; MethodGauss uses it as the
// starting point of the Gaussian fit. The returned Profile is normalized
// (SigmaP >= SigmaS) and expressed in pixels of m regardless of decimation.
func Fit(m mat.Matrix, method Method, opts ...Option) (*Profile, error) {
	if method != MethodISO && method != MethodGauss {
		return nil, &UnsupportedMethodError{Method: method.String()}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g, err := newGrid(m)
	if err != nil {
		return nil, err
	}
	g = g.decimate(cfg.decimation)

	iso, err := iterativeISO(g, &cfg)
	if err != nil {
		return nil, err
	}
	est := iso.estimate.Normalize()
	diag := Diagnostics{
		Background:     iso.background,
		NoiseThreshold: iso.threshold,
		ISOIterations:  iso.iterations,
		ISOConverged:   iso.converged,
	}

	if method == MethodGauss {
		gauss, err := fitGauss(g, est, &cfg)
		if err != nil {
			return nil, err
		}
		est = gauss.estimate.Normalize()
		diag.Gauss = &gauss.diag
	}

	if !est.finite() || !(est.SigmaS > 0) {
		return nil, invalidf("degenerate beam estimate sigma_p=%g sigma_s=%g", est.SigmaP, est.SigmaS)
	}

	cfg.logger.Debug("beam fitted",
		"method", method.String(), "decimation", cfg.decimation,
		"mean_x", est.MeanX, "mean_y", est.MeanY, "sigma_p", est.SigmaP, "sigma_s", est.SigmaS)

	out := est.scaled(float64(cfg.decimation))
	if diag.Gauss != nil {
		model := &diag.Gauss.Model
		model.CenterX, model.CenterY = out.MeanX, out.MeanY
		model.SigmaP, model.SigmaS, model.Phi = out.SigmaP, out.SigmaS, out.Phi
	}

	return &Profile{
		Ellipse:     out,
		Ellipticity: est.SigmaS / est.SigmaP,
		Method:      method,
		Decimation:  cfg.decimation,
		Diagnostics: diag,
	}, nil
}

// FitString is Fit with the method given by name ("iso" or "gauss").
func FitString(m mat.Matrix, method string, opts ...Option) (*Profile, error) {
	parsed, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	return Fit(m, parsed, opts...)
}
