package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
)

// cutHalfLength is how far the axis cuts extend from the centroid, in
// principal sigmas.
const cutHalfLength = 3.0

// ProfilePlotResult contains the rendered axis-cut plot.
type ProfilePlotResult struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ImageBase64      string `json:"image_base64"`
	MimeType         string `json:"mime_type"`
	PrincipalSamples int    `json:"principal_samples"`
	SecondarySamples int    `json:"secondary_samples"`
	ModelSource      string `json:"model_source"`
}

// AxisCut samples m along the line through (cx, cy) at angle phi, at unit
// steps from -halfLength to +halfLength. Samples use the nearest pixel;
// points outside m are skipped. X is the signed offset from the center.
func AxisCut(m mat.Matrix, cx, cy, phi, halfLength float64) plotter.XYs {
	rows, cols := m.Dims()
	cos, sin := math.Cos(phi), math.Sin(phi)
	n := int(math.Ceil(halfLength))

	pts := make(plotter.XYs, 0, 2*n+1)
	for i := -n; i <= n; i++ {
		t := float64(i)
		x := int(math.Round(cx + t*cos))
		y := int(math.Round(cy + t*sin))
		if x < 0 || x >= cols || y < 0 || y >= rows {
			continue
		}
		pts = append(pts, plotter.XY{X: t, Y: m.At(y, x)})
	}
	return pts
}

// profileModel returns the Gaussian to draw against the data: the fitted
// model for MethodGauss, otherwise a Gaussian with the ISO widths whose
// amplitude is the centroid sample above background.
func profileModel(m mat.Matrix, p *beam.Profile) (beam.GaussianParams, string) {
	if g := p.Diagnostics.Gauss; g != nil {
		return g.Model, "gauss"
	}

	rows, cols := m.Dims()
	x := min(max(int(math.Round(p.MeanX)), 0), cols-1)
	y := min(max(int(math.Round(p.MeanY)), 0), rows-1)
	bg := p.Diagnostics.Background
	return beam.GaussianParams{
		Amplitude: m.At(y, x) - bg,
		CenterX:   p.MeanX,
		CenterY:   p.MeanY,
		SigmaP:    p.SigmaP,
		SigmaS:    p.SigmaS,
		Phi:       p.Phi,
		Offset:    bg,
	}, "iso"
}

func modelCut(model beam.GaussianParams, phi float64, cut plotter.XYs) plotter.XYs {
	cos, sin := math.Cos(phi), math.Sin(phi)
	pts := make(plotter.XYs, len(cut))
	for i, pt := range cut {
		pts[i] = plotter.XY{
			X: pt.X,
			Y: model.At(model.CenterX+pt.X*cos, model.CenterY+pt.X*sin),
		}
	}
	return pts
}

// ProfilePlot renders the intensity of m along the principal and secondary
// axes of p together with the corresponding Gaussian model cuts.
func ProfilePlot(m mat.Matrix, p *beam.Profile, width, height vg.Length) (*ProfilePlotResult, error) {
	if p == nil {
		return nil, fmt.Errorf("no beam profile to plot")
	}
	if width <= 0 || height <= 0 {
		width, height = 6*vg.Inch, 4*vg.Inch
	}

	half := cutHalfLength * p.SigmaP
	principal := AxisCut(m, p.MeanX, p.MeanY, p.Phi, half)
	secondary := AxisCut(m, p.MeanX, p.MeanY, p.Phi+math.Pi/2, half)
	if len(principal) == 0 && len(secondary) == 0 {
		return nil, fmt.Errorf("beam centroid (%.1f, %.1f) is outside the frame", p.MeanX, p.MeanY)
	}
	model, source := profileModel(m, p)

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Beam cuts (%s): sigma_p %.2f px, sigma_s %.2f px, phi %.1f°",
		p.Method, p.SigmaP, p.SigmaS, p.Phi*180/math.Pi)
	pl.X.Label.Text = "Offset from centroid (px)"
	pl.Y.Label.Text = "Intensity"
	pl.Legend.Top = true

	series := []struct {
		label  string
		pts    plotter.XYs
		color  color.Color
		dashed bool
	}{
		{"principal", principal, principalAxisColor, false},
		{"principal model", modelCut(model, p.Phi, principal), principalAxisColor, true},
		{"secondary", secondary, secondaryAxisColor, false},
		{"secondary model", modelCut(model, p.Phi+math.Pi/2, secondary), secondaryAxisColor, true},
	}
	for _, s := range series {
		if len(s.pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s line: %w", s.label, err)
		}
		line.Color = s.color
		line.Width = vg.Points(1)
		if s.dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		pl.Add(line)
		pl.Legend.Add(s.label, line)
	}
	pl.Add(plotter.NewGrid())

	wt, err := pl.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to read plot dimensions: %w", err)
	}

	return &ProfilePlotResult{
		Width:            cfg.Width,
		Height:           cfg.Height,
		ImageBase64:      base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:         "image/png",
		PrincipalSamples: len(principal),
		SecondarySamples: len(secondary),
		ModelSource:      source,
	}, nil
}
