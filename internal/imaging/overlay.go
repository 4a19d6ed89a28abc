package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
)

// MaxOverlayScale bounds the upscale factor of Overlay.
const MaxOverlayScale = 16

// OverlayOptions controls Overlay rendering. Zero values select defaults.
type OverlayOptions struct {
	// Scale is the integer upscale factor (default 1).
	Scale int
	// Colormap names the false-color map (default viridis).
	Colormap string
	// EllipseColor is a hex color for the 1σ ellipse (default white).
	EllipseColor string
	// ShowCentroid labels the centroid with its pixel coordinates.
	ShowCentroid bool
}

// OverlayResult contains the rendered overlay.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Colormap    string `json:"colormap"`
	Scale       int    `json:"scale"`
}

var (
	principalAxisColor = color.RGBA{255, 64, 64, 255}
	secondaryAxisColor = color.RGBA{64, 160, 255, 255}
)

// Overlay renders m in false color with the beam ellipse of p drawn on top:
// the 1σ ellipse, the principal axis out to ±2σp and the secondary axis out
// to ±2σs. p must be expressed in pixels of m.
func Overlay(m mat.Matrix, p *beam.Profile, opts OverlayOptions) (*OverlayResult, error) {
	if p == nil {
		return nil, fmt.Errorf("no beam profile to draw")
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 1 || scale > MaxOverlayScale {
		return nil, fmt.Errorf("scale must be between 1 and %d, got %d", MaxOverlayScale, scale)
	}
	cm, err := LookupColormap(opts.Colormap)
	if err != nil {
		return nil, err
	}
	ellipseColor := color.RGBA{255, 255, 255, 255}
	if opts.EllipseColor != "" {
		ellipseColor, err = parseHexColor(opts.EllipseColor)
		if err != nil {
			return nil, fmt.Errorf("invalid ellipse color %q: %w", opts.EllipseColor, err)
		}
	}

	base := FalseColor(m, cm)
	if scale > 1 {
		b := base.Bounds()
		base = imaging.Resize(base, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	}

	layer := image.NewRGBA(base.Bounds())
	drawBeam(layer, p.Ellipse, float64(scale), ellipseColor)
	if opts.ShowCentroid {
		cx, cy := toCanvas(p.MeanX, p.MeanY, float64(scale))
		label := fmt.Sprintf("%d,%d", int(math.Round(p.MeanX)), int(math.Round(p.MeanY)))
		drawLabel(layer, int(cx)+3, int(cy)+3, label, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
	}

	result := blend.Normal(base, layer)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, result, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       result.Bounds().Dx(),
		Height:      result.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Colormap:    cm.Name,
		Scale:       scale,
	}, nil
}

// toCanvas maps frame pixel coordinates to the center of the corresponding
// upscaled pixel.
func toCanvas(x, y, scale float64) (float64, float64) {
	return (x + 0.5) * scale, (y + 0.5) * scale
}

func drawBeam(img *image.RGBA, e beam.Ellipse, scale float64, ellipseColor color.RGBA) {
	cos, sin := math.Cos(e.Phi), math.Sin(e.Phi)
	point := func(along, across float64) (float64, float64) {
		return toCanvas(e.MeanX+along*cos-across*sin, e.MeanY+along*sin+across*cos, scale)
	}

	x0, y0 := point(-2*e.SigmaP, 0)
	x1, y1 := point(2*e.SigmaP, 0)
	drawLine(img, x0, y0, x1, y1, principalAxisColor)

	x0, y0 = point(0, -2*e.SigmaS)
	x1, y1 = point(0, 2*e.SigmaS)
	drawLine(img, x0, y0, x1, y1, secondaryAxisColor)

	n := max(64, int(2*math.Pi*e.SigmaP*scale))
	px, py := point(e.SigmaP, 0)
	for i := 1; i <= n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n)
		x, y := point(e.SigmaP*math.Cos(t), e.SigmaS*math.Sin(t))
		drawLine(img, px, py, x, y, ellipseColor)
		px, py = x, y
	}
}

// drawLine draws a one-pixel line by stepping along the longer axis.
// Pixels outside the image are skipped.
func drawLine(img *image.RGBA, x0, y0, x1, y1 float64, c color.RGBA) {
	bounds := img.Bounds()
	dx, dy := x1-x0, y1-y0
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := int(math.Floor(x0 + t*dx))
		py := int(math.Floor(y0 + t*dy))
		if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
			img.SetRGBA(px, py, c)
		}
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel font for digits, comma and minus.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
