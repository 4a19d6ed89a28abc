package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// Colormap maps a normalized intensity in [0, 1] to a color by blending
// evenly spaced key colors in CIE L*a*b*.
type Colormap struct {
	Name string
	keys []colorful.Color
}

var colormapKeys = map[string][]string{
	"viridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"inferno": {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"gray":    {"#000000", "#ffffff"},
}

// DefaultColormap is used when no colormap is named.
const DefaultColormap = "viridis"

// ColormapNames lists the available colormaps.
func ColormapNames() []string {
	return []string{"viridis", "inferno", "gray"}
}

// LookupColormap returns the named colormap. An empty name selects
// DefaultColormap.
func LookupColormap(name string) (*Colormap, error) {
	if name == "" {
		name = DefaultColormap
	}
	hexes, ok := colormapKeys[name]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q, choose from: %v", name, ColormapNames())
	}

	cm := &Colormap{Name: name, keys: make([]colorful.Color, len(hexes))}
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("failed to parse colormap %s key %s: %w", name, h, err)
		}
		cm.keys[i] = c
	}
	return cm, nil
}

// At returns the color for t, clamped to [0, 1].
func (cm *Colormap) At(t float64) color.NRGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(cm.keys)-1)
	i := int(pos)
	if i >= len(cm.keys)-1 {
		i = len(cm.keys) - 2
	}
	c := cm.keys[i].BlendLab(cm.keys[i+1], pos-float64(i)).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// FalseColor renders m with intensities stretched linearly between its
// minimum and maximum.
func FalseColor(m mat.Matrix, cm *Colormap) *image.NRGBA {
	rows, cols := m.Dims()
	lo, hi := mat.Min(m), mat.Max(m)
	span := hi - lo

	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			t := 0.0
			if span > 0 {
				t = (m.At(y, x) - lo) / span
			}
			img.SetNRGBA(x, y, cm.At(t))
		}
	}
	return img
}
