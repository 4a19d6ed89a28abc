package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
)

// Point represents a 2D position in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplacementResult describes the move between two centroids.
type DisplacementResult struct {
	DistancePixels        float64 `json:"distance_pixels"`
	DeltaX                float64 `json:"delta_x"`
	DeltaY                float64 `json:"delta_y"`
	AngleDegrees          float64 `json:"angle_degrees"`
	DistancePercentWidth  float64 `json:"distance_percent_width"`
	DistancePercentHeight float64 `json:"distance_percent_height"`
}

// MeasureDisplacement calculates the distance and direction from one point
// to another in a width×height frame. The angle is 0 for a move to the right
// and 90 for a move down.
func MeasureDisplacement(from, to Point, width, height int) (*DisplacementResult, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	deltaX := to.X - from.X
	deltaY := to.Y - from.Y
	distance := math.Hypot(deltaX, deltaY)
	angle := math.Atan2(deltaY, deltaX) * 180 / math.Pi

	return &DisplacementResult{
		DistancePixels:        math.Round(distance*100) / 100,
		DeltaX:                math.Round(deltaX*100) / 100,
		DeltaY:                math.Round(deltaY*100) / 100,
		AngleDegrees:          math.Round(angle*10) / 10,
		DistancePercentWidth:  math.Round(distance/float64(width)*1000) / 10,
		DistancePercentHeight: math.Round(distance/float64(height)*1000) / 10,
	}, nil
}

// ProfileComparison contains the change from one beam profile to another.
type ProfileComparison struct {
	Centroid          DisplacementResult `json:"centroid"`
	SigmaPRatio       float64            `json:"sigma_p_ratio"`
	SigmaSRatio       float64            `json:"sigma_s_ratio"`
	EllipticityChange float64            `json:"ellipticity_change"`
	RotationDegrees   float64            `json:"rotation_degrees"`
}

// CompareProfiles reports how beam b differs from beam a. Width ratios are
// b over a. Rotation is the change of the principal axis folded into
// (-90, 90] degrees since axes are equivalent modulo 180.
func CompareProfiles(a, b *beam.Profile, width, height int) (*ProfileComparison, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("two beam profiles are required")
	}

	d, err := MeasureDisplacement(Point{a.MeanX, a.MeanY}, Point{b.MeanX, b.MeanY}, width, height)
	if err != nil {
		return nil, err
	}

	rot := math.Remainder(b.Phi-a.Phi, math.Pi) * 180 / math.Pi
	if rot == -90 {
		rot = 90
	}

	return &ProfileComparison{
		Centroid:          *d,
		SigmaPRatio:       math.Round(b.SigmaP/a.SigmaP*10000) / 10000,
		SigmaSRatio:       math.Round(b.SigmaS/a.SigmaS*10000) / 10000,
		EllipticityChange: math.Round((b.Ellipticity-a.Ellipticity)*10000) / 10000,
		RotationDegrees:   math.Round(rot*10) / 10,
	}, nil
}

// DriftResult summarizes the pointing stability of a series of centroids.
type DriftResult struct {
	Count              int     `json:"count"`
	AverageX           float64 `json:"average_x"`
	AverageY           float64 `json:"average_y"`
	HorizontalSpread   float64 `json:"horizontal_spread"`
	VerticalSpread     float64 `json:"vertical_spread"`
	MaxExcursion       float64 `json:"max_excursion"`
	HorizontallyStable bool    `json:"horizontally_stable"`
	VerticallyStable   bool    `json:"vertically_stable"`
}

// CentroidDrift computes the mean centroid and the RMS spread about it in x
// and y. A direction is stable when its spread is at most tolerance pixels.
func CentroidDrift(points []Point, tolerance float64) (*DriftResult, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("at least one centroid is required")
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("tolerance must not be negative, got %g", tolerance)
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	avgX, sdX := stat.PopMeanStdDev(xs, nil)
	avgY, sdY := stat.PopMeanStdDev(ys, nil)

	var maxExc float64
	for _, p := range points {
		maxExc = math.Max(maxExc, math.Hypot(p.X-avgX, p.Y-avgY))
	}

	return &DriftResult{
		Count:              len(points),
		AverageX:           math.Round(avgX*100) / 100,
		AverageY:           math.Round(avgY*100) / 100,
		HorizontalSpread:   math.Round(sdX*100) / 100,
		VerticalSpread:     math.Round(sdY*100) / 100,
		MaxExcursion:       math.Round(maxExc*100) / 100,
		HorizontallyStable: sdX <= tolerance,
		VerticallyStable:   sdY <= tolerance,
	}, nil
}
