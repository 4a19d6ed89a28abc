package server

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/beam-profile-mcp/internal/beam"
	"github.com/ironsheep/beam-profile-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "frame_load", "beam_fit").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool done", "tool", params.Name, "elapsed", time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for omitted parameters
//  3. Loads frames from cache and crops the requested region
//  4. Calls beam.Fit and the imaging renderers
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frames
	case "frame_load":
		return s.handleFrameLoad(args)
	case "beam_synthesize":
		return s.handleBeamSynthesize(args)

	// Fitting
	case "beam_fit":
		return s.handleBeamFit(args)
	case "beam_fit_matrix":
		return s.handleBeamFitMatrix(args)

	// Rendering
	case "beam_overlay":
		return s.handleBeamOverlay(args)
	case "beam_profile_plot":
		return s.handleBeamProfilePlot(args)

	// Analysis
	case "beam_compare":
		return s.handleBeamCompare(args)
	case "beam_drift":
		return s.handleBeamDrift(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared fit arguments ===

// fitArgs selects a frame, an optional sub-region and the estimator.
type fitArgs struct {
	Path       string          `json:"path"`
	Method     string          `json:"method"`
	Decimation int             `json:"decimation"`
	Region     *imaging.Region `json:"region,omitempty"`
	Quadrant   string          `json:"quadrant,omitempty"`
}

// fittedFrame is a fit on a (possibly cropped) frame. Profile coordinates
// are relative to Region.
type fittedFrame struct {
	frame   *imaging.Frame
	pixels  *mat.Dense
	region  imaging.Region
	profile *beam.Profile
}

func (s *Server) method(name string) (beam.Method, error) {
	if name == "" {
		return s.cfg.Method, nil
	}
	return beam.ParseMethod(name)
}

// loadRegion loads path and crops it to the requested region or quadrant.
func (s *Server) loadRegion(a fitArgs) (*imaging.Frame, *mat.Dense, imaging.Region, error) {
	if a.Path == "" {
		return nil, nil, imaging.Region{}, fmt.Errorf("path is required")
	}
	f, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, imaging.Region{}, err
	}

	r := imaging.Region{X2: f.Width(), Y2: f.Height()}
	switch {
	case a.Region != nil && a.Quadrant != "":
		return nil, nil, imaging.Region{}, fmt.Errorf("region and quadrant are mutually exclusive")
	case a.Region != nil:
		r = *a.Region
	case a.Quadrant != "":
		r, err = imaging.QuadrantRegion(f.Width(), f.Height(), a.Quadrant)
		if err != nil {
			return nil, nil, imaging.Region{}, err
		}
	}

	m, err := imaging.Crop(f.Pixels, r)
	if err != nil {
		return nil, nil, imaging.Region{}, err
	}
	return f, m, r, nil
}

func (s *Server) fit(a fitArgs) (*fittedFrame, error) {
	method, err := s.method(a.Method)
	if err != nil {
		return nil, err
	}
	f, m, r, err := s.loadRegion(a)
	if err != nil {
		return nil, err
	}
	p, err := beam.Fit(m, method, s.cfg.FitOptions(a.Decimation)...)
	if err != nil {
		return nil, fmt.Errorf("failed to fit %s: %w", a.Path, err)
	}
	return &fittedFrame{frame: f, pixels: m, region: r, profile: p}, nil
}

// shiftProfile returns a copy of p translated by (dx, dy) pixels.
func shiftProfile(p *beam.Profile, dx, dy float64) *beam.Profile {
	out := *p
	out.MeanX += dx
	out.MeanY += dy
	if p.Diagnostics.Gauss != nil {
		g := *p.Diagnostics.Gauss
		g.Model.CenterX += dx
		g.Model.CenterY += dy
		out.Diagnostics.Gauss = &g
	}
	return &out
}

// fullFrame returns the profile in full-frame pixel coordinates.
func (ff *fittedFrame) fullFrame() *beam.Profile {
	return shiftProfile(ff.profile, float64(ff.region.X1), float64(ff.region.Y1))
}

// === Frame Handlers ===

type frameLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameLoad(args json.RawMessage) (interface{}, error) {
	var a frameLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadFrameInfo(s.cache, a.Path)
}

type beamSynthesizeArgs struct {
	Path      string   `json:"path"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Amplitude float64  `json:"amplitude"`
	CenterX   *float64 `json:"center_x,omitempty"`
	CenterY   *float64 `json:"center_y,omitempty"`
	SigmaP    float64  `json:"sigma_p"`
	SigmaS    float64  `json:"sigma_s"`
	Phi       float64  `json:"phi"`
	Offset    float64  `json:"offset"`
}

func (s *Server) handleBeamSynthesize(args json.RawMessage) (interface{}, error) {
	var a beamSynthesizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.Amplitude == 0 {
		a.Amplitude = 30000
	}

	p := beam.GaussianParams{
		Amplitude: a.Amplitude,
		CenterX:   float64(a.Width-1) / 2,
		CenterY:   float64(a.Height-1) / 2,
		SigmaP:    a.SigmaP,
		SigmaS:    a.SigmaS,
		Phi:       a.Phi,
		Offset:    a.Offset,
	}
	if a.CenterX != nil {
		p.CenterX = *a.CenterX
	}
	if a.CenterY != nil {
		p.CenterY = *a.CenterY
	}

	res, err := imaging.SynthesizeFrame(a.Path, a.Height, a.Width, p)
	if err != nil {
		return nil, err
	}
	// A cached frame at this path is now stale.
	s.cache.Evict(a.Path)
	return res, nil
}

// === Fitting Handlers ===

type beamFitResult struct {
	Path         string          `json:"path"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	Region       *imaging.Region `json:"region,omitempty"`
	RegionOffset *imaging.Point  `json:"region_offset,omitempty"`
	Profile      *beam.Profile   `json:"profile"`
}

func (s *Server) handleBeamFit(args json.RawMessage) (interface{}, error) {
	var a fitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ff, err := s.fit(a)
	if err != nil {
		return nil, err
	}

	res := &beamFitResult{
		Path:    a.Path,
		Width:   ff.frame.Width(),
		Height:  ff.frame.Height(),
		Profile: ff.fullFrame(),
	}
	if ff.region != (imaging.Region{X2: ff.frame.Width(), Y2: ff.frame.Height()}) {
		r := ff.region
		res.Region = &r
		res.RegionOffset = &imaging.Point{X: float64(r.X1), Y: float64(r.Y1)}
	}
	return res, nil
}

type beamFitMatrixArgs struct {
	Matrix     [][]float64 `json:"matrix"`
	Method     string      `json:"method"`
	Decimation int         `json:"decimation"`
}

func (s *Server) handleBeamFitMatrix(args json.RawMessage) (interface{}, error) {
	var a beamFitMatrixArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	method, err := s.method(a.Method)
	if err != nil {
		return nil, err
	}
	m, err := imaging.MatrixFromRows(a.Matrix)
	if err != nil {
		return nil, err
	}
	return beam.Fit(m, method, s.cfg.FitOptions(a.Decimation)...)
}

// === Rendering Handlers ===

type beamOverlayArgs struct {
	fitArgs
	Scale        int     `json:"scale"`
	Colormap     string  `json:"colormap"`
	EllipseColor string  `json:"ellipse_color"`
	ShowCentroid bool    `json:"show_centroid"`
	CropToBeam   float64 `json:"crop_to_beam"`
}

type beamOverlayResult struct {
	*imaging.OverlayResult
	Region  imaging.Region `json:"region"`
	Profile *beam.Profile  `json:"profile"`
}

func (s *Server) handleBeamOverlay(args json.RawMessage) (interface{}, error) {
	var a beamOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.CropToBeam < 0 {
		return nil, fmt.Errorf("crop_to_beam must not be negative, got %g", a.CropToBeam)
	}
	ff, err := s.fit(a.fitArgs)
	if err != nil {
		return nil, err
	}

	m, r, p := ff.pixels, ff.region, ff.profile
	if a.CropToBeam > 0 {
		rows, cols := m.Dims()
		zoom := imaging.CenteredRegion(cols, rows, p.MeanX, p.MeanY, a.CropToBeam*p.SigmaP)
		m, err = imaging.Crop(m, zoom)
		if err != nil {
			return nil, fmt.Errorf("beam is outside the frame: %w", err)
		}
		p = shiftProfile(p, -float64(zoom.X1), -float64(zoom.Y1))
		r = imaging.Region{X1: r.X1 + zoom.X1, Y1: r.Y1 + zoom.Y1, X2: r.X1 + zoom.X2, Y2: r.Y1 + zoom.Y2}
	}

	res, err := imaging.Overlay(m, p, imaging.OverlayOptions{
		Scale:        a.Scale,
		Colormap:     a.Colormap,
		EllipseColor: a.EllipseColor,
		ShowCentroid: a.ShowCentroid,
	})
	if err != nil {
		return nil, err
	}
	return &beamOverlayResult{OverlayResult: res, Region: r, Profile: ff.fullFrame()}, nil
}

type beamProfilePlotArgs struct {
	fitArgs
	Width  int `json:"width"`
	Height int `json:"height"`
}

type beamProfilePlotResult struct {
	*imaging.ProfilePlotResult
	Profile *beam.Profile `json:"profile"`
}

// plotDPI is the resolution gonum/plot uses for raster output.
const plotDPI = 96

func (s *Server) handleBeamProfilePlot(args json.RawMessage) (interface{}, error) {
	var a beamProfilePlotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width < 0 || a.Height < 0 {
		return nil, fmt.Errorf("plot size must not be negative, got %dx%d", a.Width, a.Height)
	}
	ff, err := s.fit(a.fitArgs)
	if err != nil {
		return nil, err
	}

	w := vg.Length(a.Width) * vg.Inch / plotDPI
	h := vg.Length(a.Height) * vg.Inch / plotDPI
	res, err := imaging.ProfilePlot(ff.pixels, ff.profile, w, h)
	if err != nil {
		return nil, err
	}
	return &beamProfilePlotResult{ProfilePlotResult: res, Profile: ff.fullFrame()}, nil
}

// === Analysis Handlers ===

type beamCompareArgs struct {
	PathA      string          `json:"path_a"`
	PathB      string          `json:"path_b"`
	Method     string          `json:"method"`
	Decimation int             `json:"decimation"`
	Region     *imaging.Region `json:"region,omitempty"`
	Quadrant   string          `json:"quadrant,omitempty"`
}

type beamCompareResult struct {
	*imaging.ProfileComparison
	ProfileA *beam.Profile `json:"profile_a"`
	ProfileB *beam.Profile `json:"profile_b"`
}

func (s *Server) handleBeamCompare(args json.RawMessage) (interface{}, error) {
	var a beamCompareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	fits := make([]*fittedFrame, 2)
	for i, path := range []string{a.PathA, a.PathB} {
		ff, err := s.fit(fitArgs{Path: path, Method: a.Method, Decimation: a.Decimation, Region: a.Region, Quadrant: a.Quadrant})
		if err != nil {
			return nil, err
		}
		fits[i] = ff
	}

	pa, pb := fits[0].fullFrame(), fits[1].fullFrame()
	cmp, err := imaging.CompareProfiles(pa, pb, fits[0].frame.Width(), fits[0].frame.Height())
	if err != nil {
		return nil, err
	}
	return &beamCompareResult{ProfileComparison: cmp, ProfileA: pa, ProfileB: pb}, nil
}

type beamDriftArgs struct {
	Paths      []string        `json:"paths"`
	Method     string          `json:"method"`
	Decimation int             `json:"decimation"`
	Region     *imaging.Region `json:"region,omitempty"`
	Quadrant   string          `json:"quadrant,omitempty"`
	Tolerance  float64         `json:"tolerance"`
}

type beamDriftResult struct {
	*imaging.DriftResult
	Centroids []imaging.Point `json:"centroids"`
}

func (s *Server) handleBeamDrift(args json.RawMessage) (interface{}, error) {
	var a beamDriftArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("paths must list at least one frame")
	}
	if a.Tolerance == 0 {
		a.Tolerance = 0.5
	}

	centroids := make([]imaging.Point, len(a.Paths))
	for i, path := range a.Paths {
		ff, err := s.fit(fitArgs{Path: path, Method: a.Method, Decimation: a.Decimation, Region: a.Region, Quadrant: a.Quadrant})
		if err != nil {
			return nil, err
		}
		p := ff.fullFrame()
		centroids[i] = imaging.Point{X: p.MeanX, Y: p.MeanY}
	}

	drift, err := imaging.CentroidDrift(centroids, a.Tolerance)
	if err != nil {
		return nil, err
	}
	return &beamDriftResult{DriftResult: drift, Centroids: centroids}, nil
}
