package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var regionSchema = map[string]interface{}{
	"type":        "object",
	"description": "Optional sub-region to fit: (x1,y1) inclusive, (x2,y2) exclusive. Results are reported in full-frame pixels.",
	"properties": map[string]interface{}{
		"x1": map[string]interface{}{"type": "integer"},
		"y1": map[string]interface{}{"type": "integer"},
		"x2": map[string]interface{}{"type": "integer"},
		"y2": map[string]interface{}{"type": "integer"},
	},
	"required": []string{"x1", "y1", "x2", "y2"},
}

var quadrantSchema = map[string]interface{}{
	"type":        "string",
	"description": "Optional named region instead of region",
	"enum":        []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
}

var methodSchema = map[string]interface{}{
	"type":        "string",
	"description": "Estimator: iso (second moments) or gauss (Gaussian fit seeded by iso). Default from BEAM_MCP_DEFAULT_METHOD.",
	"enum":        []string{"iso", "gauss"},
}

var decimationSchema = map[string]interface{}{
	"type":        "integer",
	"description": "Keep every nth row/column before fitting. Results stay in original pixels. Default from BEAM_MCP_DEFAULT_DECIMATION.",
	"minimum":     1,
}

// fitProperties returns the schema properties shared by tools that fit a
// frame on disk, plus extra.
func fitProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the frame (PNG, TIFF, JPEG, BMP, FITS or CSV)",
		},
		"method":     methodSchema,
		"decimation": decimationSchema,
		"region":     regionSchema,
		"quadrant":   quadrantSchema,
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frames
		{
			Name:        "frame_load",
			Description: "Load a beam camera frame and return its dimensions, format, bit depth and intensity range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "beam_synthesize",
			Description: "Render a synthetic elliptical Gaussian beam to a 16-bit grayscale PNG. Useful for checking the fit against known parameters.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PNG to write",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Frame width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Frame height in pixels",
					},
					"amplitude": map[string]interface{}{
						"type":        "number",
						"description": "Peak height above offset. Default 30000",
						"default":     30000,
					},
					"center_x": map[string]interface{}{
						"type":        "number",
						"description": "Beam center column. Default frame center",
					},
					"center_y": map[string]interface{}{
						"type":        "number",
						"description": "Beam center row. Default frame center",
					},
					"sigma_p": map[string]interface{}{
						"type":        "number",
						"description": "Standard deviation along the principal axis in pixels",
					},
					"sigma_s": map[string]interface{}{
						"type":        "number",
						"description": "Standard deviation along the secondary axis in pixels",
					},
					"phi": map[string]interface{}{
						"type":        "number",
						"description": "Principal axis angle in radians, measured from +x toward +y (down)",
					},
					"offset": map[string]interface{}{
						"type":        "number",
						"description": "Constant background level",
					},
				},
				"required": []string{"path", "width", "height", "sigma_p", "sigma_s"},
			},
		},

		// Fitting
		{
			Name:        "beam_fit",
			Description: "Estimate the beam centroid, principal widths (sigma_p >= sigma_s) and rotation of a frame using the ISO 11146 moment method, optionally refined by a Gaussian fit.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": fitProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "beam_fit_matrix",
			Description: "Estimate the beam parameters of an inline intensity matrix (rows of numbers, row = y).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"matrix": map[string]interface{}{
						"type":        "array",
						"description": "Intensity rows; all rows must have the same length",
						"items": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "number"},
						},
					},
					"method":     methodSchema,
					"decimation": decimationSchema,
				},
				"required": []string{"matrix"},
			},
		},

		// Rendering
		{
			Name:        "beam_overlay",
			Description: "Fit a frame and return a false-color PNG with the 1-sigma ellipse, the principal axis (red, +/-2 sigma_p) and the secondary axis (blue, +/-2 sigma_s) drawn on top.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": fitProperties(map[string]interface{}{
					"scale": map[string]interface{}{
						"type":        "integer",
						"description": "Integer upscale factor (1-16). Default 1",
						"default":     1,
					},
					"colormap": map[string]interface{}{
						"type":        "string",
						"description": "False-color map. Default viridis",
						"enum":        []string{"viridis", "inferno", "gray"},
					},
					"ellipse_color": map[string]interface{}{
						"type":        "string",
						"description": "Ellipse color as hex (e.g., '#FFFFFF'). Default white",
					},
					"show_centroid": map[string]interface{}{
						"type":        "boolean",
						"description": "Label the centroid with its pixel coordinates",
						"default":     false,
					},
					"crop_to_beam": map[string]interface{}{
						"type":        "number",
						"description": "If set, crop the rendering to this many sigma_p around the centroid",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "beam_profile_plot",
			Description: "Fit a frame and return a PNG plot of the intensity along the principal and secondary axes against the Gaussian model.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": fitProperties(map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Plot width in pixels. Default 576",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Plot height in pixels. Default 384",
					},
				}),
				"required": []string{"path"},
			},
		},

		// Analysis
		{
			Name:        "beam_compare",
			Description: "Fit two frames and report the centroid displacement, width ratios, ellipticity change and rotation from the first to the second.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path_a": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the reference frame",
					},
					"path_b": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame to compare",
					},
					"method":     methodSchema,
					"decimation": decimationSchema,
					"region":     regionSchema,
					"quadrant":   quadrantSchema,
				},
				"required": []string{"path_a", "path_b"},
			},
		},
		{
			Name:        "beam_drift",
			Description: "Fit a series of frames and report the mean centroid, its RMS spread in x and y and whether pointing is stable within a tolerance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths of the frames in acquisition order",
						"items":       map[string]interface{}{"type": "string"},
					},
					"method":     methodSchema,
					"decimation": decimationSchema,
					"region":     regionSchema,
					"quadrant":   quadrantSchema,
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Maximum RMS spread in pixels considered stable. Default 0.5",
						"default":     0.5,
					},
				},
				"required": []string{"paths"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
