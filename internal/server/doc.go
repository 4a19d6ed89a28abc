// Package server implements the MCP (Model Context Protocol) server for laser
// beam profile analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the beam package's
// ISO 11146 moment estimator and Gaussian fit through the MCP protocol, so
// MCP clients can measure beam centroids, widths and rotation from camera
// frames.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Frames:
//   - frame_load: Load a frame and report size, format, bit depth and range
//   - beam_synthesize: Write a synthetic Gaussian beam as 16-bit PNG
//
// Fitting:
//   - beam_fit: Fit a frame on disk, optionally within a region or quadrant
//   - beam_fit_matrix: Fit an inline intensity matrix
//
// Rendering:
//   - beam_overlay: False-color frame with the fitted ellipse and axes
//   - beam_profile_plot: Axis intensity cuts against the Gaussian model
//
// Analysis:
//   - beam_compare: Change between the beams of two frames
//   - beam_drift: Centroid stability over a series of frames
//
// Method and decimation default to the values loaded by the config package
// when a call omits them. Fits on a region are reported in full-frame pixels.
//
// # Frame Caching
//
// The server maintains an in-memory cache of decoded frames keyed by path.
// beam_synthesize evicts the path it writes.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	cfg := config.Load()
//	srv := server.New(cfg, version)
//	if err := srv.Run(); err != nil {
//	    log.Error("server error", "error", err)
//	}
package server
