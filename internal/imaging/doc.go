// Package imaging loads beam camera frames and renders beam-profile results
// for the MCP server.
//
// Frames are decoded into *mat.Dense intensity grids with one row per image
// row. PNG, JPEG, TIFF, BMP and GIF frames are read through the imaging
// library, FITS frames through fitsio (BZERO and BSCALE applied) and CSV or
// TXT files as plain numeric tables. 16-bit grayscale sources keep their full
// range; other color images are reduced to luminance.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: column index (0 = leftmost pixel)
//   - Y: row index (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Beam centroids are real-valued in the same system; a centroid of (3, 4)
// sits at the center of the pixel in column 3, row 4.
//
// # Rendering
//
// Overlay draws the 1σ ellipse and the principal and secondary axes over a
// false-color rendering of the frame. ProfilePlot draws intensity cuts along
// both axes against the fitted Gaussian. Both return base64 PNG data.
//
// # Thread Safety
//
// The FrameCache type is safe for concurrent use. Cached frames are shared
// and must not be modified by callers.
//
// # Performance Considerations
//
// For repeated fits on the same frame, use FrameCache to avoid redundant
// disk reads. Use Evict() or Clear() to manage memory for long-running
// processes.
package imaging
