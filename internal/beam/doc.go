// Package beam estimates the geometry of a two-dimensional beam profile.
//
// A beam profile is a rectangular grid of intensity samples, typically a
// camera frame of a laser spot. The package locates the beam and describes
// it as an oriented ellipse: centroid, marginal widths, covariance, widths
// along the principal and secondary axes, and the rotation of the principal
// axis.
//
// # Methods
//
// Two estimation methods are available:
//
//   - MethodISO: iterative second-moment estimation. The background level is
//     taken from the darkest frame corner, pixels below an adaptive noise
//     threshold are ignored, and the moments are recomputed over a ±3σ
//     region of interest until the estimate stops changing.
//   - MethodGauss: the ISO estimate seeds a Nelder–Mead least-squares fit of
//     a rotated 2D Gaussian against every pixel of the (decimated) grid.
//
// # Coordinate System
//
// Rows are y and columns are x, both 0-based with the origin at element
// (0, 0). Phi is measured from the +x axis towards +y, in radians.
//
// # Decimation
//
// WithDecimation(n) keeps every nth row and column before estimation. All
// length-valued results are scaled back by n (SigmaXY by n²), so a Profile is
// always expressed in pixels of the original grid.
//
// # Errors
//
// Invalid input (empty grid, non-finite samples, zero total intensity,
// degenerate fit) is reported as *InvalidInputError, an unknown method name
// as *UnsupportedMethodError. Hitting an iteration budget is not an error:
// the best estimate is returned and Profile.Diagnostics records it.
package beam
