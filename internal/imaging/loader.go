package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Frame is a single-channel intensity image ready for beam fitting.
//
// Pixels holds one sample per pixel with rows as y and columns as x. Raster
// samples keep their native range (0-255 for 8-bit, 0-65535 for 16-bit);
// color rasters are reduced to luminance. FITS samples have BZERO and
// BSCALE applied.
type Frame struct {
	Path     string
	Format   string
	BitDepth int
	Pixels   *mat.Dense
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	_, c := f.Pixels.Dims()
	return c
}

// Height returns the number of rows.
func (f *Frame) Height() int {
	r, _ := f.Pixels.Dims()
	return r
}

// FrameCache provides thread-safe caching of loaded frames to avoid redundant
// disk reads and decoding.
//
// Frames are keyed by the exact path string. Cached frames remain in memory
// until removed via Evict() or Clear(). Callers must treat a returned
// Frame's Pixels as read-only since it is shared with later Load calls.
//
// # Example Usage
//
//	cache := imaging.NewFrameCache()
//	frame, err := cache.Load("/data/spot.fits")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile, err := beam.Fit(frame.Pixels, beam.MethodGauss)
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewFrameCache creates and initializes a new empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]*Frame),
	}
}

// Load retrieves a frame from the cache or loads it from disk if not cached.
//
// The decoder is chosen by file extension:
//   - ".fits", ".fit", ".fts" -> FITS primary image
//   - ".csv", ".txt" -> comma-separated numeric matrix
//   - anything else -> raster image (PNG, JPEG, GIF, TIFF, BMP)
func (c *FrameCache) Load(path string) (*Frame, error) {
	c.mu.RLock()
	if f, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	f, err := loadFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = f
	c.mu.Unlock()

	return f, nil
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*Frame)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

func loadFrame(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		r, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open frame: %w", err)
		}
		defer r.Close()

		pixels, depth, err := decodeFITS(r)
		if err != nil {
			return nil, err
		}
		return &Frame{Path: path, Format: "fits", BitDepth: depth, Pixels: pixels}, nil

	case ".csv", ".txt":
		r, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open frame: %w", err)
		}
		defer r.Close()

		pixels, err := decodeCSV(r)
		if err != nil {
			return nil, err
		}
		return &Frame{Path: path, Format: "csv", BitDepth: 64, Pixels: pixels}, nil
	}

	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect frame format: %w", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	pixels, depth := rasterToMatrix(img)
	return &Frame{
		Path:     path,
		Format:   strings.ToLower(format.String()),
		BitDepth: depth,
		Pixels:   pixels,
	}, nil
}

// rasterToMatrix converts an image to intensities. Grayscale images are read
// directly; anything else goes through the luminance conversion of
// color.Gray16Model.
func rasterToMatrix(img image.Image) (*mat.Dense, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]float64, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				data[y*w+x] = float64(v)
			}
		}
		return mat.NewDense(h, w, data), 8

	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				data[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return mat.NewDense(h, w, data), 16
	}

	depth := 8
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		depth = 16
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			v := float64(g.Y)
			if depth == 8 {
				v /= 257
			}
			data[y*w+x] = v
		}
	}
	return mat.NewDense(h, w, data), depth
}

// MatrixFromRows builds an intensity grid from rows of samples. All rows must
// have the same non-zero length.
func MatrixFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix must have at least one row and one column")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix row %d has %d values, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// FrameInfo contains metadata about a loaded frame.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif", "tiff", "bmp", "fits" or "csv".
	Format string `json:"format"`

	// BitDepth is the bits per sample of the source data.
	BitDepth int `json:"bit_depth"`

	// Min, Max and Mean summarize the intensities.
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadFrameInfo loads a frame into the cache (if not already cached) and
// returns its dimensions, format and intensity summary.
func LoadFrameInfo(cache *FrameCache, path string) (*FrameInfo, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &FrameInfo{
		Width:         f.Width(),
		Height:        f.Height(),
		Format:        f.Format,
		BitDepth:      f.BitDepth,
		Min:           mat.Min(f.Pixels),
		Max:           mat.Max(f.Pixels),
		Mean:          stat.Mean(f.Pixels.RawMatrix().Data, nil),
		FileSizeBytes: st.Size(),
	}, nil
}
