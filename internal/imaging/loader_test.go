package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
)

// createTestImage writes a solid-color PNG into a temp dir and returns its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "solid.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createGray16Image writes a 16-bit grayscale PNG with value 1000·x + y.
func createGray16Image(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(1000*x + y)})
		}
	}

	path := filepath.Join(t.TempDir(), "gray16.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestNewFrameCache(t *testing.T) {
	cache := NewFrameCache()
	if cache == nil {
		t.Fatal("NewFrameCache returned nil")
	}
	if cache.frames == nil {
		t.Fatal("NewFrameCache did not initialize frames map")
	}
}

func TestFrameCache_Load(t *testing.T) {
	cache := NewFrameCache()
	path := createTestImage(t, 100, 80, color.RGBA{255, 255, 255, 255})

	f1, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f1.Width() != 100 || f1.Height() != 80 {
		t.Errorf("unexpected dimensions: got %dx%d, want 100x80", f1.Width(), f1.Height())
	}
	if f1.Format != "png" {
		t.Errorf("Format: got %q, want png", f1.Format)
	}
	if f1.BitDepth != 8 {
		t.Errorf("BitDepth: got %d, want 8", f1.BitDepth)
	}
	if v := f1.Pixels.At(10, 10); v < 254.9 || v > 255.1 {
		t.Errorf("white pixel intensity: got %.2f, want 255", v)
	}

	f2, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if f1 != f2 {
		t.Error("second Load did not return cached frame")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestFrameCache_LoadGray16(t *testing.T) {
	cache := NewFrameCache()
	path := createGray16Image(t, 20, 10)

	f, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.BitDepth != 16 {
		t.Errorf("BitDepth: got %d, want 16", f.BitDepth)
	}
	// Row 3, column 7 holds 1000·7 + 3.
	if got := f.Pixels.At(3, 7); got != 7003 {
		t.Errorf("pixel (7,3): got %v, want 7003", got)
	}
}

func TestFrameCache_LoadTIFF(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 6))
	img.SetGray(5, 2, color.Gray{Y: 200})
	path := filepath.Join(t.TempDir(), "frame.tiff")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("failed to save TIFF: %v", err)
	}

	f, err := NewFrameCache().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Format != "tiff" {
		t.Errorf("Format: got %q, want tiff", f.Format)
	}
	if got := f.Pixels.At(2, 5); got != 200 {
		t.Errorf("pixel (5,2): got %v, want 200", got)
	}
}

func TestFrameCache_Load_NonExistent(t *testing.T) {
	cache := NewFrameCache()
	for _, path := range []string{"/nonexistent/frame.png", "/nonexistent/frame.fits", "/nonexistent/frame.csv"} {
		if _, err := cache.Load(path); err == nil {
			t.Errorf("Load should fail for non-existent file %s", path)
		}
	}
}

func TestFrameCache_Load_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := NewFrameCache().Load(path); err == nil {
		t.Error("Load should fail for invalid image data")
	}
}

func TestFrameCache_Load_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.raw")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := NewFrameCache().Load(path); err == nil {
		t.Error("Load should fail for an unknown extension")
	}
}

func TestFrameCache_ClearAndEvict(t *testing.T) {
	cache := NewFrameCache()
	p1 := createTestImage(t, 10, 10, color.Black)
	p2 := createTestImage(t, 12, 12, color.White)

	if _, err := cache.Load(p1); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := cache.Load(p2); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cache.Evict(p1)
	cache.Evict("/nonexistent/path")
	if cache.Len() != 1 {
		t.Errorf("Len after Evict: got %d, want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
}

func TestFrameCache_ConcurrentAccess(t *testing.T) {
	cache := NewFrameCache()
	path := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestRasterToMatrix_ColorLuminance(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{0, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 255, 0, 255})

	m, depth := rasterToMatrix(img)
	if depth != 8 {
		t.Errorf("depth: got %d, want 8", depth)
	}
	if m.At(0, 0) != 0 {
		t.Errorf("black: got %v, want 0", m.At(0, 0))
	}
	// Green carries most of the luminance.
	if g := m.At(0, 1); g < 140 || g > 160 {
		t.Errorf("green luminance: got %.1f, want ~150", g)
	}
}

func TestMatrixFromRows(t *testing.T) {
	m, err := MatrixFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("MatrixFromRows failed: %v", err)
	}
	r, c := m.Dims()
	if r != 2 || c != 3 || m.At(1, 2) != 6 {
		t.Errorf("unexpected matrix %dx%d with (1,2)=%v", r, c, m.At(1, 2))
	}

	tests := []struct {
		name string
		rows [][]float64
	}{
		{"empty", nil},
		{"empty row", [][]float64{{}}},
		{"ragged", [][]float64{{1, 2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MatrixFromRows(tt.rows); err == nil {
				t.Error("MatrixFromRows should fail")
			}
		})
	}
}

func TestLoadFrameInfo(t *testing.T) {
	cache := NewFrameCache()
	path := createGray16Image(t, 20, 10)

	info, err := LoadFrameInfo(cache, path)
	if err != nil {
		t.Fatalf("LoadFrameInfo failed: %v", err)
	}

	if info.Width != 20 || info.Height != 10 {
		t.Errorf("dimensions: got %dx%d, want 20x10", info.Width, info.Height)
	}
	if info.Format != "png" || info.BitDepth != 16 {
		t.Errorf("format: got %s/%d, want png/16", info.Format, info.BitDepth)
	}
	if info.Min != 0 || info.Max != 19009 {
		t.Errorf("range: got [%v, %v], want [0, 19009]", info.Min, info.Max)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
}

func TestLoadFrameInfo_NonExistent(t *testing.T) {
	if _, err := LoadFrameInfo(NewFrameCache(), "/nonexistent/frame.png"); err == nil {
		t.Error("LoadFrameInfo should fail for non-existent file")
	}
}
