package preview

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"sync"
)

// ErrNotRendered is returned by export operations before the first
// successful render has completed. Callers treat it as a no-op: no file
// is produced.
var ErrNotRendered = errors.New("surface has not been rendered yet")

// Surface is the drawable raster target the encoded QR matrix is
// rendered onto. It is owned by a single Controller; only completed
// renders mutate it, and whichever render completes last wins.
type Surface struct {
	mu       sync.RWMutex
	img      *image.RGBA
	rendered bool
}

// NewSurface returns an empty, never-rendered surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Apply replaces the surface contents with img. The source image is
// copied so later encoder reuse cannot alias the surface pixels.
func (s *Surface) Apply(img image.Image) {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	s.mu.Lock()
	s.img = dst
	s.rendered = true
	s.mu.Unlock()
}

// Rendered reports whether the surface has ever received a completed
// render.
func (s *Surface) Rendered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rendered
}

// Bounds returns the current surface dimensions in pixels, or (0, 0)
// before the first render.
func (s *Surface) Bounds() (width, height int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns a copy of the current surface contents, or
// ErrNotRendered before the first render.
func (s *Surface) Image() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.rendered {
		return nil, ErrNotRendered
	}
	dst := image.NewRGBA(s.img.Bounds())
	draw.Draw(dst, dst.Bounds(), s.img, s.img.Bounds().Min, draw.Src)
	return dst, nil
}

// EncodePNG serializes the current surface contents to a PNG byte
// stream. Before the first render it returns ErrNotRendered.
func (s *Surface) EncodePNG() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.rendered {
		return nil, ErrNotRendered
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
