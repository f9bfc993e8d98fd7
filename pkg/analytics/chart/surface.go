package chart

import (
	"image"
	"image/png"
	"io"
	"sync"
)

// Surface is a fixed-size raster a chart is drawn onto.
type Surface struct {
	id  string
	mu  sync.RWMutex
	img *image.RGBA
}

func NewSurface(id string, width, height int) *Surface {
	return &Surface{id: id, img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *Surface) ID() string { return s.id }

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Snapshot returns a copy of the current pixels.
func (s *Surface) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}

func (s *Surface) WritePNG(w io.Writer) error {
	return png.Encode(w, s.Snapshot())
}

func (s *Surface) paint(fn func(img *image.RGBA) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.img)
}
