package chart

import (
	"image"
	"sync"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/observability/metrics"
)

// Board owns the dashboard's mounted surfaces and redraws them from
// datasets. Each surface remembers the dataset version it last showed, so
// repeated Render calls for the same version cost nothing.
type Board struct {
	mu       sync.Mutex
	surfaces map[string]*Surface
	drawn    map[string]uint64
	palette  Palette
}

func NewBoard(layout Layout) *Board {
	b := &Board{
		surfaces: make(map[string]*Surface),
		drawn:    make(map[string]uint64),
		palette:  layout.Palette,
	}
	for _, s := range layout.Surfaces {
		b.Mount(s.ID, s.Width, s.Height)
	}
	return b
}

// Mount attaches a blank surface; it is drawn on the next Render.
func (b *Board) Mount(id string, width, height int) *Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := NewSurface(id, width, height)
	b.surfaces[id] = s
	delete(b.drawn, id)
	return s
}

func (b *Board) Unmount(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.surfaces, id)
	delete(b.drawn, id)
}

func (b *Board) Surface(id string) (*Surface, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.surfaces[id]
	return s, ok
}

// Render draws ds onto every mounted chart surface that has not yet shown
// version or a newer one. Surfaces that are not mounted are skipped.
func (b *Board) Render(version uint64, ds analytics.Dataset) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range []string{SurfaceRisk, SurfaceType, SurfaceWeekly} {
		s, ok := b.surfaces[id]
		if !ok {
			metrics.ObserveChartSkipped()
			continue
		}
		if drawn, seen := b.drawn[id]; seen && drawn >= version {
			metrics.ObserveChartSkipped()
			continue
		}
		if err := b.paint(s, ds); err != nil {
			logger.Component("chart-board").WithError(err).WithField("surface", id).Error("failed to draw chart")
			continue
		}
		b.drawn[id] = version
		metrics.ObserveChartDrawn()
	}
}

// Draw unconditionally redraws every mounted chart surface.
func (b *Board) Draw(ds analytics.Dataset) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range []string{SurfaceRisk, SurfaceType, SurfaceWeekly} {
		s, ok := b.surfaces[id]
		if !ok {
			continue
		}
		if err := b.paint(s, ds); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) paint(s *Surface, ds analytics.Dataset) error {
	return s.paint(func(img *image.RGBA) error {
		switch s.ID() {
		case SurfaceRisk:
			return DrawDonut(img, ds.RiskDistribution.Values(), b.palette.riskColors())
		case SurfaceType:
			_, values := ds.EngagementSeries()
			return DrawBars(img, values, ParseColor(b.palette.Bar))
		case SurfaceWeekly:
			_, values := ds.WeeklySeries()
			return DrawLine(img, values, ParseColor(b.palette.Line))
		}
		return nil
	})
}
