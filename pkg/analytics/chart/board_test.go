package chart

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset(low, medium, high int, bars ...float64) analytics.Dataset {
	ds := analytics.EmptyDataset()
	ds.RiskDistribution = analytics.RiskDistribution{Low: low, Medium: medium, High: high}
	for _, v := range bars {
		ds.EngagementByType = append(ds.EngagementByType, analytics.LabelValue{Label: "x", Value: v})
		ds.WeeklyTrend = append(ds.WeeklyTrend, analytics.DatePoint{Date: "w", Value: v})
	}
	return ds
}

func TestBoardSkipsVersionsAlreadyDrawn(t *testing.T) {
	board := NewBoard(DefaultLayout())
	risk, ok := board.Surface(SurfaceRisk)
	require.True(t, ok)

	board.Render(1, dataset(80, 28, 12, 30, 15))
	first := risk.Snapshot()

	board.Render(1, dataset(0, 0, 0))
	assert.Equal(t, first.Pix, risk.Snapshot().Pix, "same version is not redrawn")

	board.Render(2, dataset(0, 0, 0))
	assertTransparent(t, risk.Snapshot())
}

func TestBoardIgnoresOlderVersions(t *testing.T) {
	board := NewBoard(DefaultLayout())
	weekly, _ := board.Surface(SurfaceWeekly)

	board.Render(3, dataset(1, 1, 1))
	board.Render(2, dataset(1, 1, 1, 10, 14))
	assertTransparent(t, weekly.Snapshot())
}

func TestBoardSkipsUnmountedSurfaces(t *testing.T) {
	board := NewBoard(DefaultLayout())
	board.Unmount(SurfaceWeekly)

	assert.NotPanics(t, func() { board.Render(1, dataset(1, 2, 3, 4, 5)) })
	_, ok := board.Surface(SurfaceWeekly)
	assert.False(t, ok)

	weekly := board.Mount(SurfaceWeekly, 200, 100)
	board.Render(1, dataset(1, 2, 3, 4, 5))
	img := weekly.Snapshot()
	drawn := false
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			drawn = true
			break
		}
	}
	assert.True(t, drawn, "newly mounted surface catches up")
}

func TestSurfaceWritePNG(t *testing.T) {
	board := NewBoard(DefaultLayout())
	require.NoError(t, board.Draw(dataset(80, 28, 12, 30, 15)))

	s, _ := board.Surface(SurfaceType)
	var buf bytes.Buffer
	require.NoError(t, s.WritePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.Bounds(), img.Bounds())
}

func TestParseLayout(t *testing.T) {
	layout, err := ParseLayout([]byte(`
surfaces:
  - id: risk
    width: 100
    height: 100
palette:
  bar: "#000000"
`))
	require.NoError(t, err)
	assert.Equal(t, []SurfaceSpec{{ID: "risk", Width: 100, Height: 100}}, layout.Surfaces)
	assert.Equal(t, "#000000", layout.Palette.Bar)
	assert.Equal(t, DefaultLayout().Palette.Risk, layout.Palette.Risk)
}

func TestParseLayoutRejectsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":     `surfaces: []`,
		"size":      "surfaces:\n  - id: risk\n    width: 0\n    height: 10\n",
		"duplicate": "surfaces:\n  - {id: risk, width: 1, height: 1}\n  - {id: risk, width: 1, height: 1}\n",
		"yaml":      "surfaces: [",
	} {
		_, err := ParseLayout([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadLayout(t *testing.T) {
	layout, err := LoadLayout("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLayout(), layout)

	layout, err = LoadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultLayout(), layout)

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("surfaces:\n  - {id: weekly, width: 50, height: 40}\n"), 0o644))
	layout, err = LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, "weekly", layout.Surfaces[0].ID)
}
