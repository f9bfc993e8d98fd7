package chart

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Surface ids the dashboard draws onto.
const (
	SurfaceRisk   = "risk"
	SurfaceType   = "type"
	SurfaceWeekly = "weekly"
)

type SurfaceSpec struct {
	ID     string `yaml:"id" json:"id"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

type Palette struct {
	Risk []string `yaml:"risk" json:"risk"`
	Bar  string   `yaml:"bar" json:"bar"`
	Line string   `yaml:"line" json:"line"`
}

type Layout struct {
	Surfaces []SurfaceSpec `yaml:"surfaces" json:"surfaces"`
	Palette  Palette       `yaml:"palette" json:"palette"`
}

func DefaultLayout() Layout {
	return Layout{
		Surfaces: []SurfaceSpec{
			{ID: SurfaceRisk, Width: 220, Height: 220},
			{ID: SurfaceType, Width: 360, Height: 220},
			{ID: SurfaceWeekly, Width: 360, Height: 220},
		},
		Palette: Palette{
			Risk: []string{"#2e7d32", "#f9a825", "#c62828"},
			Bar:  DefaultBarColor,
			Line: DefaultLineColor,
		},
	}
}

// LoadLayout reads a YAML layout. An empty path selects DefaultLayout; an
// unreadable file returns DefaultLayout together with the error.
func LoadLayout(path string) (Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultLayout(), err
	}
	return ParseLayout(content)
}

func ParseLayout(content []byte) (Layout, error) {
	var layout Layout
	if err := yaml.Unmarshal(content, &layout); err != nil {
		return Layout{}, fmt.Errorf("parsing chart layout: %w", err)
	}
	if len(layout.Surfaces) == 0 {
		return Layout{}, fmt.Errorf("chart layout has no surfaces")
	}
	seen := make(map[string]bool, len(layout.Surfaces))
	for _, s := range layout.Surfaces {
		if s.ID == "" || s.Width <= 0 || s.Height <= 0 {
			return Layout{}, fmt.Errorf("chart layout: invalid surface %+v", s)
		}
		if seen[s.ID] {
			return Layout{}, fmt.Errorf("chart layout: duplicate surface %q", s.ID)
		}
		seen[s.ID] = true
	}

	defaults := DefaultLayout().Palette
	if len(layout.Palette.Risk) == 0 {
		layout.Palette.Risk = defaults.Risk
	}
	if layout.Palette.Bar == "" {
		layout.Palette.Bar = defaults.Bar
	}
	if layout.Palette.Line == "" {
		layout.Palette.Line = defaults.Line
	}
	return layout, nil
}

func (p Palette) riskColors() []color.Color {
	out := make([]color.Color, len(p.Risk))
	for i, hex := range p.Risk {
		out[i] = ParseColor(hex)
	}
	return out
}
