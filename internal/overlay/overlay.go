// Package overlay builds the label banners drawn over a waveform video.
//
// Build is pure: the same title and artist always produce the same spec.
// Colors and fonts live in Style presets so a restyle never touches the
// layout logic.
package overlay

import (
	"strings"

	"audiowave/internal/models"
)

// Fallback texts used when a tag is missing.
const (
	DefaultTitle  = "The Song Name"
	DefaultArtist = "Artist"
)

// GravityNorthWest anchors placements at the top-left corner.
const GravityNorthWest = "north_west"

// Style is a named set of banner colors and fonts.
type Style struct {
	Name             string
	Background       string
	Color            string
	FontFamily       string
	FontWeight       string
	FontStyle        string
	TitleFontSize    int
	SubtitleFontSize int
}

// PresetClassic is green banners with near-black italic bold Arial.
var PresetClassic = Style{
	Name:             "classic",
	Background:       "#1DB954",
	Color:            "#191414",
	FontFamily:       "Arial",
	FontWeight:       "bold",
	FontStyle:        "italic",
	TitleFontSize:    100,
	SubtitleFontSize: 80,
}

// PresetMono is white text on black banners.
var PresetMono = Style{
	Name:             "mono",
	Background:       "#000000",
	Color:            "#FFFFFF",
	FontFamily:       "Helvetica",
	FontWeight:       "bold",
	TitleFontSize:    96,
	SubtitleFontSize: 72,
}

var presets = map[string]Style{
	PresetClassic.Name: PresetClassic,
	PresetMono.Name:    PresetMono,
}

// Preset looks a style up by name.
func Preset(name string) (Style, bool) {
	s, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Layout places the title band and the bands stacked below it.
type Layout struct {
	Gravity string
	// InsetX and TitleY position the first banner, as frame fractions.
	InsetX float64
	TitleY float64
	// Step is the vertical distance between consecutive banners.
	Step float64
}

// DefaultLayout puts the title 5% from the left and 6% from the top, with
// the artist 14 points lower.
var DefaultLayout = Layout{
	Gravity: GravityNorthWest,
	InsetX:  0.05,
	TitleY:  0.06,
	Step:    0.14,
}

// Builder turns track tags into an overlay spec.
type Builder struct {
	Style  Style
	Layout Layout
}

// NewBuilder returns a Builder using the classic preset and default layout.
func NewBuilder() Builder {
	return Builder{Style: PresetClassic, Layout: DefaultLayout}
}

// Build returns two banner/placement pairs, title first, then artist.
// Unset tags fall back to DefaultTitle and DefaultArtist.
func (b Builder) Build(title, artist *string) models.OverlaySpec {
	return b.BuildTexts(orDefault(title, DefaultTitle), orDefault(artist, DefaultArtist))
}

// BuildTexts stacks one banner per text. The first uses the title font size,
// the rest the subtitle size.
func (b Builder) BuildTexts(texts ...string) models.OverlaySpec {
	layers := make([]models.Layer, 0, len(texts))
	for i, text := range texts {
		size := b.Style.SubtitleFontSize
		if i == 0 {
			size = b.Style.TitleFontSize
		}
		layers = append(layers, models.Layer{
			Banner: b.banner(text, size),
			Placement: models.Placement{
				Gravity: b.Layout.Gravity,
				X:       b.Layout.InsetX,
				Y:       round2(b.Layout.TitleY + float64(i)*b.Layout.Step),
			},
		})
	}
	return BuildLayers(layers)
}

// BuildLayers flattens layers into alternating banner and placement steps.
func BuildLayers(layers []models.Layer) models.OverlaySpec {
	steps := make([]models.OverlayStep, 0, len(layers)*2)
	for _, l := range layers {
		banner, placement := l.Banner, l.Placement
		steps = append(steps,
			models.OverlayStep{Kind: models.StepBanner, Banner: &banner},
			models.OverlayStep{Kind: models.StepPlacement, Placement: &placement},
		)
	}
	return models.OverlaySpec{Steps: steps}
}

func (b Builder) banner(text string, size int) models.Banner {
	return models.Banner{
		Background: b.Style.Background,
		Color:      b.Style.Color,
		FontFamily: b.Style.FontFamily,
		FontSize:   size,
		FontWeight: b.Style.FontWeight,
		FontStyle:  b.Style.FontStyle,
		Text:       text,
	}
}

func orDefault(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}

// round2 keeps placements at two decimals so 0.06+0.14 reads as 0.2.
func round2(f float64) float64 {
	if f < 0 {
		return -round2(-f)
	}
	return float64(int64(f*100+0.5)) / 100
}
