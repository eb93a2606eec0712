package cloudinary

import (
	"net/url"
	"strconv"
	"strings"

	"audiowave/internal/models"
)

// Transformation encodes spec as a Cloudinary chained transformation. Each
// banner becomes a text layer and its placement the fl_layer_apply step that
// follows it.
func Transformation(spec models.OverlaySpec) string {
	var parts []string
	for _, l := range spec.Layers() {
		parts = append(parts, textLayer(l.Banner), layerApply(l.Placement))
	}
	return strings.Join(parts, "/")
}

func textLayer(b models.Banner) string {
	var opts []string
	if b.Background != "" {
		opts = append(opts, "b_"+color(b.Background))
	}
	if b.Color != "" {
		opts = append(opts, "co_"+color(b.Color))
	}
	opts = append(opts, "l_text:"+font(b)+":"+escapeText(b.Text))
	return strings.Join(opts, ",")
}

func layerApply(p models.Placement) string {
	opts := []string{"fl_layer_apply"}
	if p.Gravity != "" {
		opts = append(opts, "g_"+strings.ToLower(p.Gravity))
	}
	opts = append(opts,
		"x_"+strconv.FormatFloat(p.X, 'f', -1, 64),
		"y_"+strconv.FormatFloat(p.Y, 'f', -1, 64),
	)
	return strings.Join(opts, ",")
}

// font renders Arial_100_bold_italic. Normal weight and style are implied.
func font(b models.Banner) string {
	parts := []string{strings.ReplaceAll(b.FontFamily, " ", "%20"), strconv.Itoa(b.FontSize)}
	for _, v := range []string{b.FontWeight, b.FontStyle} {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && v != "normal" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "_")
}

// color turns "#1DB954" into "rgb:1DB954"; named colors pass through.
func color(c string) string {
	if strings.HasPrefix(c, "#") {
		return "rgb:" + strings.TrimPrefix(c, "#")
	}
	return c
}

// Commas and slashes are double escaped so Cloudinary does not read them as
// transformation separators.
var textEscaper = strings.NewReplacer("%2C", "%252C", "%2F", "%252F")

func escapeText(s string) string {
	return textEscaper.Replace(url.PathEscape(s))
}
