// Package v0 is the wire contract between audiowave and a remote renderer
// service.
//
// The service receives a RenderRequest as JSON on POST /render, writes the
// video to Output.VideoPath on storage shared with the API, and streams its
// progress back as newline-delimited Event objects. The last event is
// either "done" or "error".
package v0

// RenderRequest describes one render.
type RenderRequest struct {
	RunID    string   `json:"run_id"`
	Input    Input    `json:"input"`
	Output   Output   `json:"output"`
	Spectrum Spectrum `json:"spectrum"`
	// Overlay is drawn by the renderer when set. Empty means the video is
	// published bare or composited by the asset store.
	Overlay []Layer `json:"overlay,omitempty"`
}

type Input struct {
	AudioPath           string  `json:"audio_path"`
	BackgroundImagePath string  `json:"background_image_path"`
	DurationSeconds     float64 `json:"duration_seconds,omitempty"`
}

type Output struct {
	VideoPath string `json:"video_path"`
}

// Spectrum sizes are either pixels ("640") or percentages of the
// background ("100%"). Rotation is "up" or "down".
type Spectrum struct {
	Width    string `json:"width"`
	Height   string `json:"height"`
	Rotation string `json:"rotation"`
}

// Layer is one text banner and where to put it.
type Layer struct {
	Text       string  `json:"text"`
	Background string  `json:"background"`
	Color      string  `json:"color"`
	FontFamily string  `json:"font_family"`
	FontSize   int     `json:"font_size"`
	FontWeight string  `json:"font_weight,omitempty"`
	FontStyle  string  `json:"font_style,omitempty"`
	Gravity    string  `json:"gravity"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one line of the response stream.
type Event struct {
	Type       EventType `json:"type"`
	Percent    float64   `json:"percent,omitempty"`
	Message    string    `json:"message,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
}
