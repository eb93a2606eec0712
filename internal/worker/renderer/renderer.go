// Package renderer turns an audio file and a background image into a
// waveform video.
//
// Two backends implement Renderer: FFmpeg drives a local ffmpeg binary and
// HTTPClient delegates to a remote renderer service. Start wraps either one
// in a Handle that exposes progress as a channel.
package renderer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
)

// SpectrumPreset sizes and orients the drawn spectrum. Width and Height are
// pixels ("640") or percentages of the background ("100%").
type SpectrumPreset struct {
	Width    string
	Height   string
	Rotation string
}

// Spectrum rotations.
const (
	RotationUp   = "up"
	RotationDown = "down"
)

// DefaultSpectrum covers the whole background with bars rising upward.
var DefaultSpectrum = SpectrumPreset{Width: "100%", Height: "100%", Rotation: RotationUp}

// Job describes one render.
type Job struct {
	RunID               string
	AudioPath           string
	BackgroundImagePath string
	// OutputPath must be unique per run.
	OutputPath string
	Spectrum   SpectrumPreset
	// Overlay is burned into the video when non-empty.
	Overlay models.OverlaySpec
	// DurationHint, when known, lets progress be computed from elapsed
	// media time.
	DurationHint *float64
}

// ProgressFunc receives completion percentages in [0, 100].
type ProgressFunc func(percent float64)

// Renderer renders a Job and returns the written output path. A renderer
// that reports failure, or succeeds without writing OutputPath, returns an
// error coded errors.CodeRender.
type Renderer interface {
	Name() string
	Render(ctx context.Context, job Job, onProgress ProgressFunc) (string, error)
}

// Validate checks the job fields every backend needs.
func (j Job) Validate() error {
	switch {
	case strings.TrimSpace(j.AudioPath) == "":
		return errors.Validation("render job: audio path is required")
	case strings.TrimSpace(j.BackgroundImagePath) == "":
		return errors.Validation("render job: background image path is required")
	case strings.TrimSpace(j.OutputPath) == "":
		return errors.Validation("render job: output path is required")
	}
	if _, err := j.spectrum().dimension(j.spectrum().Width); err != nil {
		return errors.Validation(err.Error())
	}
	if _, err := j.spectrum().dimension(j.spectrum().Height); err != nil {
		return errors.Validation(err.Error())
	}
	switch j.spectrum().Rotation {
	case RotationUp, RotationDown:
	default:
		return errors.Validation(fmt.Sprintf("render job: unsupported spectrum rotation %q", j.Spectrum.Rotation))
	}
	if err := j.Overlay.Validate(); err != nil {
		return errors.Validation("render job: " + err.Error())
	}
	return nil
}

func (j Job) spectrum() SpectrumPreset {
	s := j.Spectrum
	if s.Width == "" {
		s.Width = DefaultSpectrum.Width
	}
	if s.Height == "" {
		s.Height = DefaultSpectrum.Height
	}
	if s.Rotation == "" {
		s.Rotation = DefaultSpectrum.Rotation
	}
	return s
}

// dimension is a parsed spectrum size.
type dimension struct {
	fraction float64 // set for percentages
	pixels   int     // set for absolute sizes
}

func (SpectrumPreset) dimension(v string) (dimension, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil || pct <= 0 || pct > 100 {
			return dimension{}, fmt.Errorf("render job: invalid spectrum size %q", v)
		}
		return dimension{fraction: pct / 100}, nil
	}
	px, err := strconv.Atoi(v)
	if err != nil || px <= 0 {
		return dimension{}, fmt.Errorf("render job: invalid spectrum size %q", v)
	}
	return dimension{pixels: px}, nil
}

// verifyOutput fails with a render error unless path is a non-empty file.
func verifyOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Render(err, "renderer reported success but wrote no output")
	}
	if info.IsDir() || info.Size() == 0 {
		return errors.Render(nil, "renderer reported success but output is empty").WithField("output_path", path)
	}
	return nil
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
