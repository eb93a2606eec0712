// Package ffprobe reads container metadata from audio and video files by
// running ffprobe and decoding its JSON report.
package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result is the decoded ffprobe report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one stream in the container.
type Stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	Duration   string            `json:"duration"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Tags       map[string]string `json:"tags"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// Prober runs ffprobe. The zero value uses "ffprobe" from PATH.
type Prober struct {
	Binary string
}

// Probe inspects path and returns the parsed report.
func (p Prober) Probe(ctx context.Context, path string) (Result, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Result{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return Parse(output)
}

// Parse decodes a raw ffprobe JSON report.
func Parse(raw []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// DurationSeconds returns the container duration, falling back to the
// longest audio stream. ok is false when neither is usable.
func (r Result) DurationSeconds() (float64, bool) {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d, true
	}
	best := 0.0
	for _, s := range r.Streams {
		if !strings.EqualFold(s.CodecType, "audio") {
			continue
		}
		if d := parseFloat(s.Duration); d > best {
			best = d
		}
	}
	return best, best > 0
}

// Tag returns the first non-blank value for key, looking at the container
// tags and then at each stream. Keys match case-insensitively since
// containers disagree on "title" versus "TITLE".
func (r Result) Tag(key string) (string, bool) {
	if v, ok := lookupTag(r.Format.Tags, key); ok {
		return v, true
	}
	for _, s := range r.Streams {
		if v, ok := lookupTag(s.Tags, key); ok {
			return v, true
		}
	}
	return "", false
}

// AudioStreamCount returns the number of audio streams.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			count++
		}
	}
	return count
}

func lookupTag(tags map[string]string, key string) (string, bool) {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}
