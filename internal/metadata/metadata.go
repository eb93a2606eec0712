// Package metadata reads the title, artist and duration of an audio file.
//
// Extraction never fails: anything unreadable is left unset so the overlay
// builder can apply its defaults.
package metadata

import (
	"context"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"audiowave/internal/media/ffprobe"
	"audiowave/internal/models"
	"audiowave/internal/pkg/logger"
)

// Tags are the raw strings a TagReader found. Blank means absent.
type Tags struct {
	Title  string
	Artist string
}

// TagReader reads embedded tags from an audio file.
type TagReader interface {
	ReadTags(path string) (Tags, error)
}

// Prober inspects a media container.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// FileTagReader reads ID3, MP4, FLAC and Ogg tags with dhowden/tag.
type FileTagReader struct{}

// ReadTags opens path and decodes its tag block.
func (FileTagReader) ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, err
	}
	return Tags{Title: m.Title(), Artist: m.Artist()}, nil
}

// Extractor combines a tag reader with an optional prober.
type Extractor struct {
	tags   TagReader
	prober Prober
	log    *logger.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTagReader replaces the default dhowden/tag reader.
func WithTagReader(r TagReader) Option {
	return func(e *Extractor) { e.tags = r }
}

// WithProber enables duration lookup and container-tag fallback.
func WithProber(p Prober) Option {
	return func(e *Extractor) { e.prober = p }
}

// NewExtractor returns an Extractor reading tags from the file itself.
func NewExtractor(log *logger.Logger, opts ...Option) *Extractor {
	if log == nil {
		log = logger.Discard()
	}
	e := &Extractor{tags: FileTagReader{}, log: log.WithComponent("metadata")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns whatever metadata can be read from path.
func (e *Extractor) Extract(ctx context.Context, path string) models.TrackMetadata {
	log := e.log.FromContext(ctx)
	var md models.TrackMetadata

	if e.tags != nil {
		t, err := e.tags.ReadTags(path)
		if err != nil {
			log.Debug("metadata read failed", "path", path, "reader", "tags", "error", err.Error())
		}
		md.Title = nonBlank(t.Title)
		md.Artist = nonBlank(t.Artist)
	}

	if e.prober == nil {
		return md
	}

	res, err := e.prober.Probe(ctx, path)
	if err != nil {
		log.Debug("metadata read failed", "path", path, "reader", "ffprobe", "error", err.Error())
		return md
	}
	if d, ok := res.DurationSeconds(); ok {
		md.DurationSeconds = &d
	}
	if md.Title == nil {
		if v, ok := res.Tag("title"); ok {
			md.Title = nonBlank(v)
		}
	}
	if md.Artist == nil {
		if v, ok := res.Tag("artist"); ok {
			md.Artist = nonBlank(v)
		}
	}
	return md
}

func nonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
