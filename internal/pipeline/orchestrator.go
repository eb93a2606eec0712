// Package pipeline runs one audio submission through metadata extraction,
// rendering and publishing.
package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"audiowave/internal/models"
	"audiowave/internal/overlay"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/platform/metrics"
	"audiowave/internal/ports"
	"audiowave/internal/progress"
	"audiowave/internal/publisher"
	"audiowave/internal/worker/renderer"
)

// DefaultBackgroundImage is looped behind the spectrum when no other image
// is configured.
const DefaultBackgroundImage = "public/images/base-background.png"

// Compositing chooses where the title/artist overlay is drawn.
type Compositing string

const (
	// CompositeAuto uses the store when it can composite, else the renderer.
	CompositeAuto Compositing = "auto"
	// CompositeStore sends the overlay to the store as an upload
	// transformation.
	CompositeStore Compositing = "store"
	// CompositeRender burns the overlay into the video while rendering.
	CompositeRender Compositing = "render"
)

// MetadataExtractor reads tags from an audio file. It never fails.
type MetadataExtractor interface {
	Extract(ctx context.Context, path string) models.TrackMetadata
}

// Publisher uploads a rendered video.
type Publisher interface {
	Capabilities() ports.Capabilities
	Upload(ctx context.Context, req publisher.UploadRequest) (models.PublishedResource, error)
}

type Deps struct {
	Extractor       MetadataExtractor
	Renderer        renderer.Renderer
	Publisher       Publisher
	Overlay         overlay.Builder
	Progress        progress.Sink
	Metrics         *metrics.Metrics
	Log             *logger.Logger
	VideosDir       string
	BackgroundImage string
	Spectrum        renderer.SpectrumPreset
	Compositing     Compositing
	// Folder overrides the publisher's folder for published videos.
	Folder string
}

type Orchestrator struct {
	extractor       MetadataExtractor
	renderer        renderer.Renderer
	publisher       Publisher
	overlay         overlay.Builder
	progress        progress.Sink
	metrics         *metrics.Metrics
	log             *logger.Logger
	videosDir       string
	backgroundImage string
	spectrum        renderer.SpectrumPreset
	compositing     Compositing
	folder          string
}

func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	o := &Orchestrator{
		extractor:       d.Extractor,
		renderer:        d.Renderer,
		publisher:       d.Publisher,
		overlay:         d.Overlay,
		progress:        d.Progress,
		metrics:         d.Metrics,
		log:             log.WithComponent("pipeline"),
		videosDir:       d.VideosDir,
		backgroundImage: d.BackgroundImage,
		spectrum:        d.Spectrum,
		compositing:     d.Compositing,
		folder:          d.Folder,
	}
	if o.overlay.Style.FontFamily == "" {
		o.overlay = overlay.NewBuilder()
	}
	if o.backgroundImage == "" {
		o.backgroundImage = DefaultBackgroundImage
	}
	if o.spectrum == (renderer.SpectrumPreset{}) {
		o.spectrum = renderer.DefaultSpectrum
	}
	if o.compositing == "" {
		o.compositing = CompositeAuto
	}
	if o.progress == nil {
		o.progress = progress.NewLogSink(log)
	}
	return o
}

// Publish renders sub and uploads the result. The rendered file is removed
// on every exit path once the render has been started; sub.SourcePath is
// left for the caller.
func (o *Orchestrator) Publish(ctx context.Context, sub models.AudioSubmission) (res models.PublishedResource, err error) {
	runID := logger.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.ContextWithRunID(ctx, runID)
	}
	log := o.log.FromContext(ctx)
	defer func() { o.metrics.ObserveRun(err) }()

	if strings.TrimSpace(sub.SourcePath) == "" {
		return res, errors.Validation("submission has no audio file")
	}

	storeSide, err := o.storeSideOverlay()
	if err != nil {
		return res, err
	}

	// 1. Metadata
	meta := o.extractor.Extract(ctx, sub.SourcePath)
	log.Debug("metadata extracted",
		"title_found", meta.Title != nil,
		"artist_found", meta.Artist != nil,
	)

	// 2. Overlay
	spec := o.overlay.Build(meta.Title, meta.Artist)

	// 3. Render
	if err := os.MkdirAll(o.videosDir, 0o755); err != nil {
		return res, errors.Wrap(err, "pipeline.render", "failed to create videos directory")
	}
	outputPath := filepath.Join(o.videosDir, outputFileName(sub.OriginalFileName))
	defer o.cleanup(ctx, outputPath)

	job := renderer.Job{
		RunID:               runID,
		AudioPath:           sub.SourcePath,
		BackgroundImagePath: o.backgroundImage,
		OutputPath:          outputPath,
		Spectrum:            o.spectrum,
		DurationHint:        meta.DurationSeconds,
	}
	if !storeSide {
		job.Overlay = spec
	}

	log.Info("starting render", "renderer", o.renderer.Name(), "store_side_overlay", storeSide)
	rendered, err := o.render(ctx, job)
	if err != nil {
		o.log.LogError(ctx, "render failed", err)
		return res, err
	}
	if rendered != outputPath {
		// A remote renderer may write somewhere else on shared storage.
		defer o.cleanup(ctx, rendered)
	}

	// 4. Publish
	req := publisher.UploadRequest{
		LocalPath:     rendered,
		PublicID:      PublicID(sub.OriginalFileName),
		Folder:        o.folder,
		PlaceInFolder: true,
	}
	if storeSide {
		req.Overlay = spec
	}
	res, err = o.publisher.Upload(ctx, req)
	if err != nil {
		o.log.LogError(ctx, "upload failed", err)
		return models.PublishedResource{}, err
	}

	log.Info("run published", "public_id", res.PublicID)
	return res, nil
}

// render runs the job and forwards its progress to the sink.
func (o *Orchestrator) render(ctx context.Context, job renderer.Job) (string, error) {
	done := o.metrics.RenderStarted(o.renderer.Name())
	defer done()

	h := renderer.Start(ctx, o.renderer, job)
	for p := range h.Progress() {
		if err := o.progress.Report(ctx, job.RunID, p); err != nil {
			o.log.FromContext(ctx).Debug("progress report failed", "error", err.Error())
		}
	}
	return h.Wait()
}

func (o *Orchestrator) storeSideOverlay() (bool, error) {
	caps := o.publisher.Capabilities()
	switch o.compositing {
	case CompositeAuto:
		return caps.Overlays, nil
	case CompositeStore:
		if !caps.Overlays {
			return false, errors.New(errors.CodeUnsupported, "asset store cannot composite overlays")
		}
		return true, nil
	case CompositeRender:
		return false, nil
	default:
		return false, errors.Newf(errors.CodeValidation, "unknown compositing mode %q", o.compositing)
	}
}

// cleanup removes the rendered video. A failure is logged and counted but
// never changes the run's result.
func (o *Orchestrator) cleanup(ctx context.Context, path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	o.metrics.IncCleanupFailures()
	o.log.LogError(ctx, "temp video cleanup failed", err, "path", path)
}
