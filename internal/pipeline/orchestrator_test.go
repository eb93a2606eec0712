package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"audiowave/internal/adapters/assetstore/localfs"
	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/platform/metrics"
	"audiowave/internal/ports"
	"audiowave/internal/publisher"
	"audiowave/internal/worker/renderer"
)

type fakeExtractor struct {
	meta models.TrackMetadata
}

func (f fakeExtractor) Extract(context.Context, string) models.TrackMetadata { return f.meta }

// fakeRenderer writes a small file at the job's output path, or fails.
type fakeRenderer struct {
	mu       sync.Mutex
	jobs     []renderer.Job
	fail     bool
	asDir    bool
	progress []float64
	// elsewhere, when set, is the directory the video is written to instead
	// of the job's output path.
	elsewhere string
}

func (f *fakeRenderer) Name() string { return "fake" }

func (f *fakeRenderer) Render(_ context.Context, job renderer.Job, onProgress renderer.ProgressFunc) (string, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()

	for _, p := range f.progress {
		onProgress(p)
	}
	if f.asDir {
		if err := os.MkdirAll(filepath.Join(job.OutputPath, "keep"), 0o755); err != nil {
			return "", err
		}
		return job.OutputPath, nil
	}
	out := job.OutputPath
	if f.elsewhere != "" {
		out = filepath.Join(f.elsewhere, "service-out.mp4")
	}
	if err := os.WriteFile(out, []byte("partial"), 0o644); err != nil {
		return "", err
	}
	if f.fail {
		return "", errors.Render(nil, "ffmpeg exited with status 1")
	}
	return out, nil
}

// fakeStore is an overlay-capable store that records uploads.
type fakeStore struct {
	mu        sync.Mutex
	overlays  bool
	uploads   []ports.UploadInput
	sawFile   []bool
	uploadErr error
}

func (f *fakeStore) Provider() string { return "fake" }

func (f *fakeStore) Capabilities() ports.Capabilities { return ports.Capabilities{Overlays: f.overlays} }

func (f *fakeStore) Upload(_ context.Context, in ports.UploadInput) (models.PublishedResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, statErr := os.Stat(in.LocalPath)
	f.uploads = append(f.uploads, in)
	f.sawFile = append(f.sawFile, statErr == nil)
	if f.uploadErr != nil {
		return models.PublishedResource{}, f.uploadErr
	}
	return models.PublishedResource{PublicID: in.PublicID, SecureURL: "https://cdn.example/" + in.PublicID, ResourceType: models.ResourceTypeVideo}, nil
}

func (f *fakeStore) Get(context.Context, string) (models.PublishedResource, error) {
	return models.PublishedResource{}, errors.NotFound("video", "")
}

func (f *fakeStore) List(context.Context, string) ([]models.PublishedResource, error) { return nil, nil }

func (f *fakeStore) Delete(context.Context, []string) (models.DeleteResult, error) {
	return models.DeleteResult{}, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type recordingSink struct {
	mu  sync.Mutex
	got []float64
}

func (s *recordingSink) Report(_ context.Context, _ string, p float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, p)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	renderer *fakeRenderer
	store    *fakeStore
	sink     *recordingSink
	metrics  *metrics.Metrics
	videos   string
	audio    string
}

func newFixture(t *testing.T, meta models.TrackMetadata, compositing Compositing) *fixture {
	t.Helper()
	f := &fixture{
		renderer: &fakeRenderer{},
		store:    &fakeStore{overlays: true},
		sink:     &recordingSink{},
		metrics:  metrics.New(),
		videos:   filepath.Join(t.TempDir(), "videos"),
		audio:    filepath.Join(t.TempDir(), "upload.tmp"),
	}
	if err := os.WriteFile(f.audio, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.orch = New(Deps{
		Extractor:   fakeExtractor{meta: meta},
		Renderer:    f.renderer,
		Publisher:   publisher.New(f.store),
		Progress:    f.sink,
		Metrics:     f.metrics,
		Log:         logger.Discard(),
		VideosDir:   f.videos,
		Compositing: compositing,
	})
	return f
}

func (f *fixture) submission(name string) models.AudioSubmission {
	return models.AudioSubmission{SourcePath: f.audio, OriginalFileName: name}
}

func assertNoVideos(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected videos dir to be empty, found %d entries", len(entries))
	}
}

func bannerTexts(spec models.OverlaySpec) []string {
	var out []string
	for _, l := range spec.Layers() {
		out = append(out, l.Banner.Text)
	}
	return out
}

func TestPublishEndToEnd(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{
		Title:  models.StringPtr("Test"),
		Artist: models.StringPtr("Band"),
	}, CompositeAuto)

	res, err := f.orch.Publish(context.Background(), f.submission("song.mp3"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.HasPrefix(res.PublicID, publisher.DefaultFolder) || res.PublicID != "audio-waveform-videos/song" {
		t.Fatalf("unexpected public id %q", res.PublicID)
	}

	if len(f.store.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(f.store.uploads))
	}
	up := f.store.uploads[0]
	if got := bannerTexts(up.Overlay); len(got) != 2 || got[0] != "Test" || got[1] != "Band" {
		t.Fatalf("unexpected banners %v", got)
	}
	if !f.store.sawFile[0] {
		t.Fatal("rendered file should exist while uploading")
	}

	job := f.renderer.jobs[0]
	if !job.Overlay.Empty() {
		t.Fatal("store-side overlay must not be burned in")
	}
	if job.BackgroundImagePath != DefaultBackgroundImage || job.Spectrum != renderer.DefaultSpectrum {
		t.Fatalf("unexpected job defaults %+v", job)
	}
	if job.AudioPath != f.audio {
		t.Fatalf("unexpected audio path %q", job.AudioPath)
	}
	assertNoVideos(t, f.videos)
}

func TestPublishDefaultsMissingTags(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)

	if _, err := f.orch.Publish(context.Background(), f.submission("x.wav")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := bannerTexts(f.store.uploads[0].Overlay); got[0] != "The Song Name" || got[1] != "Artist" {
		t.Fatalf("unexpected banners %v", got)
	}
}

func TestPublishRenderSideWhenStoreCannotComposite(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{Title: models.StringPtr("Test")}, CompositeAuto)
	f.orch.publisher = publisher.New(localfs.New(t.TempDir(), "/media"))

	res, err := f.orch.Publish(context.Background(), f.submission("song.mp3"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := bannerTexts(f.renderer.jobs[0].Overlay); len(got) != 2 || got[0] != "Test" {
		t.Fatalf("expected overlay burned in, got %v", got)
	}
	if res.PublicID != "audio-waveform-videos/song" {
		t.Fatalf("unexpected public id %q", res.PublicID)
	}
	assertNoVideos(t, f.videos)
}

func TestPublishCompositingModes(t *testing.T) {
	t.Run("render forced", func(t *testing.T) {
		f := newFixture(t, models.TrackMetadata{}, CompositeRender)
		if _, err := f.orch.Publish(context.Background(), f.submission("a.mp3")); err != nil {
			t.Fatal(err)
		}
		if f.renderer.jobs[0].Overlay.Empty() || !f.store.uploads[0].Overlay.Empty() {
			t.Fatal("overlay should be rendered, not sent to the store")
		}
	})

	t.Run("store forced without capability", func(t *testing.T) {
		f := newFixture(t, models.TrackMetadata{}, CompositeStore)
		f.store.overlays = false
		_, err := f.orch.Publish(context.Background(), f.submission("a.mp3"))
		if !errors.IsCode(err, errors.CodeUnsupported) {
			t.Fatalf("expected unsupported, got %v", err)
		}
		if len(f.renderer.jobs) != 0 {
			t.Fatal("renderer should not run")
		}
	})
}

func TestPublishRenderFailureSkipsUpload(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
	f.renderer.fail = true

	_, err := f.orch.Publish(context.Background(), f.submission("song.mp3"))
	if !errors.IsRender(err) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if len(f.store.uploads) != 0 {
		t.Fatal("upload must not run after a failed render")
	}
	assertNoVideos(t, f.videos)
}

func TestPublishUploadFailureStillCleansUp(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
	boom := stderrors.New("quota exceeded")
	f.store.uploadErr = boom

	_, err := f.orch.Publish(context.Background(), f.submission("song.mp3"))
	if !errors.IsUpload(err) || !stderrors.Is(err, boom) {
		t.Fatalf("expected upload failure wrapping cause, got %v", err)
	}
	assertNoVideos(t, f.videos)
}

func TestPublishCleanupFailureKeepsResult(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
	f.renderer.asDir = true

	res, err := f.orch.Publish(context.Background(), f.submission("song.mp3"))
	if err != nil {
		t.Fatalf("cleanup failure must not fail the run: %v", err)
	}
	if res.PublicID == "" {
		t.Fatal("expected a published resource")
	}
}

func TestPublishForwardsProgress(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
	f.renderer.progress = []float64{-5, 10, 5, 50, 150}

	if _, err := f.orch.Publish(context.Background(), f.submission("song.mp3")); err != nil {
		t.Fatal(err)
	}
	got := f.sink.got
	if len(got) == 0 {
		t.Fatal("expected progress updates")
	}
	for i, p := range got {
		if p < 0 || p > 100 {
			t.Fatalf("progress %v out of range", p)
		}
		if i > 0 && p < got[i-1] {
			t.Fatalf("progress decreased: %v", got)
		}
	}
}

func TestPublishConcurrentRunsUseDistinctPaths(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Publish(context.Background(), f.submission("same name.mp3"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	seen := map[string]bool{}
	for _, j := range f.renderer.jobs {
		if seen[j.OutputPath] {
			t.Fatalf("output path reused: %s", j.OutputPath)
		}
		seen[j.OutputPath] = true
		if !strings.HasPrefix(filepath.Base(j.OutputPath), "same-name-") {
			t.Errorf("unexpected output name %s", j.OutputPath)
		}
	}
	if len(seen) != runs {
		t.Fatalf("expected %d renders, got %d", runs, len(seen))
	}
	assertNoVideos(t, f.videos)
}

func TestPublishUsesContextRunID(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
	ctx := logger.ContextWithRunID(context.Background(), "req-123")

	if _, err := f.orch.Publish(ctx, f.submission("song.mp3")); err != nil {
		t.Fatal(err)
	}
	if f.renderer.jobs[0].RunID != "req-123" {
		t.Fatalf("run id = %q", f.renderer.jobs[0].RunID)
	}
}

func TestPublishRequiresSource(t *testing.T) {
	f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
	if _, err := f.orch.Publish(context.Background(), models.AudioSubmission{}); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublishCleansUpRendererChosenPath(t *testing.T) {
	for _, uploadErr := range []error{nil, errors.Upload(nil, "store rejected the file")} {
		f := newFixture(t, models.TrackMetadata{}, CompositeAuto)
		f.renderer.elsewhere = t.TempDir()
		f.store.uploadErr = uploadErr
		rendered := filepath.Join(f.renderer.elsewhere, "service-out.mp4")

		_, err := f.orch.Publish(context.Background(), f.submission("song.mp3"))
		if (err != nil) != (uploadErr != nil) {
			t.Fatalf("Publish() error = %v, want failure %v", err, uploadErr != nil)
		}
		if got := f.store.uploads[0].LocalPath; got != rendered {
			t.Fatalf("uploaded %q, want the renderer's output %q", got, rendered)
		}
		if !f.store.sawFile[0] {
			t.Fatal("rendered file should exist during upload")
		}
		if _, err := os.Stat(rendered); !os.IsNotExist(err) {
			t.Fatalf("rendered file should be removed after the run, stat err = %v", err)
		}
	}
}
