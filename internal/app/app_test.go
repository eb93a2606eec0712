package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"audiowave/internal/config"
	"audiowave/internal/models"
	"audiowave/internal/pipeline"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/worker/renderer"
)

type copyRenderer struct {
	jobs []renderer.Job
}

func (*copyRenderer) Name() string { return "copy" }

func (c *copyRenderer) Render(_ context.Context, job renderer.Job, onProgress renderer.ProgressFunc) (string, error) {
	c.jobs = append(c.jobs, job)
	onProgress(50)
	if err := os.WriteFile(job.OutputPath, []byte("mp4"), 0o644); err != nil {
		return "", err
	}
	onProgress(100)
	return job.OutputPath, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		HTTPPort:    "8080",
		ServiceName: "audiowave",
		MaxUploadMB: 1,
		Store: config.StoreConfig{
			Provider: config.StoreLocalFS,
			Local:    config.LocalConfig{Root: filepath.Join(dir, "published"), BaseURL: "http://localhost:8080/files"},
		},
		Renderer: config.RendererConfig{Backend: config.RendererFFmpeg},
		Pipeline: config.PipelineConfig{
			VideosDir:    filepath.Join(dir, "videos"),
			UploadsDir:   filepath.Join(dir, "uploads"),
			Compositing:  "auto",
			OverlayStyle: "mono",
		},
	}
}

func TestBuildPublishesWithLocalStore(t *testing.T) {
	t.Setenv("BACKGROUND_IMAGE", "/elsewhere/custom.png")
	cfg := testConfig(t)
	r := &copyRenderer{}
	a, err := Build(context.Background(), Deps{Config: cfg, Log: logger.Discard(), Renderer: r})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.RDB != nil || a.ProgressReader != nil {
		t.Fatal("redis should stay disabled without an address")
	}

	src := filepath.Join(t.TempDir(), "My Song.mp3")
	if err := os.WriteFile(src, []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := a.Pipeline.Publish(context.Background(), models.AudioSubmission{SourcePath: src, OriginalFileName: "My Song.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.PublicID != "audio-waveform-videos/my-song" {
		t.Fatalf("public id = %q", res.PublicID)
	}
	if got := r.jobs[0].BackgroundImagePath; got != pipeline.DefaultBackgroundImage {
		t.Fatalf("background = %q, want the built-in default", got)
	}
	if _, err := os.Stat(filepath.Join(cfg.Store.Local.Root, "audio-waveform-videos", "my-song.mp4")); err != nil {
		t.Fatalf("published file missing: %v", err)
	}

	root, path, ok := a.MediaMount()
	if !ok || root != cfg.Store.Local.Root || path != "/files" {
		t.Fatalf("MediaMount() = %q %q %v", root, path, ok)
	}
}

func TestBuildRejectsUnknownOverlayStyle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.OverlayStyle = "neon"
	if _, err := Build(context.Background(), Deps{Config: cfg, Log: logger.Discard(), Renderer: &copyRenderer{}}); err == nil {
		t.Fatal("expected an error for an unknown overlay style")
	}
}

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		cfg  config.RendererConfig
		want string
	}{
		{config.RendererConfig{Backend: config.RendererFFmpeg, FontFile: "/fonts/a.ttf"}, "ffmpeg"},
		{config.RendererConfig{Backend: config.RendererHTTP, HTTPBaseURL: "http://renderer:8090"}, "http"},
	}
	for _, tt := range tests {
		r := NewRenderer(tt.cfg, logger.Discard())
		if r.Name() != tt.want {
			t.Errorf("NewRenderer(%q).Name() = %q, want %q", tt.cfg.Backend, r.Name(), tt.want)
		}
		if f, ok := r.(*renderer.FFmpeg); ok && f.FontFile != tt.cfg.FontFile {
			t.Errorf("font file = %q", f.FontFile)
		}
	}
}
