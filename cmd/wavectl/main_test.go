package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audiowave/internal/app"
	"audiowave/internal/config"
	"audiowave/internal/models"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/progress"
	"audiowave/internal/worker/renderer"
)

type stubRenderer struct{}

func (stubRenderer) Name() string { return "stub" }

func (stubRenderer) Render(_ context.Context, job renderer.Job, onProgress renderer.ProgressFunc) (string, error) {
	onProgress(100)
	return job.OutputPath, os.WriteFile(job.OutputPath, []byte("rendered video"), 0o644)
}

type cliEnv struct {
	root  string
	audio string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	base := t.TempDir()
	env := &cliEnv{root: filepath.Join(base, "published"), audio: filepath.Join(base, "Night Drive.mp3")}
	if err := os.WriteFile(env.audio, []byte("not tagged"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ASSET_STORE", config.StoreLocalFS)
	t.Setenv("STORAGE_LOCAL_ROOT", env.root)
	t.Setenv("VIDEOS_DIR", filepath.Join(base, "videos"))
	t.Setenv("UPLOADS_DIR", filepath.Join(base, "uploads"))
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("VIDEOS_FOLDER", "")
	t.Setenv("FFPROBE_BIN", filepath.Join(base, "missing-ffprobe"))
	return env
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.build = func(ctx context.Context, cfg *config.Config, log *logger.Logger, sink progress.Sink) (*app.App, error) {
		return app.Build(ctx, app.Deps{Config: cfg, Log: log, Progress: sink, Renderer: stubRenderer{}})
	}
	cmd := newRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in output:\n%s", want, out)
	}
}

func TestPublishListGetDelete(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := runCLI(t, "publish", env.audio)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	requireContains(t, out, "Published audio-waveform-videos/night-drive")
	if _, err := os.Stat(filepath.Join(env.root, "audio-waveform-videos", "night-drive.mp4")); err != nil {
		t.Fatalf("published file missing: %v", err)
	}

	out, _, err = runCLI(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "audio-waveform-videos/night-drive")
	requireContains(t, out, "14 B")

	out, _, err = runCLI(t, "--json", "get", "audio-waveform-videos/night-drive")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var res models.PublishedResource
	if err := json.Unmarshal([]byte(out), &res); err != nil || res.Bytes != int64(len("rendered video")) {
		t.Fatalf("unexpected get output %q (%v)", out, err)
	}

	out, _, err = runCLI(t, "delete", "audio-waveform-videos/night-drive", "audio-waveform-videos/ghost")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "deleted")
	requireContains(t, out, "not found")

	out, _, err = runCLI(t, "list")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	requireContains(t, out, "No videos published under audio-waveform-videos/")
}

func TestPublishRejectsMissingFile(t *testing.T) {
	setupCLIEnv(t)
	if _, _, err := runCLI(t, "publish", filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
		t.Fatal("expected an error for a missing audio file")
	}
}

func TestGetUnknownVideo(t *testing.T) {
	setupCLIEnv(t)
	_, _, err := runCLI(t, "get", "audio-waveform-videos/ghost")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	setupCLIEnv(t)
	t.Setenv("ASSET_STORE", "ftp")
	if _, _, err := runCLI(t, "list"); err == nil {
		t.Fatal("expected a configuration error")
	}
}

func TestFormatting(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"duration", formatDuration(125.4), "2:05"},
		{"no duration", formatDuration(0), "-"},
		{"created", formatCreated(now.Add(-2*time.Hour), now), "2 hours ago"},
		{"no created", formatCreated(time.Time{}, now), "-"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
