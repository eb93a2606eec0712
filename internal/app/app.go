// Package app assembles the audiowave services from a Config. Both the API
// server and wavectl build on it.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"

	"audiowave/internal/adapters/assetstore"
	"audiowave/internal/adapters/assetstore/localfs"
	"audiowave/internal/config"
	"audiowave/internal/media/ffprobe"
	"audiowave/internal/metadata"
	"audiowave/internal/overlay"
	"audiowave/internal/pipeline"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/platform/metrics"
	"audiowave/internal/ports"
	"audiowave/internal/progress"
	"audiowave/internal/publisher"
	"audiowave/internal/worker/renderer"
)

type Deps struct {
	Config *config.Config
	Log    *logger.Logger
	// Store replaces the store the config selects. Used by tests.
	Store ports.AssetStore
	// Renderer replaces the configured backend. Used by tests.
	Renderer renderer.Renderer
	// Progress is added to the log and Redis sinks.
	Progress progress.Sink
}

// App holds the wired services. Close releases what Build opened.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Store     ports.AssetStore
	Publisher *publisher.Publisher
	Pipeline  *pipeline.Orchestrator
	Renderer  renderer.Renderer
	Metrics   *metrics.Metrics
	// RDB, ProgressReader and ProgressEvents are nil without REDIS_ADDR.
	RDB            *redis.Client
	ProgressReader progress.Reader
	ProgressEvents progress.Subscriber

	closers []func() error
}

func Build(ctx context.Context, d Deps) (*App, error) {
	cfg := d.Config
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	a := &App{Config: cfg, Log: log}

	if cfg.MetricsEnabled {
		a.Metrics = metrics.New()
	}

	sinks := progress.Multi{progress.NewLogSink(log)}
	if d.Progress != nil {
		sinks = append(sinks, d.Progress)
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		rs := progress.NewRedisSink(rdb, 0)
		a.RDB = rdb
		a.ProgressReader = rs
		a.ProgressEvents = rs
		sinks = append(sinks, rs)
		a.closers = append(a.closers, rdb.Close)
		log.Info("redis connected", "addr", cfg.RedisAddr)
	}

	store := d.Store
	if store == nil {
		var err error
		store, err = assetstore.NewProvider(ctx, cfg.Store)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("asset store: %w", err)
		}
	}
	a.Store = store
	log.Info("asset store initialized", "provider", store.Provider())

	pubOpts := []publisher.Option{publisher.WithLogger(log), publisher.WithMetrics(a.Metrics)}
	if cfg.Pipeline.Folder != "" {
		pubOpts = append(pubOpts, publisher.WithFolder(cfg.Pipeline.Folder))
	}
	a.Publisher = publisher.New(store, pubOpts...)

	a.Renderer = d.Renderer
	if a.Renderer == nil {
		a.Renderer = NewRenderer(cfg.Renderer, log)
	}

	builder := overlay.NewBuilder()
	if cfg.Pipeline.OverlayStyle != "" {
		style, ok := overlay.Preset(cfg.Pipeline.OverlayStyle)
		if !ok {
			a.Close()
			return nil, fmt.Errorf("unknown overlay style %q", cfg.Pipeline.OverlayStyle)
		}
		builder.Style = style
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Extractor:   metadata.NewExtractor(log, metadata.WithProber(ffprobe.Prober{Binary: cfg.Renderer.FFprobeBin})),
		Renderer:    a.Renderer,
		Publisher:   a.Publisher,
		Overlay:     builder,
		Progress:    sinks,
		Metrics:     a.Metrics,
		Log:         log,
		VideosDir:   cfg.Pipeline.VideosDir,
		Compositing: pipeline.Compositing(cfg.Pipeline.Compositing),
	})

	return a, nil
}

// NewRenderer returns the backend cfg selects.
func NewRenderer(cfg config.RendererConfig, log *logger.Logger) renderer.Renderer {
	if cfg.Backend == config.RendererHTTP {
		return renderer.NewHTTPClient(cfg.HTTPBaseURL, log)
	}
	r := renderer.NewFFmpeg(cfg.FFmpegBin, log)
	r.FontFile = cfg.FontFile
	return r
}

// MediaMount returns the directory and URL path the API should serve
// published files from, or ok=false when the store is not local.
func (a *App) MediaMount() (root, path string, ok bool) {
	local, isLocal := a.Store.(*localfs.Store)
	if !isLocal {
		return "", "", false
	}
	root = local.Root()
	path = "/media"
	if u, err := url.Parse(a.Config.Store.Local.BaseURL); err == nil && strings.Trim(u.Path, "/") != "" {
		path = "/" + strings.Trim(u.Path, "/")
	}
	return root, path, true
}

// Close releases connections opened by Build.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
