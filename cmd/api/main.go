package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"audiowave/internal/app"
	"audiowave/internal/config"
	"audiowave/internal/httpapi"
	"audiowave/internal/httpapi/handlers"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/pkg/shutdown"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("invalid configuration", err)
	}

	lc := logger.DefaultConfig()
	lc.ServiceName = cfg.ServiceName
	log := logger.New(lc)

	log.Info("starting audiowave API",
		"version", version,
		"store", cfg.Store.Provider,
		"renderer", cfg.Renderer.Backend,
	)

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, cfg.ShutdownTimeout)

	a, err := app.Build(ctx, app.Deps{Config: cfg, Log: log})
	if err != nil {
		log.LogFatal("failed to initialize services", err)
	}
	shutdownMgr.Register("services", func(ctx context.Context) error {
		return a.Close()
	})

	for _, dir := range []string{cfg.Pipeline.UploadsDir, cfg.Pipeline.VideosDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.LogFatal("failed to create working directory", err, "dir", dir)
		}
	}

	deps := httpapi.Deps{
		Handlers: handlers.Deps{
			Pipeline:        a.Pipeline,
			Videos:          a.Publisher,
			Progress:        a.ProgressReader,
			Events:          a.ProgressEvents,
			RDB:             a.RDB,
			ServiceName:     cfg.ServiceName,
			Version:         version,
			UploadsDir:      cfg.Pipeline.UploadsDir,
			MaxUploadBytes:  cfg.MaxUploadBytes(),
			PipelineTimeout: cfg.Pipeline.Timeout,
		},
		Log:            log,
		Metrics:        a.Metrics,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}
	if root, path, ok := a.MediaMount(); ok {
		deps.MediaRoot, deps.MediaPath = root, path
		log.Info("serving published videos", "root", root, "path", path)
	}

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.HTTPPort,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and renders run inside the request.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	if err := shutdownMgr.Wait(); err != nil {
		log.LogError(ctx, "shutdown finished with errors", err)
		os.Exit(1)
	}
}
