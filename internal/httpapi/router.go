package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"audiowave/internal/httpapi/handlers"
	"audiowave/internal/httpkit"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/pkg/middleware"
	"audiowave/internal/platform/metrics"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type Deps struct {
	Handlers handlers.Deps
	Log      *logger.Logger
	// Metrics is optional; /metrics is only mounted when set.
	Metrics        *metrics.Metrics
	CORSOrigins    []string
	RequestTimeout time.Duration
	// MediaRoot, when set, is served read-only under MediaPath. Used with the
	// localfs store.
	MediaRoot string
	MediaPath string
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	d.Handlers.Log = log

	r := chi.NewRouter()

	var observers []middleware.StatusObserver
	if d.Metrics != nil {
		observers = append(observers, d.Metrics.ObserveRequest)
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log, observers...))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: origins,
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAgeSeconds:  600,
	}))
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	h := handlers.New(d.Handlers)

	// ---- HEALTH ----
	r.Get("/health", h.Health)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	// ---- AUDIO ----
	r.Post("/audio", h.PostAudio)

	// ---- VIDEOS ----
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(d.RequestTimeout))

		r.Get("/videos", middleware.WrapHandlerStatus(log, http.StatusBadRequest, h.ListVideos))
		r.Get("/videos/*", middleware.WrapHandlerStatus(log, http.StatusBadRequest, h.GetVideo))
		r.Delete("/videos/*", middleware.WrapHandlerStatus(log, http.StatusBadRequest, h.DeleteVideo))

		r.Get("/progress/{runId}", middleware.WrapHandler(log, h.GetProgress))
	})

	// Streams outlive the request timeout.
	r.Get("/progress/{runId}/events", middleware.WrapHandler(log, h.StreamProgress))

	// ---- MEDIA ----
	if d.MediaRoot != "" {
		prefix := "/" + strings.Trim(d.MediaPath, "/")
		if prefix == "/" {
			prefix = "/media"
		}
		r.Get(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(d.MediaRoot))).ServeHTTP)
	}

	return r
}
