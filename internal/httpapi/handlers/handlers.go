package handlers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"audiowave/internal/models"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/progress"
)

// Pipeline publishes one submission.
type Pipeline interface {
	Publish(ctx context.Context, sub models.AudioSubmission) (models.PublishedResource, error)
}

// Videos is the lifecycle surface of the publisher.
type Videos interface {
	Provider() string
	Get(ctx context.Context, publicID string) (models.PublishedResource, error)
	List(ctx context.Context, folder string) (models.ResourceList, error)
	Delete(ctx context.Context, publicIDs []string) (models.DeleteResult, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Pipeline Pipeline
	Videos   Videos
	// Progress is nil when no progress store is configured.
	Progress progress.Reader
	// Events is nil when progress cannot be streamed.
	Events progress.Subscriber
	RDB    *redis.Client
	Log    *logger.Logger

	ServiceName     string
	Version         string
	UploadsDir      string
	MaxUploadBytes  int64
	PipelineTimeout time.Duration
}

type Handler struct {
	pipeline Pipeline
	videos   Videos
	progress progress.Reader
	events   progress.Subscriber
	rdb      *redis.Client
	log      *logger.Logger

	serviceName     string
	version         string
	uploadsDir      string
	maxUploadBytes  int64
	pipelineTimeout time.Duration
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pipeline:        d.Pipeline,
		videos:          d.Videos,
		progress:        d.Progress,
		events:          d.Events,
		rdb:             d.RDB,
		log:             log.WithComponent("httpapi"),
		serviceName:     d.ServiceName,
		version:         d.Version,
		uploadsDir:      d.UploadsDir,
		maxUploadBytes:  d.MaxUploadBytes,
		pipelineTimeout: d.PipelineTimeout,
	}
}
