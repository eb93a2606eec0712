// Package publisher puts rendered videos on the configured asset store and
// serves the list, get and delete operations over them.
package publisher

import (
	"context"
	"strings"

	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
	"audiowave/internal/platform/metrics"
	"audiowave/internal/ports"
)

// DefaultFolder holds every video published with PlaceInFolder and is what
// List("") enumerates.
const DefaultFolder = "audio-waveform-videos/"

// UploadRequest is one video to publish.
type UploadRequest struct {
	LocalPath string
	PublicID  string
	// Overlay is composited by the store. It must be empty unless the store
	// reports the overlays capability.
	Overlay models.OverlaySpec
	// Folder overrides the publisher's folder when PlaceInFolder is set.
	Folder        string
	PlaceInFolder bool
}

type Publisher struct {
	store   ports.AssetStore
	folder  string
	metrics *metrics.Metrics
	log     *logger.Logger
}

type Option func(*Publisher)

// WithFolder replaces DefaultFolder.
func WithFolder(folder string) Option {
	return func(p *Publisher) {
		if folder != "" {
			p.folder = folder
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithLogger(log *logger.Logger) Option {
	return func(p *Publisher) {
		if log != nil {
			p.log = log
		}
	}
}

func New(store ports.AssetStore, opts ...Option) *Publisher {
	p := &Publisher{store: store, folder: DefaultFolder, log: logger.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	p.folder = folderPrefix(p.folder)
	p.log = p.log.WithComponent("publisher")
	return p
}

// Provider names the underlying store.
func (p *Publisher) Provider() string { return p.store.Provider() }

// Capabilities reports what the underlying store can do.
func (p *Publisher) Capabilities() ports.Capabilities { return p.store.Capabilities() }

// Folder is the folder List("") reads.
func (p *Publisher) Folder() string { return p.folder }

// Upload sends req.LocalPath to the store. Store failures come back coded
// errors.CodeUpload.
func (p *Publisher) Upload(ctx context.Context, req UploadRequest) (models.PublishedResource, error) {
	if strings.TrimSpace(req.PublicID) == "" {
		return models.PublishedResource{}, errors.Validation("public id is required")
	}
	if err := req.Overlay.Validate(); err != nil {
		return models.PublishedResource{}, errors.WrapWithCode(err, errors.CodeValidation, "publisher.upload", err.Error())
	}
	if !req.Overlay.Empty() && !p.store.Capabilities().Overlays {
		return models.PublishedResource{}, errors.Newf(errors.CodeUnsupported,
			"%s cannot composite overlays; burn them in at render time", p.store.Provider())
	}

	id := req.PublicID
	if req.PlaceInFolder {
		folder := p.folder
		if req.Folder != "" {
			folder = folderPrefix(req.Folder)
		}
		id = folder + strings.TrimPrefix(id, "/")
	}

	log := p.log.FromContext(ctx)
	log.Debug("uploading video", "public_id", id, "provider", p.store.Provider(), "overlay_layers", len(req.Overlay.Layers()))

	res, err := p.store.Upload(ctx, ports.UploadInput{
		LocalPath: req.LocalPath,
		PublicID:  id,
		Overlay:   req.Overlay,
	})
	p.metrics.ObserveStore("upload", err)
	if err != nil {
		if errors.IsCode(err, errors.CodeValidation) {
			return models.PublishedResource{}, err
		}
		return models.PublishedResource{}, errors.Upload(err, p.store.Provider()+" upload failed").
			WithField("public_id", id)
	}
	log.Info("video published", "public_id", res.PublicID, "url", res.SecureURL)
	return res, nil
}

// Get returns the video with publicID or an errors.CodeNotFound error.
func (p *Publisher) Get(ctx context.Context, publicID string) (models.PublishedResource, error) {
	if strings.TrimSpace(publicID) == "" {
		return models.PublishedResource{}, errors.Validation("public id is required")
	}
	res, err := p.store.Get(ctx, publicID)
	p.metrics.ObserveStore("get", err)
	if err != nil {
		return models.PublishedResource{}, p.storeError(err, "publisher.get", "failed to fetch video")
	}
	return res, nil
}

// List returns the videos in folder, or in the publisher's folder when
// folder is empty.
func (p *Publisher) List(ctx context.Context, folder string) (models.ResourceList, error) {
	prefix := p.folder
	if folder != "" {
		prefix = folderPrefix(folder)
	}
	items, err := p.store.List(ctx, prefix)
	p.metrics.ObserveStore("list", err)
	if err != nil {
		return models.ResourceList{}, p.storeError(err, "publisher.list", "failed to list videos")
	}
	if items == nil {
		items = []models.PublishedResource{}
	}
	return models.ResourceList{Resources: items}, nil
}

// Delete removes the given videos. Unknown ids are reported, not failed.
func (p *Publisher) Delete(ctx context.Context, publicIDs []string) (models.DeleteResult, error) {
	ids := make([]string, 0, len(publicIDs))
	for _, id := range publicIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return models.DeleteResult{}, errors.Validation("at least one public id is required")
	}

	res, err := p.store.Delete(ctx, ids)
	p.metrics.ObserveStore("delete", err)
	if err != nil {
		return models.DeleteResult{}, p.storeError(err, "publisher.delete", "failed to delete videos")
	}
	p.log.FromContext(ctx).Info("videos deleted", "requested", len(ids), "result", res.Deleted)
	return res, nil
}

// Ping checks the store.
func (p *Publisher) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "publisher.ping", p.store.Provider()+" unreachable")
	}
	return nil
}

// storeError keeps not-found and validation errors as they are and codes
// everything else as a store failure.
func (p *Publisher) storeError(err error, op, msg string) error {
	switch errors.GetCode(err) {
	case errors.CodeNotFound, errors.CodeValidation:
		return err
	}
	return errors.Store(err, op, msg).WithField("provider", p.store.Provider())
}

func folderPrefix(folder string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}
