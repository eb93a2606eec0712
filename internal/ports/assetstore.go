// Package ports declares the interfaces audiowave depends on for remote
// systems. Implementations live under internal/adapters.
package ports

import (
	"context"

	"audiowave/internal/models"
)

// Capabilities describes optional features of an asset store.
type Capabilities struct {
	// Overlays is true when the store can composite an overlay spec onto an
	// uploaded video itself.
	Overlays bool
}

// UploadInput is one video to publish.
type UploadInput struct {
	LocalPath string
	// PublicID is the full identifier, folder prefix included.
	PublicID string
	// Overlay is only set when the store reported Capabilities().Overlays.
	Overlay models.OverlaySpec
}

// AssetStore is a remote media host holding published videos. Every method
// is scoped to video resources; images or audio in the same namespace are
// never returned or deleted.
//
// Get returns an error coded errors.CodeNotFound when the id is unknown.
// Delete reports unknown ids as models.DeleteStatusNotFound instead of
// failing.
type AssetStore interface {
	Provider() string
	Capabilities() Capabilities

	Upload(ctx context.Context, in UploadInput) (models.PublishedResource, error)
	Get(ctx context.Context, publicID string) (models.PublishedResource, error)
	// List returns the videos whose public id starts with prefix, in no
	// particular order.
	List(ctx context.Context, prefix string) ([]models.PublishedResource, error)
	Delete(ctx context.Context, publicIDs []string) (models.DeleteResult, error)

	// Ping checks that the store is reachable with the configured credentials.
	Ping(ctx context.Context) error
}
