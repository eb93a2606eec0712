// Package cloudinary publishes videos to Cloudinary. It is the one store
// that composites overlays itself, through an upload transformation.
package cloudinary

import (
	"context"
	"fmt"
	"strings"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/ports"
)

const maxResults = 500

// Credentials identify a Cloudinary product environment.
type Credentials struct {
	CloudName string
	APIKey    string
	APISecret string
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

type adminAPI interface {
	Asset(ctx context.Context, params admin.AssetParams) (*admin.AssetResult, error)
	Assets(ctx context.Context, params admin.AssetsParams) (*admin.AssetsResult, error)
	DeleteAssets(ctx context.Context, params admin.DeleteAssetsParams) (*admin.DeleteAssetsResult, error)
	Ping(ctx context.Context) (*admin.PingResult, error)
}

// Store implements ports.AssetStore on Cloudinary's upload and admin APIs.
type Store struct {
	upload uploadAPI
	admin  adminAPI
}

// New returns a Store for creds.
func New(creds Credentials) (*Store, error) {
	c, err := cld.NewFromParams(creds.CloudName, creds.APIKey, creds.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return &Store{upload: &c.Upload, admin: &c.Admin}, nil
}

func (s *Store) Provider() string { return "cloudinary" }

func (s *Store) Capabilities() ports.Capabilities { return ports.Capabilities{Overlays: true} }

func (s *Store) Upload(ctx context.Context, in ports.UploadInput) (models.PublishedResource, error) {
	params := uploader.UploadParams{
		PublicID:     in.PublicID,
		ResourceType: models.ResourceTypeVideo,
		Overwrite:    api.Bool(true),
	}
	if !in.Overlay.Empty() {
		params.Transformation = Transformation(in.Overlay)
	}

	res, err := s.upload.Upload(ctx, in.LocalPath, params)
	if err != nil {
		return models.PublishedResource{}, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if res.Error.Message != "" {
		return models.PublishedResource{}, fmt.Errorf("cloudinary upload failed: %s", res.Error.Message)
	}
	return models.PublishedResource{
		PublicID:     res.PublicID,
		SecureURL:    res.SecureURL,
		Format:       res.Format,
		ResourceType: models.ResourceTypeVideo,
		Bytes:        int64(res.Bytes),
		Width:        res.Width,
		Height:       res.Height,
		CreatedAt:    res.CreatedAt.UTC(),
	}, nil
}

func (s *Store) Get(ctx context.Context, publicID string) (models.PublishedResource, error) {
	res, err := s.admin.Asset(ctx, admin.AssetParams{
		PublicID:     publicID,
		AssetType:    api.Video,
		DeliveryType: api.Upload,
	})
	if err != nil {
		return models.PublishedResource{}, fmt.Errorf("cloudinary lookup failed: %w", err)
	}
	if msg := res.Error.Message; msg != "" {
		if isNotFound(msg) {
			return models.PublishedResource{}, errors.NotFound("video", publicID)
		}
		return models.PublishedResource{}, fmt.Errorf("cloudinary lookup failed: %s", msg)
	}
	return models.PublishedResource{
		PublicID:     res.PublicID,
		SecureURL:    res.SecureURL,
		Format:       res.Format,
		ResourceType: models.ResourceTypeVideo,
		Bytes:        int64(res.Bytes),
		Width:        res.Width,
		Height:       res.Height,
		CreatedAt:    res.CreatedAt.UTC(),
	}, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]models.PublishedResource, error) {
	out := []models.PublishedResource{}
	cursor := ""
	for {
		res, err := s.admin.Assets(ctx, admin.AssetsParams{
			AssetType:    api.Video,
			DeliveryType: string(api.Upload),
			Prefix:       prefix,
			MaxResults:   maxResults,
			NextCursor:   cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("cloudinary list failed: %w", err)
		}
		if res.Error.Message != "" {
			return nil, fmt.Errorf("cloudinary list failed: %s", res.Error.Message)
		}
		for _, a := range res.Assets {
			out = append(out, models.PublishedResource{
				PublicID:     a.PublicID,
				SecureURL:    a.SecureURL,
				Format:       a.Format,
				ResourceType: models.ResourceTypeVideo,
				Bytes:        int64(a.Bytes),
				Width:        a.Width,
				Height:       a.Height,
				CreatedAt:    a.CreatedAt.UTC(),
			})
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

func (s *Store) Delete(ctx context.Context, publicIDs []string) (models.DeleteResult, error) {
	res, err := s.admin.DeleteAssets(ctx, admin.DeleteAssetsParams{
		AssetType:    api.Video,
		DeliveryType: api.Upload,
		PublicIDs:    publicIDs,
	})
	if err != nil {
		return models.DeleteResult{}, fmt.Errorf("cloudinary delete failed: %w", err)
	}
	if res.Error.Message != "" {
		return models.DeleteResult{}, fmt.Errorf("cloudinary delete failed: %s", res.Error.Message)
	}

	out := models.DeleteResult{Deleted: make(map[string]string, len(publicIDs))}
	for _, id := range publicIDs {
		status := models.DeleteStatusNotFound
		if res.Deleted[id] == models.DeleteStatusDeleted {
			status = models.DeleteStatusDeleted
		}
		out.Deleted[id] = status
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	res, err := s.admin.Ping(ctx)
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary ping: %s", res.Error.Message)
	}
	return nil
}

func isNotFound(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "not found")
}
