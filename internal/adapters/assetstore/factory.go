// Package assetstore builds the configured ports.AssetStore.
package assetstore

import (
	"context"
	"fmt"

	"audiowave/internal/adapters/assetstore/cloudinary"
	"audiowave/internal/adapters/assetstore/gdrive"
	"audiowave/internal/adapters/assetstore/localfs"
	"audiowave/internal/adapters/assetstore/s3"
	"audiowave/internal/config"
	"audiowave/internal/ports"
)

// NewProvider returns the store selected by cfg.Provider with its
// credentials already bound.
func NewProvider(ctx context.Context, cfg config.StoreConfig) (ports.AssetStore, error) {
	switch cfg.Provider {
	case config.StoreLocalFS, "":
		return localfs.New(cfg.Local.Root, cfg.Local.BaseURL), nil

	case config.StoreCloudinary:
		return cloudinary.New(cloudinary.Credentials{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
		})

	case config.StoreS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicURL:       cfg.S3.PublicURL,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})

	case config.StoreGDrive:
		return gdrive.New(ctx, gdrive.Credentials{
			ClientID:     cfg.GDrive.ClientID,
			ClientSecret: cfg.GDrive.ClientSecret,
			RefreshToken: cfg.GDrive.RefreshToken,
			FolderID:     cfg.GDrive.FolderID,
		})

	default:
		return nil, fmt.Errorf("unknown asset store: %s", cfg.Provider)
	}
}
