// Package s3 stores published videos in an S3-compatible bucket (AWS S3,
// Cloudflare R2, MinIO).
package s3

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"audiowave/internal/media/videofile"
	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/ports"
)

const presignExpiry = time.Hour

// Config holds the bucket settings.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// PublicURL is the CDN or bucket URL objects are served from. When empty
	// SecureURL is a presigned GET link.
	PublicURL    string
	UsePathStyle bool
}

// ObjectAPI is the subset of *s3.Client the store calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store implements ports.AssetStore on a bucket.
type Store struct {
	api       ObjectAPI
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

// New loads an SDK config from cfg and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.Validation("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	s := NewWithAPI(client, cfg.Bucket, cfg.PublicURL)
	s.presigner = s3.NewPresignClient(client)
	return s, nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api ObjectAPI, bucket, publicURL string) *Store {
	return &Store{api: api, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *Store) Provider() string { return "s3" }

func (s *Store) Capabilities() ports.Capabilities { return ports.Capabilities{} }

func (s *Store) Upload(ctx context.Context, in ports.UploadInput) (models.PublishedResource, error) {
	if in.PublicID == "" {
		return models.PublishedResource{}, errors.Validation("public id is required")
	}
	f, err := os.Open(in.LocalPath)
	if err != nil {
		return models.PublishedResource{}, err
	}
	defer f.Close()

	key := videofile.Key(in.PublicID)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(videofile.ContentType(key)),
	})
	if err != nil {
		return models.PublishedResource{}, fmt.Errorf("failed to upload to s3: %w", err)
	}
	return s.Get(ctx, in.PublicID)
}

func (s *Store) Get(ctx context.Context, publicID string) (models.PublishedResource, error) {
	key := videofile.Key(publicID)
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return models.PublishedResource{}, errors.NotFound("video", publicID)
	}
	if err != nil {
		return models.PublishedResource{}, fmt.Errorf("failed to stat s3 object: %w", err)
	}
	return s.resource(ctx, publicID, aws.ToInt64(out.ContentLength), out.LastModified)
}

func (s *Store) List(ctx context.Context, prefix string) ([]models.PublishedResource, error) {
	out := []models.PublishedResource{}
	pager := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			id, ok := videofile.PublicID(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			res, err := s.resource(ctx, id, aws.ToInt64(obj.Size), obj.LastModified)
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
	}
	return out, nil
}

// Delete checks each id first because DeleteObjects reports absent keys as
// deleted.
func (s *Store) Delete(ctx context.Context, publicIDs []string) (models.DeleteResult, error) {
	res := models.DeleteResult{Deleted: make(map[string]string, len(publicIDs))}

	var objects []types.ObjectIdentifier
	for _, id := range publicIDs {
		if _, err := s.Get(ctx, id); err != nil {
			if errors.IsNotFound(err) {
				res.Deleted[id] = models.DeleteStatusNotFound
				continue
			}
			return res, err
		}
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(videofile.Key(id))})
	}
	if len(objects) == 0 {
		return res, nil
	}

	out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(false)},
	})
	if err != nil {
		return res, fmt.Errorf("failed to delete s3 objects: %w", err)
	}
	for _, d := range out.Deleted {
		if id, ok := videofile.PublicID(aws.ToString(d.Key)); ok {
			res.Deleted[id] = models.DeleteStatusDeleted
		}
	}
	if len(out.Errors) > 0 {
		e := out.Errors[0]
		return res, fmt.Errorf("failed to delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return res, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *Store) resource(ctx context.Context, publicID string, size int64, modified *time.Time) (models.PublishedResource, error) {
	key := videofile.Key(publicID)
	url, err := s.url(ctx, key)
	if err != nil {
		return models.PublishedResource{}, err
	}
	res := models.PublishedResource{
		PublicID:     publicID,
		SecureURL:    url,
		Format:       videofile.Format(key),
		ResourceType: models.ResourceTypeVideo,
		Bytes:        size,
	}
	if modified != nil {
		res.CreatedAt = modified.UTC()
	}
	return res, nil
}

func (s *Store) url(ctx context.Context, key string) (string, error) {
	if s.publicURL != "" || s.presigner == nil {
		return fmt.Sprintf("%s/%s", s.publicURL, key), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
