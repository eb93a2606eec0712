package s3

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/ports"
)

type fakeObject struct {
	body     []byte
	modified time.Time
}

type fakeAPI struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	pageSize int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string]fakeObject{}, pageSize: 2}
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{body: body, modified: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.body))),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.body))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func (f *fakeAPI) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.DeleteObjectsOutput{}
	for _, o := range in.Delete.Objects {
		delete(f.objects, aws.ToString(o.Key))
		out.Deleted = append(out.Deleted, types.DeletedObject{Key: o.Key})
	}
	return out, nil
}

func (f *fakeAPI) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func writeVideo(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUploadAndGet(t *testing.T) {
	api := newFakeAPI()
	store := NewWithAPI(api, "videos", "https://cdn.example.com/")
	ctx := context.Background()

	res, err := store.Upload(ctx, ports.UploadInput{
		LocalPath: writeVideo(t, "0123456789"),
		PublicID:  "audio-waveform-videos/song",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, ok := api.objects["audio-waveform-videos/song.mp4"]; !ok {
		t.Fatalf("expected object key with .mp4 extension, have %v", api.objects)
	}
	if res.SecureURL != "https://cdn.example.com/audio-waveform-videos/song.mp4" {
		t.Errorf("unexpected url %q", res.SecureURL)
	}
	if res.Bytes != 10 || res.Format != "mp4" || res.ResourceType != models.ResourceTypeVideo {
		t.Errorf("unexpected resource %+v", res)
	}

	if _, err := store.Get(ctx, "audio-waveform-videos/missing"); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPaginatesAndSkipsNonVideos(t *testing.T) {
	api := newFakeAPI()
	for _, k := range []string{"p/a.mp4", "p/b.mp4", "p/cover.png", "p/c.mp4", "p/e.mov", "q/d.mp4"} {
		api.objects[k] = fakeObject{body: []byte("x")}
	}
	store := NewWithAPI(api, "videos", "https://cdn.example.com")

	list, err := store.List(context.Background(), "p/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, r := range list {
		ids = append(ids, r.PublicID)
	}
	sort.Strings(ids)
	if strings.Join(ids, ",") != "p/a,p/b,p/c" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestDeleteReportsMissingIDs(t *testing.T) {
	api := newFakeAPI()
	api.objects["p/a.mp4"] = fakeObject{body: []byte("x")}
	store := NewWithAPI(api, "videos", "")

	res, err := store.Delete(context.Background(), []string{"p/a", "p/ghost"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.Deleted["p/a"] != models.DeleteStatusDeleted || res.Deleted["p/ghost"] != models.DeleteStatusNotFound {
		t.Fatalf("unexpected result %+v", res.Deleted)
	}
	if len(api.objects) != 0 {
		t.Fatalf("expected bucket empty, have %v", api.objects)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", &types.NotFound{}, true},
		{"no such key", &types.NoSuchKey{}, true},
		{"other", io.ErrUnexpectedEOF, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Fatalf("isNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
