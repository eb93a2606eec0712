package localfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"audiowave/internal/media/videofile"
	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/ports"
)

// Store implements ports.AssetStore on the local filesystem. Videos are kept
// under root as <public id>.mp4 and served from baseURL.
type Store struct {
	root    string
	baseURL string
}

// New returns a Store rooted at root. baseURL is prefixed to object names to
// build each resource's SecureURL.
func New(root, baseURL string) *Store {
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Store) Provider() string { return "localfs" }

func (s *Store) Capabilities() ports.Capabilities { return ports.Capabilities{} }

// Root is the directory videos are stored under.
func (s *Store) Root() string { return s.root }

func (s *Store) Upload(ctx context.Context, in ports.UploadInput) (models.PublishedResource, error) {
	dst, err := s.pathFor(in.PublicID)
	if err != nil {
		return models.PublishedResource{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return models.PublishedResource{}, err
	}

	src, err := os.Open(in.LocalPath)
	if err != nil {
		return models.PublishedResource{}, err
	}
	defer src.Close()

	// Write beside the destination and rename so readers never see a
	// partial file.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return models.PublishedResource{}, err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return models.PublishedResource{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return models.PublishedResource{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return models.PublishedResource{}, err
	}

	return s.Get(ctx, in.PublicID)
}

func (s *Store) Get(_ context.Context, publicID string) (models.PublishedResource, error) {
	p, err := s.pathFor(publicID)
	if err != nil {
		return models.PublishedResource{}, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return models.PublishedResource{}, errors.NotFound("video", publicID)
	}
	if err != nil {
		return models.PublishedResource{}, err
	}
	return s.resource(publicID, info), nil
}

func (s *Store) List(_ context.Context, prefix string) ([]models.PublishedResource, error) {
	out := []models.PublishedResource{}
	if _, err := os.Stat(s.root); errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		id, ok := videofile.PublicID(filepath.ToSlash(rel))
		if !ok || !strings.HasPrefix(id, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, s.resource(id, info))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, publicIDs []string) (models.DeleteResult, error) {
	res := models.DeleteResult{Deleted: make(map[string]string, len(publicIDs))}
	for _, id := range publicIDs {
		p, err := s.pathFor(id)
		if err != nil {
			return res, err
		}
		switch err := os.Remove(p); {
		case err == nil:
			res.Deleted[id] = models.DeleteStatusDeleted
		case errors.Is(err, fs.ErrNotExist):
			res.Deleted[id] = models.DeleteStatusNotFound
		default:
			return res, err
		}
	}
	return res, nil
}

// Ping makes sure the root directory exists and is writable.
func (s *Store) Ping(context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.root, ".ping-*")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}

func (s *Store) resource(publicID string, info fs.FileInfo) models.PublishedResource {
	key := videofile.Key(publicID)
	return models.PublishedResource{
		PublicID:     publicID,
		SecureURL:    s.baseURL + "/" + key,
		Format:       videofile.Format(key),
		ResourceType: models.ResourceTypeVideo,
		Bytes:        info.Size(),
		CreatedAt:    info.ModTime().UTC(),
	}
}

// pathFor maps a public id to a file under root, refusing ids that would
// escape it.
func (s *Store) pathFor(publicID string) (string, error) {
	clean := path.Clean("/" + publicID)
	if publicID == "" || clean == "/" || strings.Trim(clean, "/") != strings.Trim(publicID, "/") {
		return "", errors.Validation(fmt.Sprintf("invalid public id %q", publicID))
	}
	return filepath.Join(s.root, filepath.FromSlash(videofile.Key(strings.TrimPrefix(clean, "/")))), nil
}
