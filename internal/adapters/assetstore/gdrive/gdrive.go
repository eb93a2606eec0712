package gdrive

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"audiowave/internal/media/videofile"
	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/ports"
)

const fileFields = "id, name, mimeType, size, createdTime, webContentLink, webViewLink, videoMediaMetadata"

// Client implements ports.AssetStore on Google Drive. A public id maps to
// the Drive file name <public id>.mp4 inside the configured folder; Drive
// file ids never leave this package.
type Client struct {
	srv      *drive.Service
	folderID string
}

// NewClient wraps an existing Drive service.
func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

// Credentials are the OAuth values produced by cmd/gdrive-auth.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

// New builds a Drive client that refreshes its access token from creds.
func New(ctx context.Context, creds Credentials, opts ...option.ClientOption) (*Client, error) {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	srv, err := drive.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gdrive service: %w", err)
	}
	return NewClient(srv, creds.FolderID), nil
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) Capabilities() ports.Capabilities { return ports.Capabilities{} }

func (c *Client) Upload(ctx context.Context, in ports.UploadInput) (models.PublishedResource, error) {
	if in.PublicID == "" {
		return models.PublishedResource{}, errors.Validation("public id is required")
	}
	f, err := os.Open(in.LocalPath)
	if err != nil {
		return models.PublishedResource{}, err
	}
	defer f.Close()

	name := videofile.Key(in.PublicID)
	contentType := googleapi.ContentType(videofile.ContentType(name))

	existing, err := c.findByName(ctx, name)
	if err != nil {
		return models.PublishedResource{}, err
	}

	var saved *drive.File
	if len(existing) > 0 {
		saved, err = c.srv.Files.Update(existing[0].Id, &drive.File{}).
			Media(f, contentType).
			SupportsAllDrives(true).
			Fields(fileFields).
			Context(ctx).
			Do()
	} else {
		file := &drive.File{Name: name, MimeType: videofile.ContentType(name)}
		if c.folderID != "" {
			file.Parents = []string{c.folderID}
		}
		saved, err = c.srv.Files.Create(file).
			Media(f, contentType).
			SupportsAllDrives(true).
			Fields(fileFields).
			Context(ctx).
			Do()
	}
	if err != nil {
		return models.PublishedResource{}, fmt.Errorf("gdrive upload failed: %w", err)
	}
	return toResource(in.PublicID, saved), nil
}

func (c *Client) Get(ctx context.Context, publicID string) (models.PublishedResource, error) {
	files, err := c.findByName(ctx, videofile.Key(publicID))
	if err != nil {
		return models.PublishedResource{}, err
	}
	if len(files) == 0 {
		return models.PublishedResource{}, errors.NotFound("video", publicID)
	}
	return toResource(publicID, files[0]), nil
}

func (c *Client) List(ctx context.Context, prefix string) ([]models.PublishedResource, error) {
	q := c.scope()
	if prefix != "" {
		q += fmt.Sprintf(" and name contains '%s'", escapeQuery(prefix))
	}

	out := []models.PublishedResource{}
	err := c.srv.Files.List().
		Q(q).
		Fields(googleapi.Field("nextPageToken, files("+fileFields+")")).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(200).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				id, ok := videofile.PublicID(f.Name)
				if !ok || !strings.HasPrefix(id, prefix) {
					continue
				}
				out = append(out, toResource(id, f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("gdrive list failed: %w", err)
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, publicIDs []string) (models.DeleteResult, error) {
	res := models.DeleteResult{Deleted: make(map[string]string, len(publicIDs))}
	for _, id := range publicIDs {
		files, err := c.findByName(ctx, videofile.Key(id))
		if err != nil {
			return res, err
		}
		if len(files) == 0 {
			res.Deleted[id] = models.DeleteStatusNotFound
			continue
		}
		for _, f := range files {
			err := c.srv.Files.Delete(f.Id).SupportsAllDrives(true).Context(ctx).Do()
			if err != nil && !isNotFound(err) {
				return res, fmt.Errorf("gdrive delete failed: %w", err)
			}
		}
		res.Deleted[id] = models.DeleteStatusDeleted
	}
	return res, nil
}

// Ping checks the credentials by reading the authenticated user.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.srv.About.Get().Fields("user").Context(ctx).Do()
	return err
}

func (c *Client) findByName(ctx context.Context, name string) ([]*drive.File, error) {
	list, err := c.srv.Files.List().
		Q(fmt.Sprintf("%s and name = '%s'", c.scope(), escapeQuery(name))).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gdrive lookup failed: %w", err)
	}
	return list.Files, nil
}

func (c *Client) scope() string {
	q := "trashed = false and mimeType contains 'video/'"
	if c.folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(c.folderID))
	}
	return q
}

func toResource(publicID string, f *drive.File) models.PublishedResource {
	res := models.PublishedResource{
		PublicID:     publicID,
		SecureURL:    f.WebContentLink,
		Format:       videofile.Format(f.Name),
		ResourceType: models.ResourceTypeVideo,
		Bytes:        f.Size,
	}
	if res.SecureURL == "" {
		res.SecureURL = f.WebViewLink
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		res.CreatedAt = t.UTC()
	}
	if m := f.VideoMediaMetadata; m != nil {
		res.Width = int(m.Width)
		res.Height = int(m.Height)
		res.Duration = float64(m.DurationMillis) / 1000
	}
	return res
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
