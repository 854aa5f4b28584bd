// Package imagestore saves uploaded book covers and author portraits and
// hands back the URL the catalog records for them.
package imagestore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bookauthor/internal/config"
)

var ErrNotImage = errors.New("uploaded file is not an image")

// Store persists an image and returns its public URL.
type Store interface {
	Put(ctx context.Context, filename, contentType string, body io.Reader, size int64) (string, error)
}

// New returns the store selected by configuration: S3 when IMAGE_BUCKET is
// set, a local directory when IMAGE_DIR is set, otherwise nil.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch {
	case cfg.ImageBucket != "":
		s, err := NewS3Store(ctx, S3Options{
			Bucket:    cfg.ImageBucket,
			Region:    cfg.ImageRegion,
			Endpoint:  cfg.ImageEndpoint,
			PublicURL: cfg.ImagePublicURL,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfg.ImageDir != "":
		d, err := NewDirStore(cfg.ImageDir, cfg.ImagePublicURL)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, nil
	}
}

var allowedExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// objectKey names the stored object. Client file names are never used
// verbatim, only their extension when it agrees with the content type.
func objectKey(filename, contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := allowedExt[ct]
	if !ok {
		return "", ErrNotImage
	}
	if e := strings.ToLower(filepath.Ext(filename)); e == ".jpeg" && ext == ".jpg" {
		ext = e
	}
	return uuid.NewString() + ext, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
