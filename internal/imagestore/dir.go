package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultDirURL is where the web front-end serves a local image directory.
const DefaultDirURL = "/images"

// DirStore writes images into a local directory.
type DirStore struct {
	dir       string
	publicURL string
}

func NewDirStore(dir, publicURL string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	if publicURL == "" {
		publicURL = DefaultDirURL
	}
	return &DirStore{dir: dir, publicURL: publicURL}, nil
}

func (d *DirStore) Dir() string { return d.dir }

func (d *DirStore) Put(ctx context.Context, filename, contentType string, body io.Reader, _ int64) (string, error) {
	key, err := objectKey(filename, contentType)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, key)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return joinURL(d.publicURL, key), nil
}
