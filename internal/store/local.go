package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/quarry/pkg/models"
)

// LocalGateway stores artifacts on the local filesystem, keeping the
// same key layout as the S3 backend. It backs the CLI facade and
// tests; upload grants point at the gateway's own upload endpoint.
type LocalGateway struct {
	root string
}

// NewLocalGateway creates a directory-backed gateway.
func NewLocalGateway(root string) (*LocalGateway, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local store directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &LocalGateway{root: root}, nil
}

func (g *LocalGateway) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(g.root, cleaned), nil
}

func (g *LocalGateway) Head(ctx context.Context, key string) (bool, error) {
	p, err := g.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

func (g *LocalGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := g.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// Put writes through a temp file and renames so readers never observe
// a partial object.
func (g *LocalGateway) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	p, err := g.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp := p + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("rename object: %w", err)
	}
	return nil
}

func (g *LocalGateway) Copy(ctx context.Context, srcBucket, srcKey, dstKey string) error {
	if srcBucket != "" {
		return fmt.Errorf("%w: cross-bucket copy from %q", ErrUnsupported, srcBucket)
	}
	src, err := g.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	return g.Put(ctx, dstKey, src, ContentTypeFor(srcKey))
}

func (g *LocalGateway) Delete(ctx context.Context, key string) error {
	p, err := g.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (g *LocalGateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(g.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(g.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) || strings.HasSuffix(key, ".tmp") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return objects, nil
}

// PresignUpload returns a grant aimed at the gateway's own /upload
// handler, which accepts the same multipart POST shape as S3.
func (g *LocalGateway) PresignUpload(ctx context.Context, fileName string, ttl time.Duration) (*models.UploadGrant, error) {
	return &models.UploadGrant{
		URL:    "/upload",
		Fields: map[string]string{"key": GrantKey(fileName)},
	}, nil
}

func (g *LocalGateway) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	exists, err := g.Head(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return "/artifacts/" + key, nil
}

func (g *LocalGateway) Bucket() string {
	return ""
}
