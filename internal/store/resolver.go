package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/haasonsaas/quarry/internal/observability"
	"github.com/haasonsaas/quarry/pkg/models"
)

// localSearchDirs are checked, in order, when a bare filename from the
// CLI facade does not exist as given.
var localSearchDirs = []string{"demo/originals", "originals", "documents", "files"}

// Resolver turns caller-supplied document references into store keys.
// Four shapes are accepted: bare keys, s3:// URIs, presigned S3 URLs,
// and (for the CLI facade only) local file paths.
type Resolver struct {
	gateway    Gateway
	httpClient *http.Client
	logger     *observability.Logger

	// allowLocal admits filesystem paths. Only the CLI facade sets it;
	// the HTTP gateway never resolves server-side paths.
	allowLocal bool
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithLocalPaths admits local filesystem references.
func WithLocalPaths() ResolverOption {
	return func(r *Resolver) { r.allowLocal = true }
}

// WithDownloadTimeout bounds presigned-URL downloads.
func WithDownloadTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.httpClient.Timeout = d }
}

// NewResolver builds a resolver for the given gateway.
func NewResolver(gateway Gateway, logger *observability.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		gateway:    gateway,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps ref to a key in the gateway's bucket, copying or
// downloading the bytes when the reference points elsewhere. Failures
// surface as ArtifactUnavailable.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", models.Errorf(models.ErrArtifactUnavailable, "empty document reference")
	}

	if strings.HasPrefix(ref, "s3://") {
		return r.resolveS3URI(ctx, ref)
	}
	if isPresignedURL(ref) {
		return r.resolvePresigned(ctx, ref)
	}
	if r.allowLocal {
		if localPath, ok := findLocalFile(ref); ok {
			return r.uploadLocalFile(ctx, localPath)
		}
	}
	return r.resolveBareKey(ctx, ref)
}

// isPresignedURL matches the URL shape S3 presigned GETs take. Plain
// http(s) URLs without an S3 marker fall through to bare-key handling
// and fail the Head check.
func isPresignedURL(ref string) bool {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return false
	}
	return strings.Contains(ref, "amazonaws.com") || strings.Contains(ref, "s3")
}

func (r *Resolver) resolveS3URI(ctx context.Context, ref string) (string, error) {
	rest := strings.TrimPrefix(ref, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", models.Errorf(models.ErrArtifactUnavailable, "malformed s3 uri %q", ref)
	}

	if bucket == r.gateway.Bucket() {
		return key, nil
	}

	dstKey := UploadedKey(key)
	if err := r.gateway.Copy(ctx, bucket, key, dstKey); err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "copy %s: %v", ref, err)
	}
	r.logger.Info(ctx, "copied foreign object into store", "source", ref, "key", dstKey)
	return dstKey, nil
}

func (r *Resolver) resolvePresigned(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "invalid url: %v", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "download %s: %v", redactQuery(ref), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", models.Errorf(models.ErrArtifactUnavailable, "download %s: status %d", redactQuery(ref), resp.StatusCode)
	}

	name := fileNameFromURL(ref)
	dstKey := UploadedKey(name)
	if err := r.gateway.Put(ctx, dstKey, resp.Body, ContentTypeFor(name)); err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "store downloaded object: %v", err)
	}
	r.logger.Info(ctx, "downloaded presigned object into store", "key", dstKey)
	return dstKey, nil
}

func (r *Resolver) uploadLocalFile(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "open %s: %v", localPath, err)
	}
	defer f.Close()

	dstKey := UploadedKey(filepath.Base(localPath))
	if err := r.gateway.Put(ctx, dstKey, f, ContentTypeFor(localPath)); err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "store local file: %v", err)
	}
	r.logger.Info(ctx, "uploaded local file into store", "path", localPath, "key", dstKey)
	return dstKey, nil
}

func (r *Resolver) resolveBareKey(ctx context.Context, key string) (string, error) {
	exists, err := r.gateway.Head(ctx, key)
	if err != nil {
		return "", models.Errorf(models.ErrArtifactUnavailable, "check %s: %v", key, err)
	}
	if !exists {
		return "", models.Errorf(models.ErrArtifactUnavailable, "no object found for %q", key)
	}
	return key, nil
}

// findLocalFile checks the path as given, relative to the working
// directory, and then the bare filename against the search dirs.
func findLocalFile(ref string) (string, bool) {
	if isRegularFile(ref) {
		return ref, true
	}
	if !filepath.IsAbs(ref) {
		if cwd, err := os.Getwd(); err == nil {
			candidate := filepath.Join(cwd, ref)
			if isRegularFile(candidate) {
				return candidate, true
			}
		}
	}
	base := filepath.Base(ref)
	for _, dir := range localSearchDirs {
		candidate := filepath.Join(dir, base)
		if isRegularFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func fileNameFromURL(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "download"
	}
	return path.Base(parsed.Path)
}

// redactQuery strips the query string, which carries the signature.
func redactQuery(ref string) string {
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		return fmt.Sprintf("%s?[%d query bytes]", ref[:i], len(ref)-i-1)
	}
	return ref
}
