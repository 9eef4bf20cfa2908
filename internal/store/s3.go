package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/haasonsaas/quarry/pkg/models"
)

// S3Options configures the S3 gateway on top of a loaded AWS config.
type S3Options struct {
	Bucket string

	// Region overrides the region from the AWS config.
	Region string

	// Endpoint points at MinIO or another S3-compatible store.
	Endpoint string

	// UsePathStyle is required by most S3-compatible stores.
	UsePathStyle bool
}

// S3Gateway stores artifacts in an S3 bucket.
type S3Gateway struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Gateway builds the gateway from an already-loaded AWS config.
func NewS3Gateway(awsCfg aws.Config, opts S3Options) (*S3Gateway, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Region != "" {
			o.Region = opts.Region
		}
		if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if opts.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Gateway{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}, nil
}

func (g *S3Gateway) Head(ctx context.Context, key string) (bool, error) {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &g.bucket,
		Key:    &key,
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head object: %w", err)
}

func (g *S3Gateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &g.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, nil
}

func (g *S3Gateway) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: &g.bucket,
		Key:    &key,
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := g.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (g *S3Gateway) Copy(ctx context.Context, srcBucket, srcKey, dstKey string) error {
	if srcBucket == "" {
		srcBucket = g.bucket
	}
	source := url.PathEscape(srcBucket + "/" + srcKey)
	if _, err := g.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &g.bucket,
		Key:        &dstKey,
		CopySource: &source,
	}); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: s3://%s/%s", ErrNotFound, srcBucket, srcKey)
		}
		return fmt.Errorf("s3 copy object: %w", err)
	}
	return nil
}

func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	if _, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &g.bucket,
		Key:    &key,
	}); err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}

func (g *S3Gateway) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: &g.bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

func (g *S3Gateway) PresignUpload(ctx context.Context, fileName string, ttl time.Duration) (*models.UploadGrant, error) {
	key := GrantKey(fileName)
	req, err := g.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: &g.bucket,
		Key:    &key,
	}, func(o *s3.PresignPostOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	fields := make(map[string]string, len(req.Values)+1)
	for k, v := range req.Values {
		fields[k] = v
	}
	fields["key"] = key
	return &models.UploadGrant{URL: req.URL, Fields: fields}, nil
}

func (g *S3Gateway) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &g.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return req.URL, nil
}

func (g *S3Gateway) Bucket() string {
	return g.bucket
}

// isNotFound covers the three shapes S3 reports missing objects in:
// typed NoSuchKey/NotFound errors and the bare "NotFound" API code
// HeadObject returns.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return strings.EqualFold(code, "NotFound") || strings.EqualFold(code, "NoSuchKey")
	}
	return false
}
