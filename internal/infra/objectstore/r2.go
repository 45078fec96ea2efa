package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtcinsights/dtc-insights/internal/domain/history"
)

// R2Archive stores CSV exports in an S3 compatible bucket (Cloudflare R2,
// MinIO).
type R2Archive struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

// R2Options describes the bucket.
type R2Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// NewR2Archive constructs the archive adapter.
func NewR2Archive(opts R2Options, logger *slog.Logger) (*R2Archive, error) {
	endpoint := sanitizeEndpoint(opts.Endpoint)
	secure := opts.UseSSL || strings.HasPrefix(strings.ToLower(opts.Endpoint), "https")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       secure,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init export archive client: %w", err)
	}
	return &R2Archive{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		logger: logger.With("component", "objectstore.r2"),
	}, nil
}

func (a *R2Archive) ensureBucket(ctx context.Context) error {
	a.bucketOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err == nil && exists {
			return
		}
		err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			a.bucketErr = err
		}
	})
	return a.bucketErr
}

// Save uploads the export under prefix/owner/<id>/<filename>.
func (a *R2Archive) Save(ctx context.Context, owner string, exp history.Export) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure export bucket: %w", err)
	}
	key := objectKey(a.prefix, owner, exp.Filename)
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(exp.Content), int64(len(exp.Content)), minio.PutObjectOptions{
		ContentType:      history.ExportContentType,
		DisableMultipart: true,
		UserMetadata:     map[string]string{"rows": fmt.Sprint(exp.Rows)},
	})
	if err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	a.logger.Info("export archived", "key", key, "size", info.Size)
	return key, nil
}

var _ history.ExportArchive = (*R2Archive)(nil)

// sanitizeEndpoint strips scheme and path, which minio.New rejects.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
