// Package publish uploads summary artifacts to S3-compatible storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// defaultRegion skips the bucket location lookup, which most
// S3-compatible servers do not implement.
const defaultRegion = "us-east-1"

// Publisher uploads files of a results root into a bucket.
type Publisher struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a publisher for cfg. Without explicit keys the credentials
// are taken from the MINIO_* or AWS_* environment variables.
func New(cfg config.Publish) (*Publisher, error) {
	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvMinio{},
		&credentials.EnvAWS{},
	})
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.Secure,
		Region: defaultRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client for %s: %w", cfg.Endpoint, err)
	}
	return &Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey returns <prefix>/<root name>/<file name>.
func ObjectKey(prefix, root, file string) string {
	return path.Join(prefix, filepath.Base(root), filepath.Base(file))
}

// Publish uploads files. Every file is attempted; the errors are joined.
func (p *Publisher) Publish(ctx context.Context, root string, files ...string) error {
	var errs []error
	for _, file := range files {
		key := ObjectKey(p.prefix, root, file)
		contentType := mime.TypeByExtension(filepath.Ext(file))
		if contentType == "" {
			contentType = "text/plain"
		}
		info, err := p.client.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to upload %s: %w", file, err))
			continue
		}
		logger.Info(ctx, "Uploaded results file",
			tag.File(file),
			tag.URL(fmt.Sprintf("s3://%s/%s", p.bucket, key)),
			tag.Size(int(info.Size)),
		)
	}
	return errors.Join(errs...)
}
