package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wylm-portal/internal/core/config"
)

// ObjectStore 作品图片存 MinIO / S3 兼容存储
type ObjectStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinio(ctx context.Context, c config.Storage) (*ObjectStore, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", c.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", c.Bucket, err)
		}
	}

	base := strings.TrimRight(c.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if c.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + c.Endpoint + "/" + c.Bucket
	}
	return &ObjectStore{client: client, bucket: c.Bucket, publicURL: base}, nil
}

// Put 以 prefix/yyyy/mm/uuid.ext 命名上传，返回对外 URL
func (s *ObjectStore) Put(ctx context.Context, prefix, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(prefix, filename, time.Now())
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func ObjectKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(prefix, now.Format("2006/01"), uuid.NewString()+ext)
}
