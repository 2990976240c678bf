// Package files загружает текст файлов (SQL-запросов) по пути:
// локальному или s3://bucket/key.
package files

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Loader возвращает содержимое файла как есть
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// Local читает файлы локальной файловой системы
type Local struct{}

// Load реализует Loader
func (Local) Load(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(data), nil
}

// S3 читает объекты S3 через manager.Downloader
type S3 struct {
	downloader *manager.Downloader
}

// NewS3 создает загрузчик поверх клиента S3
func NewS3(client manager.DownloadAPIClient) *S3 {
	return &S3{downloader: manager.NewDownloader(client)}
}

// Load реализует Loader для путей вида s3://bucket/key
func (s *S3) Load(ctx context.Context, path string) (string, error) {
	bucket, key, err := ParseS3URL(path)
	if err != nil {
		return "", err
	}

	buf := manager.NewWriteAtBuffer(nil)
	_, err = s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", path, err)
	}
	return string(buf.Bytes()), nil
}

// ParseS3URL разбирает s3://bucket/key
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: expected s3://bucket/key", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q: empty key", raw)
	}
	return u.Host, key, nil
}

// Resolver выбирает загрузчик по схеме пути
type Resolver struct {
	local  Loader
	remote Loader // nil = s3:// не поддерживается
}

// NewResolver создает Resolver; s3 может быть nil
func NewResolver(s3 Loader) *Resolver {
	return &Resolver{local: Local{}, remote: s3}
}

// Load реализует Loader
func (r *Resolver) Load(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, "s3://") {
		if r.remote == nil {
			return "", fmt.Errorf("s3 loader is not configured for %s", path)
		}
		return r.remote.Load(ctx, path)
	}
	return r.local.Load(ctx, path)
}
