package media

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vidstream/gateway/internal/config"
)

// Buckets the gateway owns. Videos holds the raw uploads, Previews holds the
// PNG frames generated by the external worker.
const (
	VideosBucket   = "videos"
	PreviewsBucket = "previews"
)

// Error carries the status code reported by the object store so handlers can
// pass it through to the client.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

type Service struct {
	client *minio.Client
}

// NewService creates a media store client backed by MinIO.
func NewService(cfg *config.Config) (*Service, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Service{client: client}, nil
}

// EnsureBuckets creates the videos and previews buckets when missing.
func (s *Service) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{VideosBucket, PreviewsBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check if bucket %q exists: %w", bucket, err)
		}

		if !exists {
			err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
			if err != nil {
				return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
			}
		}
	}

	return nil
}

// Put streams an object into a bucket without buffering it in memory. The
// size may be -1 when the total length is unknown up front; the number of
// bytes actually stored is returned.
func (s *Service) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) (int64, error) {
	info, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, wrapError(err)
	}

	return info.Size, nil
}

// Get returns a reader over a whole object together with its content type.
func (s *Service) Get(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	return s.get(ctx, bucket, key, minio.GetObjectOptions{})
}

// GetRange returns a reader over the byte span [start, end] of an object,
// both bounds inclusive, together with its content type.
func (s *Service) GetRange(ctx context.Context, bucket, key string, start, end int64) (io.ReadCloser, string, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, "", fmt.Errorf("failed to set object range: %w", err)
	}

	return s.get(ctx, bucket, key, opts)
}

func (s *Service) get(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, string, error) {
	object, err := s.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, "", wrapError(err)
	}

	// GetObject is lazy; Stat forces the request so missing keys surface
	// here instead of on first read.
	info, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, "", wrapError(err)
	}

	return object, info.ContentType, nil
}

// Remove deletes a single object from a bucket.
func (s *Service) Remove(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return wrapError(err)
	}
	return nil
}

// wrapError converts a MinIO error into a media.Error keeping the reported
// HTTP status code.
func wrapError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == 0 {
		return err
	}

	return &Error{
		StatusCode: resp.StatusCode,
		Message:    resp.Message,
	}
}
