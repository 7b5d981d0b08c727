package staging

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/avolkhov/meteoflow/internal/pkg/errno"
	"github.com/avolkhov/meteoflow/internal/pkg/log"
)

// MinIOOptions configures the MinIO-backed store.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore implements Store on a MinIO (or any S3-compatible) service.
type MinIOStore struct {
	client *minio.Client
	bucket string
	logger log.Logger
}

var _ Store = (*MinIOStore)(nil)

// NewMinIO connects to the object-storage service. It does not touch the
// bucket; call EnsureBucket before first use.
func NewMinIO(opts *MinIOOptions, logger log.Logger) (*MinIOStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, errno.ErrStagingUnavailable.Wrap(err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &MinIOStore{client: client, bucket: opts.Bucket, logger: logger}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errno.ErrStagingUnavailable.Wrap(err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errno.ErrStagingUnavailable.Wrap(err)
	}
	s.logger.Infow("Created staging bucket", "bucket", s.bucket)
	return nil
}

func (s *MinIOStore) Put(ctx context.Context, object string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errno.ErrStagingUnavailable.Wrap(err)
	}
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, object string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, errno.ErrStagingUnavailable.Wrap(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errno.ErrArtifactNotFound.WithMessage("artifact %s not found", object)
		}
		return nil, errno.ErrStagingUnavailable.Wrap(err)
	}
	return data, nil
}

func (s *MinIOStore) Exists(ctx context.Context, object string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, object, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errno.ErrStagingUnavailable.Wrap(err)
	}
	return true, nil
}
