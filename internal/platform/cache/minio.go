package cache

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// MinioStore keeps one object per key in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, crerr.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, crerr.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, crerr.Wrap(err, "create minio client")
	}

	s := &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return crerr.Wrapf(err, "check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return crerr.Wrapf(err, "create bucket %s", s.bucket)
	}
	return nil
}

func (s *MinioStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	name, err := s.objectName(key)
	if err != nil {
		return nil, false, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, false, nil
		}
		return nil, false, crerr.Wrapf(err, "get object %s", name)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, false, nil
		}
		return nil, false, crerr.Wrapf(err, "read object %s", name)
	}
	return payload, true, nil
}

func (s *MinioStore) Write(ctx context.Context, key string, payload []byte) error {
	name, err := s.objectName(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return crerr.Wrapf(err, "put object %s", name)
	}
	return nil
}

func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	name, err := s.objectName(key)
	if err != nil {
		return false, err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, crerr.Wrapf(err, "stat object %s", name)
	}
	return true, nil
}

func (s *MinioStore) objectName(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if s.prefix == "" {
		return key, nil
	}
	return path.Join(s.prefix, key), nil
}

// isMinioNotFound reports a missing object only; a missing bucket is a
// misconfiguration and surfaces as an error.
func isMinioNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
