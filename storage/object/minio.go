// Package objectstore provides the submission artifact store.
package objectstore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

type minioStorage struct {
	client *minio.Client
	bucket string
}

var _ core.FileStorage = (*minioStorage)(nil)

// NewMinioStorage connects to the object store and ensures the bucket exists.
func NewMinioStorage(conf *core.Config) (*minioStorage, error) {
	client, err := minio.New(conf.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		Secure: conf.Storage.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating object store client")
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, conf.Storage.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Storage.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}
	return &minioStorage{client: client, bucket: conf.Storage.Bucket}, nil
}

func (s *minioStorage) Save(ctx context.Context, path, contentType string, size int64, content io.Reader) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, path, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, "storing object")
	}
	return info.Key, nil
}

func (s *minioStorage) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, "removing object")
	}
	return nil
}
