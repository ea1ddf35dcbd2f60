package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Objects keeps the ledger object in an S3-compatible bucket. S3 object
// PUTs are atomic, which is all the persistence contract needs.
type S3Objects struct {
	client *minio.Client
	bucket string
	key    string
}

var _ ObjectStore = (*S3Objects)(nil)

func NewS3Objects(client *minio.Client, bucket, key string) *S3Objects {
	return &S3Objects{client: client, bucket: bucket, key: key}
}

// NewS3Client dials an S3-compatible endpoint with static credentials. The
// region may be blank for endpoints that do not care.
func NewS3Client(endpoint, accessKey, secretKey, region string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
}

func (s *S3Objects) Get(ctx context.Context) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, s.key, err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "NoSuchKey" || code == "NoSuchBucket" {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("s3 read %s/%s: %w", s.bucket, s.key, err)
	}
	return body, nil
}

func (s *S3Objects) Put(ctx context.Context, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
