// Package storage keeps avatar images in an S3-compatible object store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/coursesell/internal/server/config"
	"github.com/dmitrijs2005/coursesell/internal/server/models"
	"github.com/google/uuid"
)

// ObjectStorage stores and releases avatar images.
type ObjectStorage interface {
	Upload(ctx context.Context, name, contentType string, body []byte) (models.Avatar, error)
	Delete(ctx context.Context, id string) error
}

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Storage builds a client for the configured endpoint using static
// credentials, with path-style addressing so MinIO works out of the box.
func NewS3Storage(ctx context.Context, c *sc.Config) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:    client,
		bucket:    c.S3Bucket,
		publicURL: strings.TrimRight(c.S3PublicURL, "/"),
		now:       time.Now,
	}, nil
}

func (s *S3Storage) storageKey() string {
	d := s.now()
	return fmt.Sprintf("avatars/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Upload stores body under a fresh key. name is kept as object metadata only.
func (s *S3Storage) Upload(ctx context.Context, name, contentType string, body []byte) (models.Avatar, error) {
	if len(body) == 0 {
		return models.Avatar{}, fmt.Errorf("empty upload")
	}

	key := s.storageKey()
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata:      map[string]string{"filename": name},
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return models.Avatar{}, fmt.Errorf("put object: %w", err)
	}

	return models.Avatar{ID: key, URL: s.publicURL + "/" + key}, nil
}

// Delete removes the object. An empty id means there is nothing to release.
func (s *S3Storage) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
