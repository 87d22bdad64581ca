// Package avatars stores user avatar images in an S3-compatible bucket and
// returns the public URL persisted on the user record.
package avatars

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/contacthub/contacthub/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return client.PutObject(ctx, in)
	}
)

// Store uploads an avatar and returns its public URL.
type Store interface {
	Upload(ctx context.Context, userID, contentType string, body io.Reader) (string, error)
}

// S3Store implements Store against any S3-compatible backend (MinIO in the
// development compose file).
type S3Store struct {
	rootUser     string
	rootPassword string
	bucket       string
	region       string
	baseEndpoint string
}

func NewS3Store(rootUser, rootPassword, bucket, region, baseEndpoint string) *S3Store {
	return &S3Store{
		rootUser:     rootUser,
		rootPassword: rootPassword,
		bucket:       bucket,
		region:       region,
		baseEndpoint: baseEndpoint,
	}
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.rootUser,
			s.rootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.baseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func randomStorageKey(userID string) (string, error) {
	suffix, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("avatars/%s/%s", userID, suffix), nil
}

// Upload stores the image under a fresh key so stale CDN caches never serve
// an old avatar, and returns the resulting public URL.
func (s *S3Store) Upload(ctx context.Context, userID, contentType string, body io.Reader) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	key, err := randomStorageKey(userID)
	if err != nil {
		return "", err
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.baseEndpoint, "/"), s.bucket, key), nil
}
