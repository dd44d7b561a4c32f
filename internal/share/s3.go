package share

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"agriledger/internal/config"
	"agriledger/internal/ledger"
)

// Uploader is the part of manager.Uploader the S3 sharer needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sharer uploads archives to an S3 (or S3-compatible) bucket under
// <prefix><displayName>. Large archives go up as multipart uploads.
type S3Sharer struct {
	bucket   string
	prefix   string
	uploader Uploader
	logger   ledger.Logger
}

// NewS3Sharer builds an S3 client from the default AWS credential chain.
// Static keys in the config take precedence over the chain; an endpoint
// switches the client to path-style addressing for MinIO and friends.
func NewS3Sharer(ctx context.Context, cfg config.ShareConfig, logger ledger.Logger) (*S3Sharer, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3SharerWithUploader(cfg.S3Bucket, cfg.S3Prefix, manager.NewUploader(client), logger), nil
}

// NewS3SharerWithUploader creates an S3Sharer around an existing uploader.
func NewS3SharerWithUploader(bucket, prefix string, uploader Uploader, logger ledger.Logger) *S3Sharer {
	return &S3Sharer{bucket: bucket, prefix: prefix, uploader: uploader, logger: logger}
}

func (s *S3Sharer) Available(context.Context) bool {
	return s.bucket != "" && s.uploader != nil
}

func (s *S3Sharer) Share(ctx context.Context, localPath, displayName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	key := s.key(displayName)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(displayName)),
	})
	if err != nil {
		return fmt.Errorf("uploading to s3://%s/%s: %w", s.bucket, key, err)
	}
	s.logger.Info("archive uploaded", "bucket", s.bucket, "key", key)
	return nil
}

func (s *S3Sharer) key(displayName string) string {
	name := path.Base(displayName)
	if s.prefix == "" {
		return name
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + name
}

func contentType(name string) string {
	if strings.HasSuffix(name, ledger.ArchiveExtension) {
		return ledger.ContentTypeSealed
	}
	return ledger.ContentTypeZip
}

var _ ledger.Sharer = (*S3Sharer)(nil)
