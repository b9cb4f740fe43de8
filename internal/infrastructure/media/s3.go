package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/shopsence/user-service/internal/api/metrics"
	"github.com/shopsence/user-service/internal/core/domain"
)

const avatarPrefix = "avatars/"

// Config describes the bucket avatars are stored in. Endpoint is only set for
// S3-compatible hosts such as MinIO or R2.
type Config struct {
	Region        string
	Bucket        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// S3Store keeps avatars in an S3 bucket and serves them from PublicBaseURL.
type S3Store struct {
	api     objectAPI
	bucket  string
	baseURL string
}

// NewS3Store builds the S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("media: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(api objectAPI, cfg Config) *S3Store {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = defaultPublicURL(cfg)
	}
	return &S3Store{api: api, bucket: cfg.Bucket, baseURL: base}
}

func defaultPublicURL(cfg Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Upload stores file under a random key and returns its public URL. The key
// doubles as the asset id.
func (s *S3Store) Upload(ctx context.Context, file *domain.UploadFile) (asset domain.Asset, err error) {
	defer func() { metrics.AvatarOperationsTotal.WithLabelValues("upload", metrics.Outcome(err)).Inc() }()

	if file == nil || file.Body == nil {
		return domain.Asset{}, errors.New("media: empty upload")
	}

	key := avatarPrefix + uuid.NewString() + strings.ToLower(path.Ext(file.Name))
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file.Body,
	}
	if file.ContentType != "" {
		in.ContentType = aws.String(file.ContentType)
	}
	if file.Size > 0 {
		in.ContentLength = aws.Int64(file.Size)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return domain.Asset{}, fmt.Errorf("media: put object: %w", err)
	}

	return domain.Asset{URL: s.baseURL + "/" + key, ID: key}, nil
}

// Delete removes the object with the given asset id.
func (s *S3Store) Delete(ctx context.Context, assetID string) (err error) {
	defer func() { metrics.AvatarOperationsTotal.WithLabelValues("delete", metrics.Outcome(err)).Inc() }()

	if assetID == "" {
		return nil
	}
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	}); err != nil {
		return fmt.Errorf("media: delete object: %w", err)
	}
	return nil
}
