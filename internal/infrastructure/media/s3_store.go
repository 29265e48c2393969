package media

import (
	"context"
	"fmt"
	"strings"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"
	"coursebundler/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

type S3Config struct {
	Region string
	Bucket string
	// PublicBaseURL overrides the virtual-hosted bucket URL, e.g. a CDN origin.
	PublicBaseURL string
}

// objectAPI is the slice of the S3 client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Store struct {
	client  objectAPI
	bucket  string
	baseURL string
	logger  *zap.SugaredLogger
}

func NewS3Store(ctx context.Context, cfg S3Config, logger *zap.SugaredLogger) (ports.MediaStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(awsCfg), cfg, logger), nil
}

func newS3Store(client objectAPI, cfg S3Config, logger *zap.SugaredLogger) *S3Store {
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (s *S3Store) Upload(ctx context.Context, kind domain.MediaKind, file *domain.Upload) (domain.MediaRef, error) {
	ctx, span := tracing.TraceExternalCall(ctx, "s3", "put_object")
	defer span.End()

	key := objectKey(kind, file.Filename, utils.Now())
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file.Body,
		ContentType: aws.String(file.ContentType),
		Metadata: map[string]string{
			"original-filename": file.Filename,
			"media-kind":        string(kind),
		},
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		tracing.RecordError(ctx, err)
		return domain.MediaRef{}, fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Debugw("media uploaded", "key", key, "kind", kind, "size", file.Size)
	return domain.MediaRef{PublicID: key, URL: s.baseURL + "/" + key}, nil
}

func (s *S3Store) Destroy(ctx context.Context, kind domain.MediaKind, ref domain.MediaRef) error {
	if ref.IsZero() {
		return nil
	}
	ctx, span := tracing.TraceExternalCall(ctx, "s3", "delete_object")
	defer span.End()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.PublicID),
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	s.logger.Debugw("media destroyed", "key", ref.PublicID, "kind", kind)
	return nil
}
