package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	Prefix        string
	PublicBaseURL string
	PreviewTTL    time.Duration
}

// S3Storage keeps uploads as objects; a MediaRef is the object key.
type S3Storage struct {
	client  ObjectAPI
	presign PresignAPI
	cfg     S3Config
	newID   repository.IDFunc
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Storage(client, s3.NewPresignClient(client), cfg), nil
}

func newS3Storage(client ObjectAPI, presign PresignAPI, cfg S3Config) *S3Storage {
	return &S3Storage{
		client:  client,
		presign: presign,
		cfg:     cfg,
		newID:   uuid.NewString,
	}
}

func (s *S3Storage) Upload(ctx context.Context, file model.Upload) (model.MediaRef, error) {
	key := s.cfg.Prefix + s.newID() + strings.ToLower(path.Ext(file.Name))

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Data),
		ContentType:   aws.String(file.ContentType),
		ContentLength: aws.Int64(int64(len(file.Data))),
	}); err != nil {
		return "", repository.Unavailable(fmt.Errorf("failed to upload object: %w", err))
	}

	return model.MediaRef(key), nil
}

func (s *S3Storage) Delete(ctx context.Context, ref model.MediaRef) error {
	if ref == "" || ref.IsResolved() {
		return nil
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref.String()),
	}); err != nil {
		return repository.Unavailable(fmt.Errorf("failed to delete object: %w", err))
	}
	return nil
}

// PreviewURL returns a time-limited signed URL for ref.
func (s *S3Storage) PreviewURL(ctx context.Context, ref model.MediaRef) (string, error) {
	if ref.IsResolved() {
		return ref.String(), nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref.String()),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.cfg.PreviewTTL
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}

	return req.URL, nil
}

// PublicURL builds the unsigned URL of ref. It only loads when the bucket allows public reads.
// A custom endpoint is addressed path-style, as the client does.
func (s *S3Storage) PublicURL(ref model.MediaRef) string {
	if ref.IsResolved() {
		return ref.String()
	}

	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	switch {
	case base != "":
	case s.cfg.Endpoint != "":
		base = strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
	default:
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.cfg.Bucket, s.cfg.Region)
	}
	return base + "/" + strings.TrimLeft(ref.String(), "/")
}
