package media

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeObjects struct {
	put     *s3.PutObjectInput
	deleted []string
	err     error
}

func (f *fakeObjects) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = params
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://signed.example/" + aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key) + "?X-Amz-Signature=abc",
		Method: "GET",
	}, nil
}

func newTestS3(objects *fakeObjects, presign *fakePresigner, cfg S3Config) *S3Storage {
	s := newS3Storage(objects, presign, cfg)
	s.newID = func() string { return "fixed" }
	return s
}

func TestS3Storage(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{}
	presign := &fakePresigner{}
	storage := newTestS3(objects, presign, S3Config{
		Bucket:     "media",
		Region:     "eu-west-1",
		Prefix:     "posts/",
		PreviewTTL: 15 * time.Minute,
	})

	ref, err := storage.Upload(ctx, model.Upload{Name: "Cover.PNG", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, model.MediaRef("posts/fixed.png"), ref)
	assert.Equal(t, "media", aws.ToString(objects.put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(objects.put.ContentType))

	preview, err := storage.PreviewURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/media/posts/fixed.png?X-Amz-Signature=abc", preview)
	assert.Equal(t, 15*time.Minute, presign.expires)

	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/posts/fixed.png", storage.PublicURL(ref))

	require.NoError(t, storage.Delete(ctx, ref))
	require.NoError(t, storage.Delete(ctx, "data:image/png;base64,AAAA"))
	assert.Equal(t, []string{"posts/fixed.png"}, objects.deleted)
}

func TestS3StoragePassesResolvedRefsThrough(t *testing.T) {
	storage := newTestS3(&fakeObjects{}, &fakePresigner{}, S3Config{Bucket: "media", PublicBaseURL: "https://cdn.example/"})

	preview, err := storage.PreviewURL(context.Background(), "https://elsewhere.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere.example/a.png", preview)
	assert.Equal(t, "https://cdn.example/posts/a.png", storage.PublicURL("posts/a.png"))
}

func TestS3StoragePublicURLOnCustomEndpoint(t *testing.T) {
	storage := newTestS3(&fakeObjects{}, &fakePresigner{}, S3Config{
		Bucket:   "media",
		Region:   "us-east-1",
		Endpoint: "http://minio:9000/",
	})
	assert.Equal(t, "http://minio:9000/media/posts/a.png", storage.PublicURL("posts/a.png"))

	storage = newTestS3(&fakeObjects{}, &fakePresigner{}, S3Config{
		Bucket:        "media",
		Endpoint:      "http://minio:9000",
		PublicBaseURL: "https://cdn.example",
	})
	assert.Equal(t, "https://cdn.example/posts/a.png", storage.PublicURL("posts/a.png"))
}

func TestS3StorageUploadFailure(t *testing.T) {
	storage := newTestS3(&fakeObjects{err: errors.New("access denied")}, &fakePresigner{}, S3Config{Bucket: "media"})

	_, err := storage.Upload(context.Background(), model.Upload{Name: "a.png", Data: pngHeader})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestInlineStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewInlineStorage(64)

	ref, err := storage.Upload(ctx, model.Upload{Name: "a.png", Data: pngHeader})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref.String(), "data:image/png;base64,"))
	assert.True(t, ref.IsResolved())

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref.String(), "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, raw)

	preview, err := storage.PreviewURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ref.String(), preview)
	assert.Equal(t, ref.String(), storage.PublicURL(ref))
	assert.NoError(t, storage.Delete(ctx, ref))

	_, err = storage.Upload(ctx, model.Upload{Data: make([]byte, 65)})
	assert.ErrorIs(t, err, ErrTooLarge)
}
