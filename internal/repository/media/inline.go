package media

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

var ErrTooLarge = errors.New("file is too large")

// InlineStorage embeds uploads into the post document as base64 data URLs.
type InlineStorage struct {
	maxBytes int
}

func NewInlineStorage(maxBytes int) *InlineStorage {
	return &InlineStorage{
		maxBytes: maxBytes,
	}
}

func (s *InlineStorage) Upload(ctx context.Context, file model.Upload) (model.MediaRef, error) {
	if s.maxBytes > 0 && len(file.Data) > s.maxBytes {
		return "", ErrTooLarge
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(file.Data).String()
	}

	return model.MediaRef("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(file.Data)), nil
}

// Delete is a no-op: the data lives inside the post.
func (s *InlineStorage) Delete(ctx context.Context, ref model.MediaRef) error {
	return nil
}

func (s *InlineStorage) PreviewURL(ctx context.Context, ref model.MediaRef) (string, error) {
	return ref.String(), nil
}

func (s *InlineStorage) PublicURL(ref model.MediaRef) string {
	return ref.String()
}
