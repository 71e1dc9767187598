package service

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/repository/media"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var imageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type mediaService struct {
	logger     *zap.Logger
	repo       *repository.Repository
	httpClient *http.Client
}

func newMediaService(logger *zap.Logger, repo *repository.Repository, httpClient *http.Client) Media {
	return &mediaService{
		logger:     logger,
		repo:       repo,
		httpClient: httpClient,
	}
}

func (s *mediaService) UploadFile(ctx context.Context, file model.Upload) (model.MediaRef, error) {
	mt := mimetype.Detect(file.Data)
	if !mimetype.EqualsAny(mt.String(), imageTypes...) {
		return "", ErrFileMustBeImage
	}

	file.ContentType = mt.String()
	if path.Ext(file.Name) == "" {
		file.Name += mt.Extension()
	}

	ref, err := s.repo.Media.Upload(ctx, file)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) {
			return "", err
		}
		s.logger.Sugar().Errorf("failed to upload file(%s): %s", file.Name, err.Error())
		return "", ErrInternal
	}

	return ref, nil
}

func (s *mediaService) DeleteFile(ctx context.Context, ref model.MediaRef) bool {
	if ref == "" {
		return true
	}

	if err := s.repo.Media.Delete(ctx, ref); err != nil {
		s.logger.Sugar().Errorf("failed to delete file(%s): %s", ref.String(), err.Error())
		return false
	}
	return true
}

// GetFilePreview returns a source usable as an image, or "" when ref cannot be resolved.
func (s *mediaService) GetFilePreview(ctx context.Context, ref model.MediaRef) string {
	if ref == "" {
		return ""
	}
	if ref.IsResolved() {
		return ref.String()
	}

	url, err := s.repo.Media.PreviewURL(ctx, ref)
	if err != nil {
		s.logger.Sugar().Errorf("failed to get preview of file(%s): %s", ref.String(), err.Error())
		return ""
	}
	return url
}

func (s *mediaService) GetPublicFileURL(ref model.MediaRef) string {
	if ref == "" {
		return ""
	}
	return s.repo.Media.PublicURL(ref)
}

// ResolveImage probes the preview URL and falls back to the public URL when access to the
// preview is denied. It returns "" when neither loads. Only URLs built by the media driver
// are probed: a ref that is already a URL is returned as is.
func (s *mediaService) ResolveImage(ctx context.Context, ref model.MediaRef) string {
	if ref == "" || ref.IsResolved() {
		return ref.String()
	}

	preview := s.GetFilePreview(ctx, ref)
	if preview == "" || !isHTTP(preview) {
		return preview
	}

	status, err := s.probe(ctx, preview)
	if err != nil {
		s.logger.Sugar().Errorf("failed to probe preview of file(%s): %s", ref.String(), err.Error())
		return ""
	}
	if isSuccess(status) {
		return preview
	}
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return ""
	}

	public := s.GetPublicFileURL(ref)
	if public == "" || public == preview {
		return ""
	}
	status, err = s.probe(ctx, public)
	if err != nil {
		s.logger.Sugar().Errorf("failed to probe public url of file(%s): %s", ref.String(), err.Error())
		return ""
	}
	if isSuccess(status) {
		return public
	}
	return ""
}

func (s *mediaService) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
