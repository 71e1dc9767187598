package handler

import (
	"errors"
	"net/http"

	"github.com/BloggingApp/megablog/internal/dto"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/repository/media"
	"github.com/BloggingApp/megablog/internal/service"
	"github.com/gin-gonic/gin"
)

var (
	errNotAuthorized = errors.New("user is not authorized")
	errPostNotFound  = errors.New("post not found")
	errMissingRef    = errors.New("ref is required")
	errMissingImage  = errors.New("image is required")
)

var authStatuses = map[repository.AuthReason]int{
	repository.ReasonInvalidCredential: http.StatusUnauthorized,
	repository.ReasonSessionExpired:    http.StatusUnauthorized,
	repository.ReasonTooManyRequests:   http.StatusTooManyRequests,
	repository.ReasonNetwork:           http.StatusServiceUnavailable,
}

// uploadError answers a request whose form or file could not be read.
func uploadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		err = media.ErrTooLarge
	}
	if errors.Is(err, media.ErrTooLarge) {
		abortWithError(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
}

// abortWithError writes err with the status its kind maps to.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	details := err.Error()

	if reason, ok := repository.AuthReasonOf(err); ok {
		status = http.StatusBadRequest
		if s, ok := authStatuses[reason]; ok {
			status = s
		}
		details = service.AuthMessage(err)
	} else {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrNotAuthor):
			status = http.StatusForbidden
		case errors.Is(err, repository.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, media.ErrTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, service.ErrInvalidTitle),
			errors.Is(err, service.ErrMissingContent),
			errors.Is(err, service.ErrMissingAuthor),
			errors.Is(err, service.ErrFileMustBeImage),
			errors.Is(err, service.ErrEmptyUpdate),
			errors.Is(err, service.ErrInvalidStatus):
			status = http.StatusBadRequest
		}
	}

	c.AbortWithStatusJSON(status, dto.NewBasicResponse(false, details))
}
