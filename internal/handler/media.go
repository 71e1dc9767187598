package handler

import (
	"net/http"
	"strings"

	"github.com/BloggingApp/megablog/internal/dto"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/gin-gonic/gin"
)

func (h *Handler) mediaUpload(c *gin.Context) {
	image, err := h.readUpload(c, "image")
	if err != nil {
		uploadError(c, err)
		return
	}
	if image == nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, errMissingImage.Error()))
		return
	}

	ctx := c.Request.Context()
	ref, err := h.services.UploadFile(ctx, *image)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.MediaResponse{
		Ref:        ref,
		PreviewURL: h.services.GetFilePreview(ctx, ref),
		PublicURL:  h.services.GetPublicFileURL(ref),
	})
}

func (h *Handler) mediaResolve(c *gin.Context) {
	ref := model.MediaRef(strings.TrimSpace(c.Query("ref")))
	if ref == "" {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, errMissingRef.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.ResolveResponse{
		Ref: ref,
		URL: h.services.ResolveImage(c.Request.Context(), ref),
	})
}
