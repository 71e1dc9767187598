package handler

import (
	"net/http"
	"strings"

	"github.com/BloggingApp/megablog/internal/dto"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/gin-gonic/gin"
)

func (h *Handler) postsFeed(c *gin.Context) {
	user := h.getUserFromRequest(c)

	c.JSON(http.StatusOK, h.services.Feed(c.Request.Context(), viewerID(user)))
}

func (h *Handler) postsGetBySlug(c *gin.Context) {
	user := h.getUserFromRequest(c)

	props := h.services.Detail(c.Request.Context(), strings.TrimSpace(c.Param("slug")), viewerID(user))
	if props == nil {
		c.JSON(http.StatusNotFound, dto.NewBasicResponse(false, errPostNotFound.Error()))
		return
	}

	c.JSON(http.StatusOK, props)
}

func (h *Handler) postsSlugExists(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))

	c.JSON(http.StatusOK, dto.SlugExistsResponse{
		Slug:   slug,
		Exists: h.services.CheckSlugExists(c.Request.Context(), slug),
	})
}

func (h *Handler) postsCreate(c *gin.Context) {
	user := h.getUserFromRequest(c)

	var input dto.CreatePostRequest
	if err := c.ShouldBind(&input); err != nil {
		uploadError(c, err)
		return
	}

	image, err := h.readUpload(c, "image")
	if err != nil {
		uploadError(c, err)
		return
	}

	post, err := h.services.Publish(c.Request.Context(), model.NewPost{
		Title:    input.Title,
		Slug:     input.Slug,
		Content:  input.Content,
		Status:   model.Status(input.Status),
		AuthorID: user.ID,
	}, image)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *Handler) postsEdit(c *gin.Context) {
	user := h.getUserFromRequest(c)

	var input dto.UpdatePostRequest
	if err := c.ShouldBind(&input); err != nil {
		uploadError(c, err)
		return
	}

	image, err := h.readUpload(c, "image")
	if err != nil {
		uploadError(c, err)
		return
	}

	update := model.PostUpdate{
		Title:   input.Title,
		Content: input.Content,
	}
	if input.Status != nil {
		status := model.Status(*input.Status)
		update.Status = &status
	}
	if input.RemoveImage && image == nil {
		none := model.MediaRef("")
		update.FeaturedImage = &none
	}

	post, err := h.services.Edit(c.Request.Context(), user.ID, c.Param("id"), update, image)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *Handler) postsDelete(c *gin.Context) {
	user := h.getUserFromRequest(c)

	deleted, err := h.services.Remove(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, dto.NewBasicResponse(false, errPostNotFound.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.NewBasicResponse(true, "post deleted"))
}

func (h *Handler) usersStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.AuthorStats(c.Request.Context(), c.Param("userID")))
}
