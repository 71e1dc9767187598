package handler

import (
	"net/http"
	"strings"

	"github.com/BloggingApp/megablog/internal/dto"
	"github.com/BloggingApp/megablog/internal/session"
	"github.com/gin-gonic/gin"
)

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func (h *Handler) authMiddleware(c *gin.Context) {
	accessToken := bearerToken(c)
	if accessToken == "" {
		c.JSON(http.StatusUnauthorized, dto.NewBasicResponse(false, errNotAuthorized.Error()))
		c.Abort()
		return
	}

	sess := session.New(accessToken)
	user := h.services.CurrentUser(c.Request.Context(), sess)
	if user == nil {
		c.JSON(http.StatusUnauthorized, dto.NewBasicResponse(false, errNotAuthorized.Error()))
		c.Abort()
		return
	}

	c.Set(sessionKey, sess)
	c.Set(userKey, user)

	c.Next()
}

// notRequiredAuthMiddleware identifies the viewer when a valid token is sent and lets
// every request through.
func (h *Handler) notRequiredAuthMiddleware(c *gin.Context) {
	accessToken := bearerToken(c)
	if accessToken == "" {
		c.Next()
		return
	}

	sess := session.New(accessToken)
	user := h.services.CurrentUser(c.Request.Context(), sess)
	if user == nil {
		c.Next()
		return
	}

	c.Set(sessionKey, sess)
	c.Set(userKey, user)

	c.Next()
}
