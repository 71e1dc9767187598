package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository/media"
	"github.com/BloggingApp/megablog/internal/service"
	"github.com/BloggingApp/megablog/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	userKey    = "user"
)

// formOverhead is the room left in upload requests for the other form fields.
const formOverhead = 1 << 20

type Handler struct {
	services  *service.Service
	origins   []string
	maxUpload int64
}

// New builds the handler. maxUpload caps uploaded files in bytes; 0 means no cap.
func New(services *service.Service, origins []string, maxUpload int64) *Handler {
	return &Handler{
		services:  services,
		origins:   origins,
		maxUpload: maxUpload,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(h.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     h.origins,
			AllowMethods:     []string{"POST", "GET", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", h.authSignUp)
			auth.POST("/login", h.authLogin)
			auth.POST("/logout", h.authMiddleware, h.authLogout)
			auth.GET("/me", h.authMiddleware, h.authMe)
			auth.POST("/password/forgot", h.authForgotPassword)
			auth.POST("/password/reset", h.authResetPassword)
		}

		posts := v1.Group("/posts")
		{
			posts.GET("", h.notRequiredAuthMiddleware, h.postsFeed)
			posts.POST("", h.authMiddleware, h.limitBody, h.postsCreate)
			posts.GET("/:slug", h.notRequiredAuthMiddleware, h.postsGetBySlug)
			posts.GET("/:slug/exists", h.postsSlugExists)
			posts.PATCH("/:id", h.authMiddleware, h.limitBody, h.postsEdit)
			posts.DELETE("/:id", h.authMiddleware, h.postsDelete)
		}

		v1.GET("/users/:userID/stats", h.usersStats)

		mediaRoutes := v1.Group("/media")
		{
			mediaRoutes.POST("", h.authMiddleware, h.limitBody, h.mediaUpload)
			mediaRoutes.GET("/resolve", h.authMiddleware, h.mediaResolve)
		}
	}

	return r
}

func (h *Handler) getUserFromRequest(c *gin.Context) *model.User {
	user, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	return user.(*model.User)
}

func (h *Handler) getSessionFromRequest(c *gin.Context) *session.Session {
	sess, ok := c.Get(sessionKey)
	if !ok {
		return session.New("")
	}
	return sess.(*session.Session)
}

func viewerID(user *model.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func (h *Handler) limitBody(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+formOverhead)
	}
	c.Next()
}

// readUpload returns the file sent in field, or nil when the request carries none.
// Files over the upload cap fail with media.ErrTooLarge.
func (h *Handler) readUpload(c *gin.Context, field string) (*model.Upload, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, media.ErrTooLarge
		}
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
		return nil, media.ErrTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if h.maxUpload > 0 {
		r = io.LimitReader(file, h.maxUpload+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if h.maxUpload > 0 && int64(len(data)) > h.maxUpload {
		return nil, media.ErrTooLarge
	}

	return &model.Upload{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
