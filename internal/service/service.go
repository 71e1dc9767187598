package service

import (
	"context"
	"net/http"
	"time"

	"github.com/BloggingApp/megablog/internal/mailer"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/session"
	"github.com/BloggingApp/megablog/internal/view"
	"go.uber.org/zap"
)

type Config struct {
	// ResetURL is the page password reset links point at.
	ResetURL string
	// CacheTTL applies to cached post reads. Zero keeps entries until invalidated.
	CacheTTL time.Duration
	// HTTPClient probes image URLs. Defaults to a client without a timeout.
	HTTPClient *http.Client
}

type Auth interface {
	CreateAccount(ctx context.Context, sess *session.Session, email, password, displayName string) (*model.User, error)
	Login(ctx context.Context, sess *session.Session, email, password string) (*model.User, error)
	CurrentUser(ctx context.Context, sess *session.Session) *model.User
	Logout(ctx context.Context, sess *session.Session) bool
	OnAuthStateChange(ctx context.Context, sess *session.Session, fn func(*model.User)) func()
	SendPasswordResetEmail(ctx context.Context, email string) (bool, error)
	ConfirmPasswordReset(ctx context.Context, code, newPassword string) (bool, error)
}

type Post interface {
	CreatePost(ctx context.Context, fields model.NewPost) (*model.Post, error)
	GetPost(ctx context.Context, slug string) *model.Post
	GetPosts(ctx context.Context) []*model.Post
	UpdatePost(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error)
	DeletePost(ctx context.Context, id string) bool
	CheckSlugExists(ctx context.Context, slug string) bool

	Publish(ctx context.Context, fields model.NewPost, image *model.Upload) (*model.Post, error)
	Edit(ctx context.Context, actorID, id string, update model.PostUpdate, image *model.Upload) (*model.Post, error)
	Remove(ctx context.Context, actorID, id string) (bool, error)
	AuthorStats(ctx context.Context, authorID string) model.AuthorStats
	Feed(ctx context.Context, viewerID string) []view.Props
	Detail(ctx context.Context, slug, viewerID string) *view.Props
}

type Media interface {
	UploadFile(ctx context.Context, file model.Upload) (model.MediaRef, error)
	DeleteFile(ctx context.Context, ref model.MediaRef) bool
	GetFilePreview(ctx context.Context, ref model.MediaRef) string
	GetPublicFileURL(ref model.MediaRef) string
	ResolveImage(ctx context.Context, ref model.MediaRef) string
}

type Service struct {
	Auth
	Post
	Media
}

func New(logger *zap.Logger, repo *repository.Repository, mailer mailer.Mailer, cfg Config) *Service {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	media := newMediaService(logger, repo, httpClient)
	return &Service{
		Auth:  newAuthService(logger, repo, mailer, cfg),
		Post:  newPostService(logger, repo, media, cfg),
		Media: media,
	}
}
