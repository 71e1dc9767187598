package repository

import (
	"context"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/pkg/utils"
	"github.com/redis/go-redis/v9"
)

// Post stores post documents. Lookups return (nil, nil) when nothing matches.
type Post interface {
	Create(ctx context.Context, post model.NewPost) (*model.Post, error)
	FindByID(ctx context.Context, id string) (*model.Post, error)
	FindBySlug(ctx context.Context, slug string) (*model.Post, error)
	FindAll(ctx context.Context) ([]*model.Post, error)
	Update(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error)
	Delete(ctx context.Context, id string) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// Account is a backend identity provider. Tokens are opaque to callers.
type Account interface {
	Create(ctx context.Context, email, password, displayName string) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.User, string, error)
	Resolve(ctx context.Context, token string) (*model.User, error)
	SignOut(ctx context.Context, token string) error
	StartRecovery(ctx context.Context, email string) (string, error)
	CompleteRecovery(ctx context.Context, code, password string) error
}

// AccountWatcher is implemented by providers that push auth state for a token.
type AccountWatcher interface {
	Watch(ctx context.Context, token string, fn func(*model.User)) (stop func(), err error)
}

type Media interface {
	Upload(ctx context.Context, file model.Upload) (model.MediaRef, error)
	Delete(ctx context.Context, ref model.MediaRef) error
	PreviewURL(ctx context.Context, ref model.MediaRef) (string, error)
	PublicURL(ref model.MediaRef) string
}

type Cache interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Repository struct {
	Post    Post
	Account Account
	Media   Media
	// Cache and Limiter are optional.
	Cache   Cache
	Limiter Limiter

	SlugStyle utils.SlugStyle
}
