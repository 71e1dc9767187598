package bootstrap

import (
	"context"
	"testing"

	"github.com/BloggingApp/megablog/internal/config"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/repository/media"
	"github.com/BloggingApp/megablog/pkg/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func baseConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Media: config.MediaConfig{Driver: config.MediaInline, InlineMaxBytes: 1 << 20},
		Auth:  config.AuthConfig{MaxAttempts: 5},
	}
}

func TestNewMemory(t *testing.T) {
	app, err := New(context.Background(), baseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, utils.SlugCollapse, app.Repo.SlugStyle)
	assert.IsType(t, &media.InlineStorage{}, app.Repo.Media)
	assert.NotNil(t, app.Repo.Cache)
	assert.NotNil(t, app.Repo.Limiter)

	post, err := app.Services.CreatePost(context.Background(), model.NewPost{Title: "Hello there", Content: "body", AuthorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "hello-there", post.Slug)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := baseConfig()
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	app, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, utils.SlugSubstitute, app.Repo.SlugStyle)
	_, ok := app.Repo.Account.(repository.AccountWatcher)
	assert.True(t, ok)

	post, err := app.Services.CreatePost(context.Background(), model.NewPost{Title: "Hello, there", Content: "body", AuthorID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "hello--there", post.Slug)
	assert.True(t, mr.Exists("post:"+post.ID))
}

func TestNewFailures(t *testing.T) {
	cfg := baseConfig()
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Media.Driver = "ftp"
	_, err = New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Store.Backend = "sqlite"
	_, err = New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSlugStyleOverride(t *testing.T) {
	cfg := baseConfig()
	cfg.Store.SlugStyle = "substitute"

	app, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, utils.SlugSubstitute, app.Repo.SlugStyle)
}
