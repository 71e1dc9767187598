// Package bootstrap wires the configured post backend, media driver and mailer into services.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/BloggingApp/megablog/internal/config"
	"github.com/BloggingApp/megablog/internal/mailer"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/repository/media"
	"github.com/BloggingApp/megablog/internal/repository/memory"
	"github.com/BloggingApp/megablog/internal/repository/postgres"
	"github.com/BloggingApp/megablog/internal/repository/redisrepo"
	"github.com/BloggingApp/megablog/internal/service"
	"github.com/BloggingApp/megablog/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Repo     *repository.Repository
	Services *service.Service

	closers []func()
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Repo: &repository.Repository{}}

	if err := app.initStore(ctx, cfg, logger); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initMedia(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}

	app.Services = service.New(logger, app.Repo, newMailer(cfg, logger), service.Config{
		ResetURL: cfg.Auth.ResetURL,
		CacheTTL: cfg.CacheTTL,
	})
	return app, nil
}

func (a *App) initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxConns)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info("Successfully connected to PostgreSQL")

		if err := postgres.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}

		pg := postgres.New(pool, logger, postgres.Options{
			JWTSecret:    []byte(cfg.Auth.JWTSecret),
			SessionTTL:   cfg.Auth.SessionTTL,
			RecoveryTTL:  cfg.Auth.RecoveryTTL,
			ContentLimit: cfg.Store.ContentLimit,
		})
		a.Repo.Post = pg.Post
		a.Repo.Account = pg.Account
		a.Repo.SlugStyle = slugStyle(cfg.Store.SlugStyle, utils.SlugCollapse)

		// Redis is optional next to postgres and only backs the cache and the limiter.
		if cfg.Redis.Addr != "" {
			rr, err := a.connectRedis(ctx, cfg, logger)
			if err != nil {
				return err
			}
			a.Repo.Cache = rr.Default
			a.Repo.Limiter = rr.Limiter
		}

	case config.BackendRedis:
		rr, err := a.connectRedis(ctx, cfg, logger)
		if err != nil {
			return err
		}
		a.Repo.Post = rr.Post
		a.Repo.Account = rr.Account
		a.Repo.Cache = rr.Default
		a.Repo.Limiter = rr.Limiter
		a.Repo.SlugStyle = slugStyle(cfg.Store.SlugStyle, utils.SlugSubstitute)

	case config.BackendMemory:
		mem := memory.New(memory.Options{
			RecoveryTTL:   cfg.Auth.RecoveryTTL,
			MaxAttempts:   cfg.Auth.MaxAttempts,
			AttemptWindow: cfg.Auth.AttemptWindow,
		})
		a.Repo.Post = mem.Post
		a.Repo.Account = mem.Account
		a.Repo.Cache = mem.Cache
		a.Repo.Limiter = mem.Limiter
		a.Repo.SlugStyle = slugStyle(cfg.Store.SlugStyle, utils.SlugCollapse)

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return nil
}

func (a *App) connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redisrepo.RedisRepository, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Sugar().Infof("Successfully connected to Redis: %s", pong)

	return redisrepo.New(rdb, logger, redisrepo.Options{
		SessionTTL:    cfg.Auth.SessionTTL,
		RecoveryTTL:   cfg.Auth.RecoveryTTL,
		MaxAttempts:   cfg.Auth.MaxAttempts,
		AttemptWindow: cfg.Auth.AttemptWindow,
	}), nil
}

func (a *App) initMedia(ctx context.Context, cfg *config.Config) error {
	switch cfg.Media.Driver {
	case config.MediaS3:
		s3, err := media.NewS3Storage(ctx, media.S3Config{
			Bucket:        cfg.Media.S3.Bucket,
			Region:        cfg.Media.S3.Region,
			Endpoint:      cfg.Media.S3.Endpoint,
			Prefix:        cfg.Media.S3.Prefix,
			PublicBaseURL: cfg.Media.S3.PublicBaseURL,
			PreviewTTL:    cfg.Media.S3.PreviewTTL,
		})
		if err != nil {
			return fmt.Errorf("init s3 media: %w", err)
		}
		a.Repo.Media = s3
	case config.MediaInline:
		a.Repo.Media = media.NewInlineStorage(cfg.Media.InlineMaxBytes)
	default:
		return fmt.Errorf("unknown media driver %q", cfg.Media.Driver)
	}
	return nil
}

func newMailer(cfg *config.Config, logger *zap.Logger) mailer.Mailer {
	if cfg.SMTP.Host == "" {
		return mailer.NewLog(logger)
	}
	return mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

func slugStyle(name string, fallback utils.SlugStyle) utils.SlugStyle {
	if name == "" {
		return fallback
	}
	return utils.ParseSlugStyle(name)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
