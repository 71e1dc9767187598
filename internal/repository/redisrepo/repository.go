package redisrepo

import (
	"context"
	"time"

	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Default interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

type Options struct {
	SessionTTL    time.Duration
	RecoveryTTL   time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
}

type RedisRepository struct {
	Default Default
	Post    repository.Post
	Account repository.Account
	Limiter repository.Limiter
}

func New(rdb *redis.Client, logger *zap.Logger, opts Options) *RedisRepository {
	def := newDefaultRepo(rdb)
	return &RedisRepository{
		Default: def,
		Post:    newPostRepo(rdb, logger),
		Account: newAccountRepo(rdb, logger, opts),
		Limiter: newAttemptLimiter(def, opts.MaxAttempts, opts.AttemptWindow),
	}
}
