package postgres

import (
	"context"
	"time"

	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Options struct {
	JWTSecret    []byte
	SessionTTL   time.Duration
	RecoveryTTL  time.Duration
	ContentLimit int
}

type PostgresRepository struct {
	Post    repository.Post
	Account repository.Account
}

func New(db DB, logger *zap.Logger, opts Options) *PostgresRepository {
	return &PostgresRepository{
		Post:    newPostRepo(db, logger, opts.ContentLimit),
		Account: newAccountRepo(db, opts),
	}
}
