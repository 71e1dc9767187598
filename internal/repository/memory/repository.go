// Package memory keeps every store in process memory. It backs local development and tests.
package memory

import (
	"time"

	"github.com/BloggingApp/megablog/internal/repository"
)

type Options struct {
	RecoveryTTL   time.Duration
	MaxAttempts   int
	AttemptWindow time.Duration
}

type MemoryRepository struct {
	Post    repository.Post
	Account repository.Account
	Cache   repository.Cache
	Limiter repository.Limiter
}

func New(opts Options) *MemoryRepository {
	c := newCache()
	return &MemoryRepository{
		Post:    newPostRepo(),
		Account: newAccountRepo(opts.RecoveryTTL),
		Cache:   c,
		Limiter: &limiter{cache: c, max: opts.MaxAttempts, window: opts.AttemptWindow, counts: make(map[string]int)},
	}
}
