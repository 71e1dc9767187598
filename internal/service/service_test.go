package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BloggingApp/megablog/internal/mailer"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/repository/media"
	"github.com/BloggingApp/megablog/internal/repository/memory"
	"github.com/BloggingApp/megablog/pkg/utils"
	"go.uber.org/zap/zaptest"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	svc    *Service
	repo   *repository.Repository
	mailer *recordingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := memory.New(memory.Options{
		RecoveryTTL:   time.Hour,
		MaxAttempts:   3,
		AttemptWindow: time.Minute,
	})
	repo := &repository.Repository{
		Post:      mem.Post,
		Account:   mem.Account,
		Media:     media.NewInlineStorage(1 << 20),
		Cache:     mem.Cache,
		Limiter:   mem.Limiter,
		SlugStyle: utils.SlugCollapse,
	}
	m := &recordingMailer{}

	return &fixture{
		svc:    New(zaptest.NewLogger(t), repo, m, Config{ResetURL: "https://blog.example.com/reset", CacheTTL: time.Minute}),
		repo:   repo,
		mailer: m,
	}
}

// failingPosts wraps a post store and fails the operations named in fail.
type failingPosts struct {
	repository.Post
	fail map[string]bool
}

var errStoreDown = errors.New("store down")

func (p *failingPosts) FindAll(ctx context.Context) ([]*model.Post, error) {
	if p.fail["FindAll"] {
		return nil, errStoreDown
	}
	return p.Post.FindAll(ctx)
}

func (p *failingPosts) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if p.fail["FindByID"] {
		return nil, errStoreDown
	}
	return p.Post.FindByID(ctx, id)
}

func (p *failingPosts) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	if p.fail["FindBySlug"] {
		return nil, errStoreDown
	}
	return p.Post.FindBySlug(ctx, slug)
}

func (p *failingPosts) SlugExists(ctx context.Context, slug string) (bool, error) {
	if p.fail["SlugExists"] {
		return false, errStoreDown
	}
	return p.Post.SlugExists(ctx, slug)
}

func (p *failingPosts) Create(ctx context.Context, post model.NewPost) (*model.Post, error) {
	if p.fail["Create"] {
		return nil, repository.Unavailable(errStoreDown)
	}
	return p.Post.Create(ctx, post)
}
