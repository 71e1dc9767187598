package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/repository/redisrepo"
	"github.com/BloggingApp/megablog/internal/view"
	"github.com/BloggingApp/megablog/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const resolveConcurrency = 8

type postService struct {
	logger   *zap.Logger
	repo     *repository.Repository
	media    Media
	cacheTTL time.Duration
	now      func() time.Time
}

func newPostService(logger *zap.Logger, repo *repository.Repository, media Media, cfg Config) Post {
	return &postService{
		logger:   logger,
		repo:     repo,
		media:    media,
		cacheTTL: cfg.CacheTTL,
		now:      time.Now,
	}
}

func (s *postService) CreatePost(ctx context.Context, fields model.NewPost) (*model.Post, error) {
	fields, err := s.prepare(fields)
	if err != nil {
		return nil, err
	}

	fields.Slug = s.uniqueSlug(ctx, fields.Slug)
	return s.insert(ctx, fields)
}

// prepare validates fields and fills in the default status and the base slug.
func (s *postService) prepare(fields model.NewPost) (model.NewPost, error) {
	fields.Title = strings.TrimSpace(fields.Title)
	if fields.Title == "" {
		return fields, ErrInvalidTitle
	}
	if fields.AuthorID == "" {
		return fields, ErrMissingAuthor
	}
	if strings.TrimSpace(fields.Content) == "" {
		return fields, ErrMissingContent
	}

	if fields.Status == "" {
		fields.Status = model.StatusActive
	} else if !fields.Status.Valid() {
		return fields, ErrInvalidStatus
	}

	if fields.Slug == "" {
		fields.Slug = utils.Slugify(fields.Title, s.repo.SlugStyle)
	}
	if fields.Slug == "" {
		return fields, ErrInvalidTitle
	}

	return fields, nil
}

// uniqueSlug suffixes slug with the current unix time in milliseconds when it is taken.
// The suffixed slug is not checked again.
func (s *postService) uniqueSlug(ctx context.Context, slug string) string {
	if !s.CheckSlugExists(ctx, slug) {
		return slug
	}
	return fmt.Sprintf("%s-%d", slug, s.now().UnixMilli())
}

func (s *postService) insert(ctx context.Context, fields model.NewPost) (*model.Post, error) {
	post, err := s.repo.Post.Create(ctx, fields)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Sugar().Errorf("failed to allocate id for post(%s): %s", fields.Slug, err.Error())
			return nil, err
		}
		s.logger.Sugar().Errorf("failed to create post(%s): %s", fields.Slug, err.Error())
		return nil, ErrInternal
	}

	s.invalidate(ctx, post.Slug)
	return post, nil
}

// GetPost reads through the post cache when one is configured. Misses are not cached.
func (s *postService) GetPost(ctx context.Context, slug string) *model.Post {
	if s.repo.Cache != nil {
		cached, err := redisrepo.Get[model.Post](s.repo.Cache, ctx, redisrepo.PostCacheKey(slug))
		if err == nil && cached != nil {
			return cached
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Sugar().Errorf("failed to get post(%s) from cache: %s", slug, err.Error())
		}
	}

	post, err := s.repo.Post.FindBySlug(ctx, slug)
	if err != nil {
		s.logger.Sugar().Errorf("failed to get post(%s): %s", slug, err.Error())
		return nil
	}
	if post == nil {
		return nil
	}

	if s.repo.Cache != nil {
		if err := s.repo.Cache.SetJSON(ctx, redisrepo.PostCacheKey(slug), post, s.cacheTTL); err != nil {
			s.logger.Sugar().Errorf("failed to set post(%s) in cache: %s", slug, err.Error())
		}
	}

	return post
}

// GetPosts reads the listing through the cache, like GetPost. A failed listing is not cached.
func (s *postService) GetPosts(ctx context.Context) []*model.Post {
	if s.repo.Cache != nil {
		cached, err := redisrepo.GetMany[model.Post](s.repo.Cache, ctx, redisrepo.PostsCacheKey())
		if err == nil && cached != nil {
			return cached
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Sugar().Errorf("failed to get posts from cache: %s", err.Error())
		}
	}

	posts, err := s.repo.Post.FindAll(ctx)
	if err != nil {
		s.logger.Sugar().Errorf("failed to get posts: %s", err.Error())
		return []*model.Post{}
	}

	if s.repo.Cache != nil {
		if err := s.repo.Cache.SetJSON(ctx, redisrepo.PostsCacheKey(), posts, s.cacheTTL); err != nil {
			s.logger.Sugar().Errorf("failed to set posts in cache: %s", err.Error())
		}
	}

	return posts
}

func (s *postService) UpdatePost(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	if update.Empty() {
		return nil, ErrEmptyUpdate
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, ErrInvalidTitle
		}
		update.Title = &title
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	post, err := s.repo.Post.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		s.logger.Sugar().Errorf("failed to update post(%s): %s", id, err.Error())
		return nil, ErrInternal
	}

	s.invalidate(ctx, post.Slug)
	return post, nil
}

// DeletePost looks the post up first for its cache key and does nothing when that lookup fails.
func (s *postService) DeletePost(ctx context.Context, id string) bool {
	post, err := s.repo.Post.FindByID(ctx, id)
	if err != nil {
		s.logger.Sugar().Errorf("failed to find post(%s) before delete: %s", id, err.Error())
		return false
	}

	deleted, err := s.repo.Post.Delete(ctx, id)
	if err != nil {
		s.logger.Sugar().Errorf("failed to delete post(%s): %s", id, err.Error())
		return false
	}

	if post != nil {
		s.invalidate(ctx, post.Slug)
	} else if deleted {
		s.invalidate(ctx, "")
	}
	return deleted
}

func (s *postService) CheckSlugExists(ctx context.Context, slug string) bool {
	exists, err := s.repo.Post.SlugExists(ctx, slug)
	if err != nil {
		s.logger.Sugar().Errorf("failed to check slug(%s): %s", slug, err.Error())
		return false
	}
	return exists
}

// Publish uploads the featured image, if any, and creates the post. The upload and the slug
// check run concurrently. An uploaded image is not removed when creation fails.
func (s *postService) Publish(ctx context.Context, fields model.NewPost, image *model.Upload) (*model.Post, error) {
	fields, err := s.prepare(fields)
	if err != nil {
		return nil, err
	}

	var (
		ref  model.MediaRef
		slug string
	)
	g, gctx := errgroup.WithContext(ctx)
	if image != nil {
		g.Go(func() error {
			uploaded, err := s.media.UploadFile(gctx, *image)
			if err != nil {
				return err
			}
			ref = uploaded
			return nil
		})
	}
	g.Go(func() error {
		slug = s.uniqueSlug(gctx, fields.Slug)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fields.Slug = slug
	if ref != "" {
		fields.FeaturedImage = ref
	}

	post, err := s.insert(ctx, fields)
	if err != nil {
		if ref != "" {
			s.logger.Sugar().Warnf("post(%s) was not created, media(%s) is orphaned", fields.Slug, ref.String())
		}
		return nil, err
	}

	return post, nil
}

// Edit applies update on behalf of actorID. A new image replaces the old one, which is
// deleted after the update succeeds.
func (s *postService) Edit(ctx context.Context, actorID, id string, update model.PostUpdate, image *model.Upload) (*model.Post, error) {
	post, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, repository.ErrNotFound
	}

	if image != nil {
		ref, err := s.media.UploadFile(ctx, *image)
		if err != nil {
			return nil, err
		}
		update.FeaturedImage = &ref
	}

	updated, err := s.UpdatePost(ctx, id, update)
	if err != nil {
		if image != nil {
			s.logger.Sugar().Warnf("post(%s) was not updated, media(%s) is orphaned", id, update.FeaturedImage.String())
		}
		return nil, err
	}

	if update.FeaturedImage != nil && post.FeaturedImage != "" && post.FeaturedImage != updated.FeaturedImage {
		s.media.DeleteFile(ctx, post.FeaturedImage)
	}

	return updated, nil
}

// Remove deletes the post and its featured image. Removing a missing post is not an error.
func (s *postService) Remove(ctx context.Context, actorID, id string) (bool, error) {
	post, err := s.owned(ctx, actorID, id)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, nil
	}

	if !s.DeletePost(ctx, id) {
		return false, nil
	}

	if post.FeaturedImage != "" {
		s.media.DeleteFile(ctx, post.FeaturedImage)
	}
	return true, nil
}

func (s *postService) owned(ctx context.Context, actorID, id string) (*model.Post, error) {
	if actorID == "" {
		return nil, ErrNotAuthor
	}

	post, err := s.repo.Post.FindByID(ctx, id)
	if err != nil {
		s.logger.Sugar().Errorf("failed to find post(%s): %s", id, err.Error())
		return nil, ErrInternal
	}
	if post != nil && post.AuthorID != actorID {
		return nil, ErrNotAuthor
	}
	return post, nil
}

func (s *postService) AuthorStats(ctx context.Context, authorID string) model.AuthorStats {
	var stats model.AuthorStats
	for _, post := range s.GetPosts(ctx) {
		if post.AuthorID != authorID {
			continue
		}

		stats.Total++
		switch post.Status {
		case model.StatusActive:
			stats.Active++
		case model.StatusInactive:
			stats.Inactive++
		case model.StatusDraft:
			stats.Drafts++
		}
	}
	return stats
}

// Feed returns view props for every post, newest first when the store can order them.
func (s *postService) Feed(ctx context.Context, viewerID string) []view.Props {
	posts := s.GetPosts(ctx)
	props := make([]view.Props, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, post := range posts {
		g.Go(func() error {
			props[i] = view.Build(view.Input{
				Post:     post,
				ImageURL: s.media.ResolveImage(gctx, post.FeaturedImage),
				ViewerID: viewerID,
			})
			return nil
		})
	}
	_ = g.Wait()

	return props
}

func (s *postService) Detail(ctx context.Context, slug, viewerID string) *view.Props {
	post := s.GetPost(ctx, slug)
	if post == nil {
		return nil
	}

	props := view.Build(view.Input{
		Post:     post,
		ImageURL: s.media.ResolveImage(ctx, post.FeaturedImage),
		ViewerID: viewerID,
	})
	return &props
}

// invalidate drops the cached listing and, when slug is set, the cached post.
func (s *postService) invalidate(ctx context.Context, slug string) {
	if s.repo.Cache == nil {
		return
	}

	keys := []string{redisrepo.PostsCacheKey()}
	if slug != "" {
		keys = append(keys, redisrepo.PostCacheKey(slug))
	}
	if err := s.repo.Cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Sugar().Errorf("failed to invalidate post(%s) in cache: %s", slug, err.Error())
	}
}
