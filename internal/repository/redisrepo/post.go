package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/schema"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatch = 100

var errMissingIndex = errors.New("creation index is missing")

type postRepo struct {
	rdb    *redis.Client
	logger *zap.Logger
	newID  repository.IDFunc
	now    func() time.Time
}

func newPostRepo(rdb *redis.Client, logger *zap.Logger) *postRepo {
	return &postRepo{
		rdb:    rdb,
		logger: logger,
		newID:  repository.NewDocumentID,
		now:    time.Now,
	}
}

func (r *postRepo) Create(ctx context.Context, post model.NewPost) (*model.Post, error) {
	now := r.now().UTC()
	doc := schema.LayoutStream.Encode(post)
	doc[schema.LayoutStream.Key(schema.FieldCreatedAt)] = now.Format(time.RFC3339Nano)
	doc[schema.LayoutStream.Key(schema.FieldUpdatedAt)] = now.Format(time.RFC3339Nano)

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	id, err := repository.CreateWithRetry(ctx, r.newID, func(id string) error {
		ok, err := r.rdb.SetNX(ctx, PostKey(id), payload, 0).Result()
		if err != nil {
			return repository.Unavailable(err)
		}
		if !ok {
			return repository.ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, PostSlugKey(post.Slug), id)
		pipe.ZAdd(ctx, POSTS_BY_CREATED_KEY, redis.Z{Score: float64(now.UnixMilli()), Member: id})
		return nil
	}); err != nil {
		if delErr := r.rdb.Del(ctx, PostKey(id)).Err(); delErr != nil {
			r.logger.Sugar().Errorf("failed to remove unindexed post(%s): %s", id, delErr.Error())
		}
		return nil, repository.Unavailable(err)
	}

	return schema.Decode(id, doc), nil
}

func (r *postRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	raw, err := r.rdb.Get(ctx, PostKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, repository.Unavailable(err)
	}

	return decodePost(id, raw)
}

// FindBySlug returns the oldest post indexed under slug.
func (r *postRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	ids, err := r.rdb.SMembers(ctx, PostSlugKey(slug)).Result()
	if err != nil {
		return nil, repository.Unavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	posts, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return createdBefore(posts[i], posts[j])
	})
	return posts[0], nil
}

// FindAll lists posts newest first. Without a usable creation index it degrades to a
// keyspace scan in no particular order.
func (r *postRepo) FindAll(ctx context.Context) ([]*model.Post, error) {
	posts, err := r.findOrdered(ctx)
	if err == nil {
		return posts, nil
	}

	r.logger.Warn("ordered post listing failed, falling back to unordered scan", zap.Error(err))
	return r.findUnordered(ctx)
}

func (r *postRepo) findOrdered(ctx context.Context) ([]*model.Post, error) {
	n, err := r.rdb.Exists(ctx, POSTS_BY_CREATED_KEY).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errMissingIndex
	}

	ids, err := r.rdb.ZRevRange(ctx, POSTS_BY_CREATED_KEY, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	return r.loadMany(ctx, ids)
}

func (r *postRepo) findUnordered(ctx context.Context) ([]*model.Post, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, postKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, postIDFromKey(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, repository.Unavailable(err)
	}

	return r.loadMany(ctx, ids)
}

// loadMany fetches documents in the order of ids, skipping ids whose document is gone.
func (r *postRepo) loadMany(ctx context.Context, ids []string) ([]*model.Post, error) {
	posts := make([]*model.Post, 0, len(ids))
	if len(ids) == 0 {
		return posts, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = PostKey(id)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, repository.Unavailable(err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		post, err := decodePost(ids[i], []byte(raw))
		if err != nil {
			r.logger.Sugar().Errorf("failed to decode post(%s): %s", ids[i], err.Error())
			continue
		}
		posts = append(posts, post)
	}

	return posts, nil
}

func (r *postRepo) Update(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	key := PostKey(id)
	var updated *model.Post

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrNotFound
			}
			return repository.Unavailable(err)
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}

		set, stale := schema.LayoutStream.Patch(update)
		for _, k := range stale {
			delete(doc, k)
		}
		for k, v := range set {
			doc[k] = v
		}
		updatedAtKey := schema.LayoutStream.Key(schema.FieldUpdatedAt)
		for _, k := range schema.Aliases(schema.FieldUpdatedAt) {
			delete(doc, k)
		}
		doc[updatedAtKey] = r.now().UTC().Format(time.RFC3339Nano)

		payload, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		}); err != nil {
			return repository.Unavailable(err)
		}

		updated = schema.Decode(id, doc)
		return nil
	}, key)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *postRepo) Delete(ctx context.Context, id string) (bool, error) {
	post, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	if post == nil {
		return false, nil
	}

	var del *redis.IntCmd
	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, PostKey(id))
		pipe.SRem(ctx, PostSlugKey(post.Slug), id)
		pipe.ZRem(ctx, POSTS_BY_CREATED_KEY, id)
		return nil
	}); err != nil {
		return false, repository.Unavailable(err)
	}

	return del.Val() > 0, nil
}

func (r *postRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.rdb.SCard(ctx, PostSlugKey(slug)).Result()
	if err != nil {
		return false, repository.Unavailable(err)
	}
	return n > 0, nil
}

func decodePost(id string, raw []byte) (*model.Post, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return schema.Decode(id, doc), nil
}

func createdBefore(a, b *model.Post) bool {
	switch {
	case a.CreatedAt == nil:
		return false
	case b.CreatedAt == nil:
		return true
	default:
		return a.CreatedAt.Before(*b.CreatedAt)
	}
}
