package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/schema"
)

type storedPost struct {
	doc     map[string]any
	created time.Time
}

type postRepo struct {
	mu    sync.RWMutex
	posts map[string]*storedPost
	newID repository.IDFunc
	now   func() time.Time
}

func newPostRepo() *postRepo {
	return &postRepo{
		posts: make(map[string]*storedPost),
		newID: repository.NewDocumentID,
		now:   time.Now,
	}
}

func (r *postRepo) Create(ctx context.Context, post model.NewPost) (*model.Post, error) {
	now := r.now().UTC()
	doc := schema.LayoutStream.Encode(post)
	doc[schema.LayoutStream.Key(schema.FieldCreatedAt)] = now
	doc[schema.LayoutStream.Key(schema.FieldUpdatedAt)] = now

	id, err := repository.CreateWithRetry(ctx, r.newID, func(id string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.posts[id]; ok {
			return repository.ErrConflict
		}
		r.posts[id] = &storedPost{doc: doc, created: now}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return schema.Decode(id, doc), nil
}

func (r *postRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return schema.Decode(id, stored.doc), nil
}

func (r *postRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	posts, _ := r.FindAll(ctx)
	for i := len(posts) - 1; i >= 0; i-- {
		if posts[i].Slug == slug {
			return posts[i], nil
		}
	}
	return nil, nil
}

func (r *postRepo) FindAll(ctx context.Context) ([]*model.Post, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.posts))
	for id := range r.posts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := r.posts[ids[i]].created, r.posts[ids[j]].created
		if a.Equal(b) {
			return ids[i] > ids[j]
		}
		return a.After(b)
	})

	posts := make([]*model.Post, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, schema.Decode(id, r.posts[id].doc))
	}
	r.mu.RUnlock()

	return posts, nil
}

func (r *postRepo) Update(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	doc := make(map[string]any, len(stored.doc))
	for k, v := range stored.doc {
		doc[k] = v
	}
	set, stale := schema.LayoutStream.Patch(update)
	for _, k := range stale {
		delete(doc, k)
	}
	for k, v := range set {
		doc[k] = v
	}
	doc[schema.LayoutStream.Key(schema.FieldUpdatedAt)] = r.now().UTC()

	stored.doc = doc
	return schema.Decode(id, doc), nil
}

func (r *postRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}

func (r *postRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	post, _ := r.FindBySlug(ctx, slug)
	return post != nil, nil
}
