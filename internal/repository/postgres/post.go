package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const postsCollection = "posts"

const selectPostColumns = "SELECT id, data, created_at, updated_at FROM documents"

const insertPostQuery = `INSERT INTO documents(collection, id, data) VALUES($1, $2, $3)
	ON CONFLICT (collection, id) DO NOTHING
	RETURNING created_at, updated_at`

const updatePostQuery = `UPDATE documents SET data = (data - $3::text[]) || $4::jsonb, updated_at = now()
	WHERE collection = $1 AND id = $2
	RETURNING id, data, created_at, updated_at`

// slugField reads the slug under either spelling found in stored documents.
const slugField = "coalesce(data->>'slug', data->>'Slug')"

const (
	findPostByIDQuery   = selectPostColumns + " WHERE collection = $1 AND id = $2"
	findPostBySlugQuery = selectPostColumns + " WHERE collection = $1 AND " + slugField + " = $2 ORDER BY created_at ASC LIMIT 1"
	findPostsQuery      = selectPostColumns + " WHERE collection = $1 ORDER BY created_at DESC"
	scanPostsQuery      = selectPostColumns + " WHERE collection = $1"
	deletePostQuery     = "DELETE FROM documents WHERE collection = $1 AND id = $2"
	slugExistsQuery     = "SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND " + slugField + " = $2)"
)

type postRepo struct {
	db           DB
	logger       *zap.Logger
	newID        repository.IDFunc
	contentLimit int
}

func newPostRepo(db DB, logger *zap.Logger, contentLimit int) *postRepo {
	return &postRepo{
		db:           db,
		logger:       logger,
		newID:        uuid.NewString,
		contentLimit: contentLimit,
	}
}

func (r *postRepo) Create(ctx context.Context, post model.NewPost) (*model.Post, error) {
	post.Content = repository.Truncate(post.Content, r.contentLimit)
	doc := schema.LayoutDocuments.Encode(post)
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	var createdAt, updatedAt time.Time
	id, err := repository.CreateWithRetry(ctx, r.newID, func(id string) error {
		err := r.db.QueryRow(ctx, insertPostQuery, postsCollection, id, payload).Scan(&createdAt, &updatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrConflict
		}
		return repository.Unavailable(err)
	})
	if err != nil {
		return nil, err
	}

	created := schema.Decode(id, doc)
	created.CreatedAt = utc(createdAt)
	created.UpdatedAt = utc(updatedAt)
	return created, nil
}

func (r *postRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return r.findOne(ctx, findPostByIDQuery, postsCollection, id)
}

func (r *postRepo) FindBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return r.findOne(ctx, findPostBySlugQuery, postsCollection, slug)
}

func (r *postRepo) findOne(ctx context.Context, query string, args ...any) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, repository.Unavailable(err)
	}
	return post, nil
}

// FindAll lists posts newest first, or in storage order when the ordered query fails.
func (r *postRepo) FindAll(ctx context.Context) ([]*model.Post, error) {
	posts, err := r.findMany(ctx, findPostsQuery)
	if err == nil {
		return posts, nil
	}

	r.logger.Warn("ordered post listing failed, falling back to unordered query", zap.Error(err))
	posts, err = r.findMany(ctx, scanPostsQuery)
	if err != nil {
		return nil, repository.Unavailable(err)
	}
	return posts, nil
}

func (r *postRepo) findMany(ctx context.Context, query string) ([]*model.Post, error) {
	rows, err := r.db.Query(ctx, query, postsCollection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepo) Update(ctx context.Context, id string, update model.PostUpdate) (*model.Post, error) {
	if update.Content != nil {
		content := repository.Truncate(*update.Content, r.contentLimit)
		update.Content = &content
	}

	set, stale := schema.LayoutDocuments.Patch(update)
	if stale == nil {
		stale = []string{}
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return nil, err
	}

	post, err := scanPost(r.db.QueryRow(ctx, updatePostQuery, postsCollection, id, stale, payload))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.Unavailable(err)
	}
	return post, nil
}

func (r *postRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, deletePostQuery, postsCollection, id)
	if err != nil {
		return false, repository.Unavailable(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, slugExistsQuery, postsCollection, slug).Scan(&exists); err != nil {
		return false, repository.Unavailable(err)
	}
	return exists, nil
}

// scanPost reads one documents row. Row timestamps win over any inside the document.
func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		id        string
		data      []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	post := schema.Decode(id, doc)
	post.CreatedAt = utc(createdAt)
	post.UpdatedAt = utc(updatedAt)
	return post, nil
}

func utc(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}
