package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	postColumns = []string{"id", "data", "created_at", "updated_at"}
	createdAt   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updatedAt   = createdAt.Add(time.Hour)
)

// docArg matches a JSON payload argument holding the given key/value pairs.
type docArg map[string]any

func (d docArg) Match(v interface{}) bool {
	raw, ok := v.([]byte)
	if !ok {
		return false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	for k, want := range d {
		if doc[k] != want {
			return false
		}
	}
	return true
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sequence(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestPostCreate(t *testing.T) {
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)
	repo.newID = sequence("id-1", "id-2")

	mock.ExpectQuery(insertPostQuery).
		WithArgs(postsCollection, "id-1", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}))
	mock.ExpectQuery(insertPostQuery).
		WithArgs(postsCollection, "id-2", docArg{"tiitle": "Hello", "UserId": "author-1", "FeatureImage": "posts/a.png", "Status": "active"}).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).AddRow(createdAt, createdAt))

	post, err := repo.Create(context.Background(), model.NewPost{
		Title:         "Hello",
		Slug:          "hello",
		Content:       strings.Repeat("x", 300),
		FeaturedImage: "posts/a.png",
		Status:        model.StatusActive,
		AuthorID:      "author-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-2", post.ID)
	assert.Equal(t, "Hello", post.Title)
	assert.Len(t, post.Content, 255)
	assert.True(t, strings.HasSuffix(post.Content, repository.Ellipsis))
	assert.Equal(t, createdAt, *post.CreatedAt)
}

func TestPostCreateUnavailable(t *testing.T) {
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)

	mock.ExpectQuery(insertPostQuery).
		WithArgs(postsCollection, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Create(context.Background(), model.NewPost{Title: "t", Slug: "t"})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
}

func TestPostFind(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)

	legacy := []byte(`{"tiitle":"Old","slug":"old","Content":"c","FeatureImage":"img","UserId":"u1","Status":"Active"}`)
	mock.ExpectQuery(findPostByIDQuery).
		WithArgs(postsCollection, "p1").
		WillReturnRows(mock.NewRows(postColumns).AddRow("p1", legacy, createdAt, updatedAt))
	mock.ExpectQuery(findPostBySlugQuery).
		WithArgs(postsCollection, "missing").
		WillReturnRows(mock.NewRows(postColumns))

	post, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, &model.Post{
		ID:            "p1",
		Title:         "Old",
		Slug:          "old",
		Content:       "c",
		FeaturedImage: "img",
		Status:        model.StatusActive,
		AuthorID:      "u1",
		CreatedAt:     &createdAt,
		UpdatedAt:     &updatedAt,
	}, post)

	post, err = repo.FindBySlug(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestPostFindByLegacySlugKey(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)

	assert.Contains(t, findPostBySlugQuery, "data->>'Slug'")
	assert.Contains(t, slugExistsQuery, "data->>'Slug'")

	legacy := []byte(`{"tiitle":"Old","Slug":"old-key","UserId":"u1"}`)
	mock.ExpectQuery(findPostBySlugQuery).
		WithArgs(postsCollection, "old-key").
		WillReturnRows(mock.NewRows(postColumns).AddRow("p1", legacy, createdAt, updatedAt))
	mock.ExpectQuery(slugExistsQuery).
		WithArgs(postsCollection, "old-key").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	post, err := repo.FindBySlug(ctx, "old-key")
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "old-key", post.Slug)
	assert.Equal(t, "Old", post.Title)

	exists, err := repo.SlugExists(ctx, "old-key")
	require.NoError(t, err)
	assert.True(t, exists)
}
func TestPostFindAllFallsBackToUnordered(t *testing.T) {
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)

	mock.ExpectQuery(findPostsQuery).
		WithArgs(postsCollection).
		WillReturnError(errors.New("could not sort"))
	mock.ExpectQuery(scanPostsQuery).
		WithArgs(postsCollection).
		WillReturnRows(mock.NewRows(postColumns).
			AddRow("a", []byte(`{"title":"A","slug":"a"}`), createdAt, createdAt).
			AddRow("b", []byte(`{"tiitle":"B","slug":"b"}`), updatedAt, updatedAt))

	posts, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "A", posts[0].Title)
	assert.Equal(t, "B", posts[1].Title)
}

func TestPostUpdate(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)

	title := "Renamed"
	mock.ExpectQuery(updatePostQuery).
		WithArgs(postsCollection, "p1", pgxmock.AnyArg(), docArg{"tiitle": "Renamed"}).
		WillReturnRows(mock.NewRows(postColumns).AddRow("p1", []byte(`{"tiitle":"Renamed","slug":"old"}`), createdAt, updatedAt))
	mock.ExpectQuery(updatePostQuery).
		WithArgs(postsCollection, "gone", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(postColumns))

	post, err := repo.Update(ctx, "p1", model.PostUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", post.Title)
	assert.Equal(t, updatedAt, *post.UpdatedAt)

	_, err = repo.Update(ctx, "gone", model.PostUpdate{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostDeleteAndSlugExists(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	repo := newPostRepo(mock, zap.NewNop(), 255)

	mock.ExpectExec(deletePostQuery).WithArgs(postsCollection, "p1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(deletePostQuery).WithArgs(postsCollection, "p1").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(slugExistsQuery).WithArgs(postsCollection, "hello").WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	deleted, err := repo.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, deleted)

	exists, err := repo.SlugExists(ctx, "hello")
	require.NoError(t, err)
	assert.True(t, exists)
}

func newTestAccountRepo(t *testing.T) (pgxmock.PgxPoolIface, *accountRepo) {
	mock := newMock(t)
	repo := newAccountRepo(mock, Options{
		JWTSecret:   []byte("secret"),
		SessionTTL:  time.Hour,
		RecoveryTTL: time.Hour,
	})
	return mock, repo
}

func TestAccountCreate(t *testing.T) {
	ctx := context.Background()
	mock, repo := newTestAccountRepo(t)
	repo.newID = sequence("acc-1")

	mock.ExpectExec(insertAccountQuery).
		WithArgs("acc-1", "ada@example.com", "Ada", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(insertAccountQuery).
		WithArgs("acc-1", "ada@example.com", "Ada", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	user, err := repo.Create(ctx, "Ada@example.com", "password123", "Ada")
	require.NoError(t, err)
	assert.Equal(t, &model.User{ID: "acc-1", Email: "ada@example.com", DisplayName: "Ada"}, user)

	_, err = repo.Create(ctx, "ada@example.com", "password123", "Ada")
	reason, _ := repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonEmailExists, reason)

	_, err = repo.Create(ctx, "ada@example.com", "short", "Ada")
	reason, _ = repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonWeakPassword, reason)
}

func TestAccountSessions(t *testing.T) {
	ctx := context.Background()
	mock, repo := newTestAccountRepo(t)
	repo.newID = sequence("sess-1")

	hash, err := repository.HashPassword("password123")
	require.NoError(t, err)
	accountRow := func() *pgxmock.Rows {
		return mock.NewRows([]string{"id", "email", "display_name", "password_hash"}).
			AddRow("acc-1", "ada@example.com", "Ada", hash)
	}

	mock.ExpectQuery(findAccountByEmailQuery).WithArgs("ada@example.com").WillReturnRows(accountRow())
	mock.ExpectQuery(findAccountByEmailQuery).WithArgs("ada@example.com").WillReturnRows(accountRow())
	mock.ExpectExec(insertSessionQuery).
		WithArgs("sess-1", "acc-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(resolveSessionQuery).
		WithArgs("sess-1", "acc-1").
		WillReturnRows(mock.NewRows([]string{"id", "email", "display_name"}).AddRow("acc-1", "ada@example.com", "Ada"))
	mock.ExpectExec(revokeSessionQuery).WithArgs("sess-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(resolveSessionQuery).
		WithArgs("sess-1", "acc-1").
		WillReturnRows(mock.NewRows([]string{"id", "email", "display_name"}))

	_, _, err = repo.SignIn(ctx, "ada@example.com", "wrong-password")
	reason, _ := repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonInvalidCredential, reason)

	user, token, err := repo.SignIn(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", user.ID)

	resolved, err := repo.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user, resolved)

	require.NoError(t, repo.SignOut(ctx, token))
	require.NoError(t, repo.SignOut(ctx, "not-a-token"))

	_, err = repo.Resolve(ctx, token)
	reason, _ = repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonSessionExpired, reason)

	_, err = repo.Resolve(ctx, "garbage")
	reason, _ = repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonSessionExpired, reason)
}

func TestAccountRecovery(t *testing.T) {
	ctx := context.Background()
	mock, repo := newTestAccountRepo(t)
	repo.newToken = sequence("code-1")

	mock.ExpectQuery(findAccountByEmailQuery).
		WithArgs("ada@example.com").
		WillReturnRows(mock.NewRows([]string{"id", "email", "display_name", "password_hash"}).AddRow("acc-1", "ada@example.com", "Ada", "x"))
	mock.ExpectExec(insertRecoveryQuery).
		WithArgs(repository.HashToken("code-1"), "acc-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectBegin()
	mock.ExpectQuery(useRecoveryQuery).
		WithArgs(repository.HashToken("code-1")).
		WillReturnRows(mock.NewRows([]string{"account_id"}).AddRow("acc-1"))
	mock.ExpectExec(updatePasswordQuery).WithArgs(pgxmock.AnyArg(), "acc-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(revokeAllSessionsQuery).WithArgs("acc-1").WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(useRecoveryQuery).
		WithArgs(repository.HashToken("code-1")).
		WillReturnRows(mock.NewRows([]string{"account_id"}))
	mock.ExpectRollback()

	code, err := repo.StartRecovery(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "code-1", code)

	err = repo.CompleteRecovery(ctx, code, "short")
	reason, _ := repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonWeakPassword, reason)

	require.NoError(t, repo.CompleteRecovery(ctx, code, "new-password"))

	err = repo.CompleteRecovery(ctx, code, "new-password")
	reason, _ = repository.AuthReasonOf(err)
	assert.Equal(t, repository.ReasonInvalidCode, reason)
}

func TestMigrate(t *testing.T) {
	mock := newMock(t)
	for _, stmt := range migrations {
		mock.ExpectExec(stmt).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, Migrate(context.Background(), mock))
}
