package session

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSession_NotifiesOnTransitionsOnly(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New("")
	var (
		mu   sync.Mutex
		seen []*model.User
	)
	unsubscribe := s.Subscribe(func(u *model.User) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, u)
	})

	alice := &model.User{ID: "u1", Email: "a@example.com", DisplayName: "Alice"}
	s.Set("tok-1", alice)
	s.Set("tok-2", alice)
	s.Clear()
	s.Clear()

	unsubscribe()
	unsubscribe()
	s.Set("tok-3", alice)

	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].ID)
	assert.Nil(t, seen[1])
	assert.Equal(t, "tok-3", s.Token())
}

func TestSession_WatchTokenSeesEveryCredential(t *testing.T) {
	s := New("")
	var tokens []string
	detach := s.WatchToken(func(token string) {
		tokens = append(tokens, token)
	})

	alice := &model.User{ID: "u1", Email: "a@example.com", DisplayName: "Alice"}
	s.Set("tok-1", alice)
	s.Set("tok-1", alice)
	s.Set("tok-2", alice)
	s.Clear()

	detach()
	detach()
	s.Set("tok-3", alice)

	assert.Equal(t, []string{"tok-1", "tok-2", ""}, tokens)
}

func TestSession_UserIsCopied(t *testing.T) {
	s := New("tok")
	u := &model.User{ID: "u1", DisplayName: "Alice"}
	s.Set("tok", u)

	u.DisplayName = "Mallory"
	got := s.User()
	require.NotNil(t, got)
	assert.Equal(t, "Alice", got.DisplayName)

	got.DisplayName = "Eve"
	assert.Equal(t, "Alice", s.User().DisplayName)
}

func TestSession_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")

	missing, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, missing.Token())
	assert.Nil(t, missing.User())

	s := New("")
	s.Set("tok-1", &model.User{ID: "u1", Email: "a@example.com", DisplayName: "Alice"})
	require.NoError(t, Save(path, s))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", loaded.Token())
	assert.Equal(t, &model.User{ID: "u1", Email: "a@example.com", DisplayName: "Alice"}, loaded.User())
}
