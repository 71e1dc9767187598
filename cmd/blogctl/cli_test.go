package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BloggingApp/megablog/internal/bootstrap"
	"github.com/BloggingApp/megablog/internal/config"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	c           *cli
	sessionPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := zap.NewNop()
	app, err := bootstrap.New(context.Background(), &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Media: config.MediaConfig{Driver: config.MediaInline},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &harness{
		c:           &cli{logger: logger, app: app},
		sessionPath: filepath.Join(t.TempDir(), "session.yaml"),
	}
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd(h.c)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--session", h.sessionPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestAuthCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("signup", "--email", "ada@example.com", "--password", "password1", "--name", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "signed in as Ada <ada@example.com>\n", out)

	saved, err := session.Load(h.sessionPath)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Token())

	out, err = h.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "signed in as Ada <ada@example.com>\n", out)

	out, err = h.run("watch", "--for", "10ms")
	require.NoError(t, err)
	assert.Equal(t, "signed in as Ada <ada@example.com>\n", out)

	out, err = h.run("logout")
	require.NoError(t, err)
	assert.Equal(t, "signed out\n", out)

	out, err = h.run("whoami")
	require.NoError(t, err)
	assert.Equal(t, "signed out\n", out)

	_, err = h.run("login", "--email", "ada@example.com", "--password", "nope-nope")
	assert.EqualError(t, err, "Invalid email or password.")

	_, err = h.run("login", "--email", "ada@example.com")
	assert.Error(t, err)

	out, err = h.run("password", "forgot", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "password reset email sent")

	_, err = h.run("password", "reset", "--code", "bogus", "--password", "password2")
	assert.EqualError(t, err, "Invalid or expired reset code. Please request a new password reset.")
}

func TestPostCommands(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("posts", "create", "--title", "Hello CLI")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = h.run("signup", "--email", "ada@example.com", "--password", "password1")
	require.NoError(t, err)

	image := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"), 0o600))

	out, err := h.run("posts", "create", "--title", "Hello CLI", "--content", "body", "--image", image)
	require.NoError(t, err)
	var post model.Post
	require.NoError(t, json.Unmarshal([]byte(out), &post))
	assert.Equal(t, "hello-cli", post.Slug)
	assert.NotEmpty(t, post.FeaturedImage)

	out, err = h.run("posts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "hello-cli")
	assert.Contains(t, out, "*")

	out, err = h.run("posts", "get", "hello-cli")
	require.NoError(t, err)
	assert.Contains(t, out, `"isAuthor": true`)

	_, err = h.run("posts", "get", "missing")
	assert.Error(t, err)

	out, err = h.run("posts", "update", post.ID, "--status", "inactive", "--remove-image")
	require.NoError(t, err)
	var updated model.Post
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, model.StatusInactive, updated.Status)
	assert.Empty(t, updated.FeaturedImage)

	_, err = h.run("posts", "update", post.ID)
	assert.EqualError(t, err, "nothing to update")

	out, err = h.run("posts", "stats")
	require.NoError(t, err)
	assert.Equal(t, "total 1, active 0, inactive 1, drafts 0\n", out)

	out, err = h.run("posts", "delete", post.ID)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+post.ID+"\n", out)

	_, err = h.run("posts", "delete", post.ID)
	assert.Error(t, err)
}
