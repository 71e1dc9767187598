package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	exact := strings.Repeat("a", 255)
	assert.Equal(t, exact, Truncate(exact, 255))

	over := strings.Repeat("b", 256)
	got := Truncate(over, 255)
	assert.Len(t, got, 255)
	assert.Equal(t, strings.Repeat("b", 252)+"...", got)

	multibyte := strings.Repeat("é", 300)
	assert.Equal(t, 255, len([]rune(Truncate(multibyte, 255))))

	assert.Equal(t, over, Truncate(over, 0))
	assert.Equal(t, "...", Truncate("abcdef", 2))
}

func TestCreateWithRetry(t *testing.T) {
	t.Run("retries conflicts with fresh ids", func(t *testing.T) {
		var ids []string
		n := 0
		newID := func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}

		id, err := CreateWithRetry(context.Background(), newID, func(id string) error {
			ids = append(ids, id)
			if len(ids) < 3 {
				return ErrConflict
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, "id-3", id)
		assert.Equal(t, []string{"id-1", "id-2", "id-3"}, ids)
	})

	t.Run("gives up after three retries", func(t *testing.T) {
		calls := 0
		start := time.Now()
		_, err := CreateWithRetry(context.Background(), func() string { return "same" }, func(string) error {
			calls++
			return fmt.Errorf("insert: %w", ErrConflict)
		})

		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, MaxCreateAttempts, calls)
		assert.GreaterOrEqual(t, time.Since(start), 3*RetryDelay)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		_, err := CreateWithRetry(context.Background(), func() string { return "x" }, func(string) error {
			calls++
			return boom
		})

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := CreateWithRetry(ctx, func() string { return "x" }, func(string) error {
			cancel()
			return ErrConflict
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAuthError(t *testing.T) {
	base := errors.New("duplicate key")
	err := fmt.Errorf("create account: %w", NewAuthError(ReasonEmailExists, base))

	reason, ok := AuthReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonEmailExists, reason)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "auth/email-already-in-use")

	_, ok = AuthReasonOf(base)
	assert.False(t, ok)

	assert.ErrorIs(t, Unavailable(base), ErrUnavailable)
	assert.ErrorIs(t, Unavailable(base), base)
	assert.NoError(t, Unavailable(nil))
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Ada@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)

	for _, bad := range []string{"", "not-an-email", "Ada <ada@example.com>"} {
		_, err := NormalizeEmail(bad)
		reason, ok := AuthReasonOf(err)
		assert.True(t, ok, bad)
		assert.Equal(t, ReasonInvalidEmail, reason, bad)
	}
}

func TestPasswords(t *testing.T) {
	reason, _ := AuthReasonOf(ValidatePassword("short"))
	assert.Equal(t, ReasonWeakPassword, reason)
	assert.NoError(t, ValidatePassword("long enough"))

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "correct horse"))

	reason, _ = AuthReasonOf(CheckPassword(hash, "battery staple"))
	assert.Equal(t, ReasonInvalidCredential, reason)
}

func TestIDs(t *testing.T) {
	id := NewDocumentID()
	assert.Len(t, id, 20)
	assert.Regexp(t, `^[A-Za-z0-9]{20}$`, id)
	assert.NotEqual(t, id, NewDocumentID())

	token := NewToken()
	assert.Len(t, token, 64)
	assert.Equal(t, HashToken(token), HashToken(token))
	assert.NotEqual(t, token, HashToken(token))
}
