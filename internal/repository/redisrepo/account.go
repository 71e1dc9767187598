package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	accountFieldID       = "id"
	accountFieldEmail    = "email"
	accountFieldName     = "display_name"
	accountFieldPassword = "password_hash"
	accountFieldCreated  = "created_at"
)

type accountRepo struct {
	rdb         *redis.Client
	logger      *zap.Logger
	sessionTTL  time.Duration
	recoveryTTL time.Duration
	newID       repository.IDFunc
	newToken    func() string
	now         func() time.Time
}

func newAccountRepo(rdb *redis.Client, logger *zap.Logger, opts Options) *accountRepo {
	return &accountRepo{
		rdb:         rdb,
		logger:      logger,
		sessionTTL:  opts.SessionTTL,
		recoveryTTL: opts.RecoveryTTL,
		newID:       repository.NewDocumentID,
		newToken:    repository.NewToken,
		now:         time.Now,
	}
}

func (r *accountRepo) Create(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := repository.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := repository.HashPassword(password)
	if err != nil {
		return nil, err
	}

	id := r.newID()
	ok, err := r.rdb.SetNX(ctx, AccountEmailKey(email), id, 0).Result()
	if err != nil {
		return nil, repository.NewAuthError(repository.ReasonNetwork, err)
	}
	if !ok {
		return nil, repository.NewAuthError(repository.ReasonEmailExists, nil)
	}

	if err := r.rdb.HSet(ctx, AccountKey(id), map[string]any{
		accountFieldID:       id,
		accountFieldEmail:    email,
		accountFieldName:     displayName,
		accountFieldPassword: hash,
		accountFieldCreated:  r.now().UTC().Format(time.RFC3339Nano),
	}).Err(); err != nil {
		if delErr := r.rdb.Del(ctx, AccountEmailKey(email)).Err(); delErr != nil {
			r.logger.Sugar().Errorf("failed to release email claim(%s): %s", email, delErr.Error())
		}
		return nil, repository.NewAuthError(repository.ReasonNetwork, err)
	}

	return &model.User{ID: id, Email: email, DisplayName: displayName}, nil
}

func (r *accountRepo) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	id, err := r.rdb.Get(ctx, AccountEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
		}
		return nil, "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	fields, err := r.rdb.HGetAll(ctx, AccountKey(id)).Result()
	if err != nil {
		return nil, "", repository.NewAuthError(repository.ReasonNetwork, err)
	}
	if len(fields) == 0 {
		return nil, "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
	}

	if err := repository.CheckPassword(fields[accountFieldPassword], password); err != nil {
		return nil, "", err
	}

	token := r.newToken()
	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, SessionKey(token), id, r.sessionTTL)
		pipe.SAdd(ctx, AccountSessionsKey(id), token)
		return nil
	}); err != nil {
		return nil, "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	user := userFromFields(fields)
	r.publish(ctx, token, user)
	return user, token, nil
}

func (r *accountRepo) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, repository.NewAuthError(repository.ReasonSessionExpired, nil)
	}

	id, err := r.rdb.Get(ctx, SessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.NewAuthError(repository.ReasonSessionExpired, nil)
		}
		return nil, repository.NewAuthError(repository.ReasonNetwork, err)
	}

	fields, err := r.rdb.HGetAll(ctx, AccountKey(id)).Result()
	if err != nil {
		return nil, repository.NewAuthError(repository.ReasonNetwork, err)
	}
	if len(fields) == 0 {
		return nil, repository.NewAuthError(repository.ReasonSessionExpired, nil)
	}

	return userFromFields(fields), nil
}

// SignOut revokes the session behind token. Unknown tokens are not an error.
func (r *accountRepo) SignOut(ctx context.Context, token string) error {
	id, err := r.rdb.Get(ctx, SessionKey(token)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}

	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, SessionKey(token))
		if id != "" {
			pipe.SRem(ctx, AccountSessionsKey(id), token)
		}
		return nil
	}); err != nil {
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}

	r.publish(ctx, token, nil)
	return nil
}

func (r *accountRepo) StartRecovery(ctx context.Context, email string) (string, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	id, err := r.rdb.Get(ctx, AccountEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
		}
		return "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	code := r.newToken()
	if err := r.rdb.Set(ctx, RecoveryKey(repository.HashToken(code)), id, r.recoveryTTL).Err(); err != nil {
		return "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	return code, nil
}

// CompleteRecovery consumes code, replaces the password and revokes every open session.
// A weak password is rejected before the code is consumed.
func (r *accountRepo) CompleteRecovery(ctx context.Context, code, password string) error {
	if err := repository.ValidatePassword(password); err != nil {
		return err
	}

	id, err := r.rdb.GetDel(ctx, RecoveryKey(repository.HashToken(code))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.NewAuthError(repository.ReasonInvalidCode, nil)
		}
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}

	hash, err := repository.HashPassword(password)
	if err != nil {
		return err
	}

	tokens, err := r.rdb.SMembers(ctx, AccountSessionsKey(id)).Result()
	if err != nil {
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}

	if _, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, AccountKey(id), accountFieldPassword, hash)
		for _, token := range tokens {
			pipe.Del(ctx, SessionKey(token))
		}
		pipe.Del(ctx, AccountSessionsKey(id))
		return nil
	}); err != nil {
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}

	for _, token := range tokens {
		r.publish(ctx, token, nil)
	}
	return nil
}

// Watch delivers auth state pushed for token until stop is called.
func (r *accountRepo) Watch(ctx context.Context, token string, fn func(*model.User)) (func(), error) {
	ps := r.rdb.Subscribe(ctx, AuthStateChannel(token))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, repository.Unavailable(err)
	}

	var stopped atomic.Bool
	ch := ps.Channel()
	go func() {
		for msg := range ch {
			if stopped.Load() {
				continue
			}
			var user *model.User
			if err := json.Unmarshal([]byte(msg.Payload), &user); err != nil {
				r.logger.Sugar().Errorf("failed to decode auth state for session: %s", err.Error())
				continue
			}
			fn(user)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			if err := ps.Close(); err != nil {
				r.logger.Sugar().Errorf("failed to close auth state subscription: %s", err.Error())
			}
		})
	}, nil
}

func (r *accountRepo) publish(ctx context.Context, token string, user *model.User) {
	payload, err := json.Marshal(user)
	if err != nil {
		r.logger.Sugar().Errorf("failed to encode auth state: %s", err.Error())
		return
	}

	if err := r.rdb.Publish(ctx, AuthStateChannel(token), payload).Err(); err != nil {
		r.logger.Sugar().Errorf("failed to publish auth state: %s", err.Error())
	}
}

func userFromFields(fields map[string]string) *model.User {
	return &model.User{
		ID:          fields[accountFieldID],
		Email:       fields[accountFieldEmail],
		DisplayName: fields[accountFieldName],
	}
}
