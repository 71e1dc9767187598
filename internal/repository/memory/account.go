package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
)

type account struct {
	user     model.User
	password string
}

type recovery struct {
	accountID string
	expires   time.Time
}

type accountRepo struct {
	mu         sync.Mutex
	accounts   map[string]*account
	byEmail    map[string]string
	sessions   map[string]string
	recoveries map[string]recovery
	watchers   map[string]map[int]func(*model.User)
	nextWatch  int

	recoveryTTL time.Duration
	newID       repository.IDFunc
	newToken    func() string
	now         func() time.Time
}

func newAccountRepo(recoveryTTL time.Duration) *accountRepo {
	return &accountRepo{
		accounts:    make(map[string]*account),
		byEmail:     make(map[string]string),
		sessions:    make(map[string]string),
		recoveries:  make(map[string]recovery),
		watchers:    make(map[string]map[int]func(*model.User)),
		recoveryTTL: recoveryTTL,
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

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[email]; ok {
		return nil, repository.NewAuthError(repository.ReasonEmailExists, nil)
	}

	acc := &account{
		user:     model.User{ID: r.newID(), Email: email, DisplayName: displayName},
		password: hash,
	}
	r.accounts[acc.user.ID] = acc
	r.byEmail[email] = acc.user.ID

	user := acc.user
	return &user, nil
}

func (r *accountRepo) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	acc, ok := r.findByEmail(email)
	r.mu.Unlock()
	if !ok {
		return nil, "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
	}
	if err := repository.CheckPassword(acc.password, password); err != nil {
		return nil, "", err
	}

	token := r.newToken()
	r.mu.Lock()
	r.sessions[token] = acc.user.ID
	r.mu.Unlock()

	user := acc.user
	return &user, token, nil
}

func (r *accountRepo) Resolve(ctx context.Context, token string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[r.sessions[token]]
	if !ok {
		return nil, repository.NewAuthError(repository.ReasonSessionExpired, nil)
	}
	user := acc.user
	return &user, nil
}

func (r *accountRepo) SignOut(ctx context.Context, token string) error {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()

	r.notify(token)
	return nil
}

func (r *accountRepo) StartRecovery(ctx context.Context, email string) (string, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.findByEmail(email)
	if !ok {
		return "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
	}

	code := r.newToken()
	r.recoveries[repository.HashToken(code)] = recovery{accountID: acc.user.ID, expires: r.now().Add(r.recoveryTTL)}
	return code, nil
}

func (r *accountRepo) CompleteRecovery(ctx context.Context, code, password string) error {
	if err := repository.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := repository.HashPassword(password)
	if err != nil {
		return err
	}

	r.mu.Lock()
	key := repository.HashToken(code)
	rec, ok := r.recoveries[key]
	delete(r.recoveries, key)
	acc, exists := r.accounts[rec.accountID]
	if !ok || !exists || r.now().After(rec.expires) {
		r.mu.Unlock()
		return repository.NewAuthError(repository.ReasonInvalidCode, nil)
	}

	acc.password = hash
	var revoked []string
	for token, id := range r.sessions {
		if id == acc.user.ID {
			revoked = append(revoked, token)
			delete(r.sessions, token)
		}
	}
	r.mu.Unlock()

	for _, token := range revoked {
		r.notify(token)
	}
	return nil
}

func (r *accountRepo) Watch(ctx context.Context, token string, fn func(*model.User)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextWatch
	r.nextWatch++
	if r.watchers[token] == nil {
		r.watchers[token] = make(map[int]func(*model.User))
	}
	r.watchers[token][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers[token], id)
			if len(r.watchers[token]) == 0 {
				delete(r.watchers, token)
			}
			r.mu.Unlock()
		})
	}, nil
}

// notify tells the watchers of token that it no longer resolves.
func (r *accountRepo) notify(token string) {
	r.mu.Lock()
	fns := make([]func(*model.User), 0, len(r.watchers[token]))
	for _, fn := range r.watchers[token] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
}

func (r *accountRepo) findByEmail(email string) (*account, bool) {
	acc, ok := r.accounts[r.byEmail[email]]
	return acc, ok
}
