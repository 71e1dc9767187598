package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/pkg/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const (
	insertAccountQuery      = "INSERT INTO accounts(id, email, display_name, password_hash) VALUES($1, $2, $3, $4)"
	findAccountByEmailQuery = "SELECT id, email, display_name, password_hash FROM accounts WHERE email = $1"
	insertSessionQuery      = "INSERT INTO sessions(id, account_id, expires_at) VALUES($1, $2, $3)"
	revokeSessionQuery      = "UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL"
	revokeAllSessionsQuery  = "UPDATE sessions SET revoked_at = now() WHERE account_id = $1 AND revoked_at IS NULL"
	insertRecoveryQuery     = "INSERT INTO recoveries(code_hash, account_id, expires_at) VALUES($1, $2, $3)"
	useRecoveryQuery        = "UPDATE recoveries SET used_at = now() WHERE code_hash = $1 AND used_at IS NULL AND expires_at > now() RETURNING account_id"
	updatePasswordQuery     = "UPDATE accounts SET password_hash = $1 WHERE id = $2"
)

const resolveSessionQuery = `SELECT a.id, a.email, a.display_name
	FROM sessions s
	JOIN accounts a ON a.id = s.account_id
	WHERE s.id = $1 AND s.account_id = $2 AND s.revoked_at IS NULL AND s.expires_at > now()`

type accountRepo struct {
	db          DB
	secret      []byte
	sessionTTL  time.Duration
	recoveryTTL time.Duration
	newID       repository.IDFunc
	newToken    func() string
	now         func() time.Time
}

func newAccountRepo(db DB, opts Options) *accountRepo {
	return &accountRepo{
		db:          db,
		secret:      opts.JWTSecret,
		sessionTTL:  opts.SessionTTL,
		recoveryTTL: opts.RecoveryTTL,
		newID:       uuid.NewString,
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
	if _, err := r.db.Exec(ctx, insertAccountQuery, id, email, displayName, hash); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.NewAuthError(repository.ReasonEmailExists, nil)
		}
		return nil, repository.NewAuthError(repository.ReasonNetwork, err)
	}

	return &model.User{ID: id, Email: email, DisplayName: displayName}, nil
}

// SignIn issues a signed session token bound to a sessions row, so it can be revoked
// before it expires.
func (r *accountRepo) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	var (
		user model.User
		hash string
	)
	if err := r.db.QueryRow(ctx, findAccountByEmailQuery, email).Scan(&user.ID, &user.Email, &user.DisplayName, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
		}
		return nil, "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	if err := repository.CheckPassword(hash, password); err != nil {
		return nil, "", err
	}

	now := r.now()
	sessionID := r.newID()
	if _, err := r.db.Exec(ctx, insertSessionQuery, sessionID, user.ID, now.Add(r.sessionTTL)); err != nil {
		return nil, "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	token, err := utils.EncodeJWT(utils.NewSessionClaims(user.ID, sessionID, now, r.sessionTTL), r.secret)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

func (r *accountRepo) Resolve(ctx context.Context, token string) (*model.User, error) {
	claims, err := utils.DecodeSessionJWT(token, r.secret)
	if err != nil {
		return nil, repository.NewAuthError(repository.ReasonSessionExpired, err)
	}

	var user model.User
	if err := r.db.QueryRow(ctx, resolveSessionQuery, claims.SessionID, claims.Subject).Scan(&user.ID, &user.Email, &user.DisplayName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.NewAuthError(repository.ReasonSessionExpired, nil)
		}
		return nil, repository.NewAuthError(repository.ReasonNetwork, err)
	}

	return &user, nil
}

// SignOut revokes the session behind token. Tokens that no longer verify are already
// unusable and are ignored.
func (r *accountRepo) SignOut(ctx context.Context, token string) error {
	claims, err := utils.DecodeSessionJWT(token, r.secret)
	if err != nil {
		return nil
	}

	if _, err := r.db.Exec(ctx, revokeSessionQuery, claims.SessionID); err != nil {
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}
	return nil
}

func (r *accountRepo) StartRecovery(ctx context.Context, email string) (string, error) {
	email, err := repository.NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	var (
		user model.User
		hash string
	)
	if err := r.db.QueryRow(ctx, findAccountByEmailQuery, email).Scan(&user.ID, &user.Email, &user.DisplayName, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.NewAuthError(repository.ReasonUserNotFound, nil)
		}
		return "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

	code := r.newToken()
	if _, err := r.db.Exec(ctx, insertRecoveryQuery, repository.HashToken(code), user.ID, r.now().Add(r.recoveryTTL)); err != nil {
		return "", repository.NewAuthError(repository.ReasonNetwork, err)
	}

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

	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var accountID string
		if err := tx.QueryRow(ctx, useRecoveryQuery, repository.HashToken(code)).Scan(&accountID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.NewAuthError(repository.ReasonInvalidCode, nil)
			}
			return err
		}

		if _, err := tx.Exec(ctx, updatePasswordQuery, hash, accountID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, revokeAllSessionsQuery, accountID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if _, ok := repository.AuthReasonOf(err); ok {
			return err
		}
		return repository.NewAuthError(repository.ReasonNetwork, err)
	}

	return nil
}
