package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/BloggingApp/megablog/internal/mailer"
	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/repository"
	"github.com/BloggingApp/megablog/internal/session"
	"go.uber.org/zap"
)

type authService struct {
	logger   *zap.Logger
	repo     *repository.Repository
	mailer   mailer.Mailer
	resetURL string
}

func newAuthService(logger *zap.Logger, repo *repository.Repository, mailer mailer.Mailer, cfg Config) Auth {
	return &authService{
		logger:   logger,
		repo:     repo,
		mailer:   mailer,
		resetURL: cfg.ResetURL,
	}
}

func (s *authService) CreateAccount(ctx context.Context, sess *session.Session, email, password, displayName string) (*model.User, error) {
	if _, err := s.repo.Account.Create(ctx, email, password, strings.TrimSpace(displayName)); err != nil {
		return nil, s.authFailure("create account", err)
	}

	return s.signIn(ctx, sess, email, password)
}

func (s *authService) Login(ctx context.Context, sess *session.Session, email, password string) (*model.User, error) {
	if err := s.allow(ctx, "login", email); err != nil {
		return nil, err
	}

	return s.signIn(ctx, sess, email, password)
}

func (s *authService) signIn(ctx context.Context, sess *session.Session, email, password string) (*model.User, error) {
	user, token, err := s.repo.Account.SignIn(ctx, email, password)
	if err != nil {
		return nil, s.authFailure("sign in", err)
	}

	sess.Set(token, user)
	return user, nil
}

// CurrentUser resolves the session credential. Any failure reads as signed out.
func (s *authService) CurrentUser(ctx context.Context, sess *session.Session) *model.User {
	token := sess.Token()
	if token == "" {
		return nil
	}

	user, err := s.repo.Account.Resolve(ctx, token)
	if err != nil {
		if reason, _ := repository.AuthReasonOf(err); reason == repository.ReasonSessionExpired {
			sess.Clear()
		} else {
			s.logger.Sugar().Errorf("failed to resolve current user: %s", err.Error())
		}
		return nil
	}

	sess.Set(token, user)
	return user
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) bool {
	token := sess.Token()
	if token != "" {
		if err := s.repo.Account.SignOut(ctx, token); err != nil {
			s.logger.Sugar().Errorf("failed to sign out: %s", err.Error())
			return false
		}
	}

	sess.Clear()
	return true
}

// OnAuthStateChange calls fn with the current user right away and again on every transition of
// sess. Providers that push auth state also deliver transitions made outside this process.
func (s *authService) OnAuthStateChange(ctx context.Context, sess *session.Session, fn func(*model.User)) func() {
	current := s.CurrentUser(ctx, sess)
	unsubscribe := sess.Subscribe(fn)
	fn(current)

	watcher, ok := s.repo.Account.(repository.AccountWatcher)
	if !ok {
		return unsubscribe
	}

	w := &stateWatch{logger: s.logger, watcher: watcher, sess: sess}
	detach := sess.WatchToken(func(string) {
		w.rearm(ctx)
	})
	w.rearm(ctx)

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			detach()
			w.close()
		})
	}
}

// stateWatch keeps one provider watch open on the session's current credential.
type stateWatch struct {
	logger  *zap.Logger
	watcher repository.AccountWatcher
	sess    *session.Session

	mu     sync.Mutex
	token  string
	stop   func()
	closed bool
}

func (w *stateWatch) rearm(ctx context.Context) {
	token := w.sess.Token()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || token == w.token {
		return
	}
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	w.token = token
	if token == "" {
		return
	}

	stop, err := w.watcher.Watch(ctx, token, func(user *model.User) {
		if w.sess.Token() != token {
			return
		}
		if user == nil {
			w.sess.Clear()
			return
		}
		w.sess.Set(token, user)
	})
	if err != nil {
		w.logger.Sugar().Errorf("failed to watch auth state: %s", err.Error())
		return
	}
	w.stop = stop
}

func (w *stateWatch) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
}

func (s *authService) SendPasswordResetEmail(ctx context.Context, email string) (bool, error) {
	if err := s.allow(ctx, "reset", email); err != nil {
		return false, err
	}

	code, err := s.repo.Account.StartRecovery(ctx, email)
	if err != nil {
		return false, s.authFailure("start password recovery", err)
	}

	link, err := s.resetLink(code)
	if err != nil {
		s.logger.Sugar().Errorf("failed to build reset link: %s", err.Error())
		return false, ErrInternal
	}

	if err := s.mailer.Send(ctx, mailer.Message{
		To:      strings.ToLower(strings.TrimSpace(email)),
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Follow this link to reset your password:\n\n%s\n\nIf you did not ask to reset your password, ignore this email.", link),
	}); err != nil {
		s.logger.Sugar().Errorf("failed to send password reset email: %s", err.Error())
		return false, repository.NewAuthError(repository.ReasonNetwork, err)
	}

	return true, nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, code, newPassword string) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return false, repository.NewAuthError(repository.ReasonInvalidCode, nil)
	}

	if err := s.repo.Account.CompleteRecovery(ctx, code, newPassword); err != nil {
		return false, s.authFailure("complete password recovery", err)
	}

	return true, nil
}

func (s *authService) resetLink(code string) (string, error) {
	u, err := url.Parse(s.resetURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("mode", "resetPassword")
	q.Set("oobCode", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// allow applies the attempt limiter, if one is configured. Limiter failures do not block.
func (s *authService) allow(ctx context.Context, scope, email string) error {
	if s.repo.Limiter == nil {
		return nil
	}

	ok, err := s.repo.Limiter.Allow(ctx, scope+":"+strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		s.logger.Sugar().Errorf("failed to check %s attempts: %s", scope, err.Error())
		return nil
	}
	if !ok {
		return repository.NewAuthError(repository.ReasonTooManyRequests, nil)
	}
	return nil
}

func (s *authService) authFailure(action string, err error) error {
	if reason, ok := repository.AuthReasonOf(err); ok {
		if reason == repository.ReasonNetwork {
			s.logger.Sugar().Errorf("failed to %s: %s", action, err.Error())
		}
		return err
	}

	s.logger.Sugar().Errorf("failed to %s: %s", action, err.Error())
	return ErrInternal
}
