package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"

	dErrors "alphabase/pkg/domain-errors"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// Service implements registration, login, and profile lookup.
type Service struct {
	store  Store
	tokens TokenIssuer
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(store Store, tokens TokenIssuer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates an account and returns an access token, so a fresh signup
// is immediately logged in.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	if username == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "username must not be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	if password == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "password must not be empty")
	}

	taken, err := s.store.EmailTaken(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", dErrors.New(dErrors.CodeConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "user registered", "username", username)
	return s.tokens.Issue(username)
}

// Login verifies credentials and returns an access token. Unknown usernames
// and wrong passwords produce the same error, so the endpoint does not leak
// which accounts exist.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}
	if err != nil {
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "login failed", "username", username)
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}

	return s.tokens.Issue(username)
}

// Profile returns the account behind an authenticated principal.
func (s *Service) Profile(ctx context.Context, username string) (User, error) {
	return s.store.GetByUsername(ctx, username)
}
