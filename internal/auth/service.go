package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tasklane.org/internal/ids"
)

// Service orchestrates the identity and session lifecycle: registration,
// login behind the brute-force guard, refresh-token rotation, and logout.
type Service struct {
	users      UserStore
	guard      *Guard
	tokens     *Tokens
	bcryptCost int
	now        func() time.Time
	log        *logrus.Logger
}

// ServiceOption configures Service.
type ServiceOption func(*Service) error

// WithBcryptCost overrides the password hashing cost factor.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) error {
		if cost > 0 {
			s.bcryptCost = cost
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithLogger overrides the logger.
func WithLogger(log *logrus.Logger) ServiceOption {
	return func(s *Service) error {
		if log != nil {
			s.log = log
		}
		return nil
	}
}

// NewService constructs the auth service.
func NewService(users UserStore, guard *Guard, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if guard == nil {
		return nil, errors.New("auth: brute-force guard is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{
		users:  users,
		guard:  guard,
		tokens: tokens,
		now:    time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Avatar    string
}

func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Role = strings.TrimSpace(in.Role)
	if in.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}

// Register creates the account and immediately issues a token pair, so a
// fresh registration is also a live session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, TokenPair, error) {
	if err := in.normalize(); err != nil {
		return nil, TokenPair{}, err
	}
	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, TokenPair{}, err
	}
	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Avatar:       in.Avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.issuePair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Login authenticates credentials behind the brute-force guard. It never
// tells the caller whether the username or the password was wrong.
func (s *Service) Login(ctx context.Context, username, password, ip string) (*User, TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if s.guard.IsLocked(ctx, username, ip) {
		return nil, TokenPair{}, ErrAccountLocked
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.WithError(err).Warn("user lookup failed during login")
		}
		s.guard.RecordFailure(ctx, username, ip)
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.guard.RecordFailure(ctx, username, ip)
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	s.guard.Clear(ctx, username)
	pair, err := s.issuePair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token: verify kind, reject revoked, re-read the
// user (role and profile may have changed since issuance), revoke the
// presented token, and issue a fresh pair. The presented token is single
// use; verifying it again afterwards reports it revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if s.tokens.IsRevoked(ctx, refreshToken) {
		return nil, TokenPair{}, ErrTokenRevoked
	}
	user, err := s.users.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, TokenPair{}, fmt.Errorf("%w: user %s", ErrNotFound, claims.Subject)
		}
		return nil, TokenPair{}, err
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.issuePair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Logout revokes the refresh token. The paired access token is left to
// run out its short expiry on its own.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if _, err := s.tokens.VerifyRefresh(refreshToken); err != nil {
		return err
	}
	if s.tokens.IsRevoked(ctx, refreshToken) {
		return ErrTokenRevoked
	}
	return s.tokens.Revoke(ctx, refreshToken)
}

// VerifyAccess exposes access-token verification for the authn middleware.
func (s *Service) VerifyAccess(token string) (*AccessClaims, error) {
	return s.tokens.VerifyAccess(token)
}

// SearchUsers finds users by username fragment for invite pickers.
func (s *Service) SearchUsers(ctx context.Context, fragment string) ([]*User, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, nil
	}
	return s.users.Search(ctx, fragment)
}

func (s *Service) issuePair(user *User) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
