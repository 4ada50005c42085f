package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Token kinds carried in the token_type claim.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

const (
	defaultIssuer     = "tasklane"
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims is the payload of a short-lived access token. It carries a
// denormalized snapshot of the user profile so authenticated requests do not
// need a user-store round-trip.
type AccessClaims struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
	TokenKind string `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity converts the claims snapshot into a request identity.
func (c *AccessClaims) Identity() Identity {
	return Identity{
		UserID:    c.Subject,
		Username:  c.Username,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Role:      c.Role,
		Email:     c.Email,
		Avatar:    c.Avatar,
	}
}

// RefreshClaims is the payload of a long-lived refresh token: user id, kind
// marker, and a unique jti. Profile state is deliberately absent; rotation
// re-reads the user store.
type RefreshClaims struct {
	TokenKind string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies both token kinds and fronts the revocation
// list. Access and refresh tokens are signed with independent secrets so
// compromise of one cannot forge the other kind.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	blocklist     TokenBlocklist
	now           func() time.Time
	log           *logrus.Logger
}

// TokensOption configures Tokens.
type TokensOption func(*Tokens) error

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) error {
		if ttl > 0 {
			t.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) error {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
		return nil
	}
}

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) TokensOption {
	return func(t *Tokens) error {
		if v := strings.TrimSpace(issuer); v != "" {
			t.issuer = v
		}
		return nil
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokensOption {
	return func(t *Tokens) error {
		if fn != nil {
			t.now = fn
		}
		return nil
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(log *logrus.Logger) TokensOption {
	return func(t *Tokens) error {
		if log != nil {
			t.log = log
		}
		return nil
	}
}

// NewTokens constructs the token service. Both secrets are required and must
// differ; algorithm must name an HMAC signing method.
func NewTokens(accessSecret, refreshSecret []byte, algorithm string, blocklist TokenBlocklist, opts ...TokensOption) (*Tokens, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	method := jwt.GetSigningMethod(strings.TrimSpace(algorithm))
	if method == nil {
		return nil, fmt.Errorf("auth: unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: algorithm %q is not an HMAC variant", algorithm)
	}
	if blocklist == nil {
		return nil, errors.New("auth: token blocklist is required")
	}
	t := &Tokens{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		method:        method,
		issuer:        defaultIssuer,
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		blocklist:     blocklist,
		now:           time.Now,
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MaxLifetime is the longest lifetime across both kinds; revocation records
// expire after it.
func (t *Tokens) MaxLifetime() time.Duration {
	if t.accessTTL > t.refreshTTL {
		return t.accessTTL
	}
	return t.refreshTTL
}

// IssueAccess signs a fresh access token for the user.
func (t *Tokens) IssueAccess(u *User) (string, time.Time, error) {
	if u == nil || u.ID == "" {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	now := t.now().UTC()
	exp := now.Add(t.accessTTL)
	claims := AccessClaims{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Email:     u.Email,
		Avatar:    u.Avatar,
		TokenKind: TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh signs a fresh refresh token for the user id.
func (t *Tokens) IssueRefresh(userID string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("auth: userID is required")
	}
	now := t.now().UTC()
	exp := now.Add(t.refreshTTL)
	claims := RefreshClaims{
		TokenKind: TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// VerifyAccess validates signature, expiry, and kind of an access token.
func (t *Tokens) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(token, claims, t.accessSecret); err != nil {
		return nil, err
	}
	if claims.TokenKind != TokenKindAccess {
		return nil, fmt.Errorf("%w: expected %s", ErrTokenKindMismatch, TokenKindAccess)
	}
	return claims, nil
}

// VerifyRefresh validates signature, expiry, and kind of a refresh token.
func (t *Tokens) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(token, claims, t.refreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenKind != TokenKindRefresh {
		return nil, fmt.Errorf("%w: expected %s", ErrTokenKindMismatch, TokenKindRefresh)
	}
	return claims, nil
}

func (t *Tokens) parse(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenInvalid
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if tok.Method.Alg() != t.method.Alg() {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	},
		jwt.WithTimeFunc(t.now),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// Revoke inserts the token into the revocation list. A duplicate insert
// means the token was already revoked and is not an error.
func (t *Tokens) Revoke(ctx context.Context, token string) error {
	err := t.blocklist.Block(ctx, token, t.MaxLifetime())
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	return err
}

// IsRevoked checks revocation-list membership. Inability to query the list
// treats the token as revoked; this gate must fail secure.
func (t *Tokens) IsRevoked(ctx context.Context, token string) bool {
	blocked, err := t.blocklist.Contains(ctx, token)
	if err != nil {
		t.log.WithError(err).Warn("revocation check failed, treating token as revoked")
		return true
	}
	return blocked
}
