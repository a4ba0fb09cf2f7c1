package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/tasktide/internal/constants"
)

var ErrEmptyIdentity = errors.New("identity must not be empty")

// Claims is the payload of a session token.
type Claims map[string]any

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService signing with secret. Sessions
// issued by IssueSession live for ttl.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	s := &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

// Issue signs exactly the given claims; nothing is added.
func (s *TokenService) Issue(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the claims. All
// failures (segment count, encoding, signature, expiry) are reported
// the same way.
func (s *TokenService) Verify(tokenString string) (Claims, bool) {
	claims := jwt.MapClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return Claims(claims), true
}

// IssueSession issues a token for username expiring ttl from now.
func (s *TokenService) IssueSession(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, ErrEmptyIdentity
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	token, err := s.Issue(Claims{
		constants.ClaimUsername: username,
		constants.ClaimExpiry:   expiresAt.Unix(),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Identity resolves a bearer token to the username it was issued for.
func (s *TokenService) Identity(tokenString string) (string, bool) {
	if tokenString == "" {
		return "", false
	}
	claims, ok := s.Verify(tokenString)
	if !ok {
		return "", false
	}
	username, _ := claims[constants.ClaimUsername].(string)
	if username == "" {
		return "", false
	}
	return username, true
}
