package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yukikurage/tasktide/internal/auth"
	"github.com/yukikurage/tasktide/internal/constants"
	"github.com/yukikurage/tasktide/internal/metrics"
	"github.com/yukikurage/tasktide/internal/models"
	"github.com/yukikurage/tasktide/internal/repository"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrTooManyAttempts      = errors.New("too many login attempts")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToIssueToken   = errors.New("failed to issue session token")
)

// AuthService handles credentials and sessions.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenService
	limiter  *rate.Limiter
	metrics  metrics.Recorder

	// decoy is verified against when the username is unknown, so a miss
	// costs the same KDF run as a wrong password.
	decoyOnce sync.Once
	decoyHash string
	decoySalt string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithLoginLimiter throttles Login. Every attempt takes a token, so a burst
// of guesses is refused whether the guesses are right or wrong.
func WithLoginLimiter(l *rate.Limiter) AuthOption {
	return func(s *AuthService) {
		s.limiter = l
	}
}

// WithMetrics records login outcomes on r.
func WithMetrics(r metrics.Recorder) AuthOption {
	return func(s *AuthService) {
		s.metrics = r
	}
}

// NewLoginLimiter returns a limiter allowing burst attempts at once and
// one more every interval.
func NewLoginLimiter(interval time.Duration, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(interval), burst)
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenService, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		metrics:  metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is what a successful login hands back to the shell.
type LoginResult struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	if !s.limiter.Allow() {
		s.metrics.RecordLogin(metrics.LoginThrottled)
		return nil, ErrTooManyAttempts
	}

	user, ok, err := s.check(username, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordLogin(metrics.LoginFailure)
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(user.Username, password)
	}

	token, expiresAt, err := s.tokens.IssueSession(user.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToIssueToken, err)
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	slog.Info("login succeeded", slog.String("username", user.Username))
	return &LoginResult{Token: token, Username: user.Username, ExpiresAt: expiresAt}, nil
}

// Identity resolves a session token to its username.
func (s *AuthService) Identity(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	return s.tokens.Identity(token)
}

// Register creates a credential record.
func (s *AuthService) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, salt, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToHashPassword, err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// ChangePassword replaces the password after checking the current one.
// A fresh salt is generated.
func (s *AuthService) ChangePassword(username, oldPassword, newPassword string) error {
	_, ok, err := s.check(username, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToHashPassword, err)
	}
	if err := s.userRepo.UpdatePassword(username, hash, salt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// VerifyCredentials reports whether password is valid for username. It is
// not throttled; it serves the administrative CLI only.
func (s *AuthService) VerifyCredentials(username, password string) (bool, error) {
	_, ok, err := s.check(username, password)
	return ok, err
}

// DeleteUser removes a credential record.
func (s *AuthService) DeleteUser(username string) error {
	if err := s.userRepo.Delete(username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ListUsers returns every username in order.
func (s *AuthService) ListUsers() ([]string, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names, nil
}

// check loads username and verifies password. An unknown user is not an error.
func (s *AuthService) check(username, password string) (*models.User, bool, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.verifyDecoy(password)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}
	return user, s.hasher.Verify(password, user.PasswordHash, user.Salt), nil
}

func (s *AuthService) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		hash, salt, err := s.hasher.Hash("decoy-password")
		if err != nil {
			slog.Warn("failed to derive decoy hash", slog.String("error", err.Error()))
			return
		}
		s.decoyHash, s.decoySalt = hash, salt
	})
	s.hasher.Verify(password, s.decoyHash, s.decoySalt)
}

// upgradeHash rewrites a legacy or weaker hash after a successful login.
// Failure leaves the old hash in place and the login still succeeds.
func (s *AuthService) upgradeHash(username, password string) {
	hash, salt, err := s.hasher.Hash(password)
	if err == nil {
		err = s.userRepo.UpdatePassword(username, hash, salt)
	}
	if err != nil {
		slog.Warn("failed to upgrade password hash", slog.String("username", username), slog.String("error", err.Error()))
		return
	}
	slog.Info("password hash upgraded", slog.String("username", username))
}
