package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sflix/server/internal/module/user"
	apperrors "github.com/sflix/server/internal/utils/errors"
	"github.com/sflix/server/internal/utils/metrics"
	"github.com/sflix/server/internal/utils/middleware"
	"github.com/sflix/server/internal/utils/sanitize"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Config holds the rules for granting administrator rights at sign-up.
type Config struct {
	AdminEmails      []string
	AdminEmailDomain string
}

// UserStore is the subset of the user repository auth needs.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Service handles sign-up, sign-in and token validation.
type Service struct {
	users   UserStore
	tokens  *TokenManager
	config  Config
	metrics *metrics.Metrics
	logger  *zap.Logger
	cost    int
}

// NewService creates a new auth service.
func NewService(users UserStore, tokens *TokenManager, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:   users,
		tokens:  tokens,
		config:  cfg,
		metrics: m,
		logger:  logger,
		cost:    bcrypt.DefaultCost,
	}
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	username := sanitize.Text(req.Username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if len([]rune(username)) > 50 {
		return nil, user.ErrInvalidUsername
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrEmailAlreadyExists
	} else if !errors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		IsAdmin:      s.grantsAdmin(email),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.metrics.RecordAuthEvent("register")
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.Bool("is_admin", u.IsAdmin))

	return s.issue(u)
}

// Login verifies credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			s.metrics.RecordAuthEvent("login_failed")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordAuthEvent("login_failed")
		return nil, ErrInvalidCredentials
	}
	if u.Disabled {
		s.metrics.RecordAuthEvent("login_disabled")
		return nil, apperrors.ErrAccountDisabled
	}

	s.metrics.RecordAuthEvent("login")
	return s.issue(u)
}

// ValidateToken resolves a bearer token to the current principal. The
// account is re-read so disabling a user takes effect before token expiry.
func (s *Service) ValidateToken(ctx context.Context, token string) (*middleware.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return nil, err
	}
	if u.Disabled {
		return nil, fmt.Errorf("user %s: %w", u.ID, apperrors.ErrAccountDisabled)
	}

	return &middleware.Principal{
		UserID:  u.ID,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}, nil
}

func (s *Service) issue(u *user.User) (*AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, ExpiresAt: expiresAt, User: u.ToResponse()}, nil
}

func (s *Service) grantsAdmin(email string) bool {
	for _, e := range s.config.AdminEmails {
		if normalizeEmail(e) == email {
			return true
		}
	}
	domain := strings.ToLower(strings.TrimPrefix(s.config.AdminEmailDomain, "@"))
	return domain != "" && strings.HasSuffix(email, "@"+domain)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
