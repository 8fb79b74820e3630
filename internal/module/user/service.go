package user

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/sflix/server/internal/utils/pagination"
	"github.com/sflix/server/internal/utils/sanitize"
	"go.uber.org/zap"
)

const maxUsernameLength = 50

// Service provides user profile and account administration.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile changes the caller's display name.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*User, error) {
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUsername(ctx, userID, username); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// ListUsers returns users matching filter, newest first.
func (s *Service) ListUsers(ctx context.Context, filter *UserFilter, page *pagination.Pagination) ([]*User, int64, error) {
	return s.repo.List(ctx, filter, page)
}

// SetDisabled enables or disables an account. Admins cannot disable themselves.
func (s *Service) SetDisabled(ctx context.Context, actorID, userID string, disabled bool) (*User, error) {
	if disabled && actorID == userID {
		return nil, ErrCannotDisableSelf
	}
	if err := s.repo.SetDisabled(ctx, userID, disabled); err != nil {
		return nil, err
	}

	s.logger.Info("user access changed",
		zap.String("actor_id", actorID),
		zap.String("user_id", userID),
		zap.Bool("disabled", disabled),
	)
	return s.repo.GetByID(ctx, userID)
}

func normalizeUsername(raw string) (string, error) {
	username := sanitize.Text(raw)
	if n := utf8.RuneCountInString(username); n == 0 || n > maxUsernameLength {
		return "", fmt.Errorf("%w: got %d", ErrInvalidUsername, n)
	}
	return username, nil
}
