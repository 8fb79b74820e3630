package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sflix/server/internal/module/subscription"
	"github.com/sflix/server/internal/utils/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter *UserFilter, page *pagination.Pagination) ([]*User, int64, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*User), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return m.Called(ctx, id, disabled).Error(0)
}

func (m *MockRepository) UpdateUsername(ctx context.Context, id, username string) error {
	return m.Called(ctx, id, username).Error(0)
}

func (m *MockRepository) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockRepository) MergeSubscription(ctx context.Context, userID string, patch *subscription.Patch) error {
	return m.Called(ctx, userID, patch).Error(0)
}

func (m *MockRepository) DemoteExpired(ctx context.Context, userID string, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListActive(ctx context.Context) ([]subscription.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Record), args.Error(1)
}

func (m *MockRepository) ListSubscriptions(ctx context.Context) ([]subscription.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]subscription.Record), args.Error(1)
}

func (m *MockRepository) FindBySubscriptionRef(ctx context.Context, ref string) (*subscription.Record, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Record), args.Error(1)
}

// --- Tests ---

func TestService_UpdateProfile(t *testing.T) {
	t.Run("sanitizes and stores username", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		repo.On("UpdateUsername", mock.Anything, "u1", "Ada").Return(nil)
		repo.On("GetByID", mock.Anything, "u1").Return(&User{ID: "u1", Username: "Ada"}, nil)

		user, err := svc.UpdateProfile(context.Background(), "u1", &UpdateProfileRequest{Username: "  <b>Ada</b> "})

		require.NoError(t, err)
		assert.Equal(t, "Ada", user.Username)
		repo.AssertExpectations(t)
	})

	t.Run("rejects empty after sanitizing", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		_, err := svc.UpdateProfile(context.Background(), "u1", &UpdateProfileRequest{Username: "<script></script>"})

		assert.ErrorIs(t, err, ErrInvalidUsername)
		repo.AssertNotCalled(t, "UpdateUsername", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects overlong username", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		_, err := svc.UpdateProfile(context.Background(), "u1", &UpdateProfileRequest{Username: strings.Repeat("x", 51)})

		assert.ErrorIs(t, err, ErrInvalidUsername)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		repo.On("UpdateUsername", mock.Anything, "ghost", "Bob").Return(ErrUserNotFound)

		_, err := svc.UpdateProfile(context.Background(), "ghost", &UpdateProfileRequest{Username: "Bob"})

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_SetDisabled(t *testing.T) {
	t.Run("disables another user", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		repo.On("SetDisabled", mock.Anything, "u2", true).Return(nil)
		repo.On("GetByID", mock.Anything, "u2").Return(&User{ID: "u2", Disabled: true}, nil)

		user, err := svc.SetDisabled(context.Background(), "admin", "u2", true)

		require.NoError(t, err)
		assert.True(t, user.Disabled)
		repo.AssertExpectations(t)
	})

	t.Run("cannot disable self", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		_, err := svc.SetDisabled(context.Background(), "admin", "admin", true)

		assert.ErrorIs(t, err, ErrCannotDisableSelf)
		repo.AssertNotCalled(t, "SetDisabled", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("may enable self", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, zap.NewNop())

		repo.On("SetDisabled", mock.Anything, "admin", false).Return(nil)
		repo.On("GetByID", mock.Anything, "admin").Return(&User{ID: "admin"}, nil)

		_, err := svc.SetDisabled(context.Background(), "admin", "admin", false)

		require.NoError(t, err)
	})
}

func TestService_ListUsers(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil)
	page := pagination.New()

	users := []*User{{ID: "a"}, {ID: "b"}}
	repo.On("List", mock.Anything, mock.Anything, page).Return(users, int64(2), nil)

	got, total, err := svc.ListUsers(context.Background(), &UserFilter{}, page)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), total)
}

func TestUser_CanLogin(t *testing.T) {
	assert.True(t, (&User{PasswordHash: "h"}).CanLogin())
	assert.False(t, (&User{PasswordHash: "h", Disabled: true}).CanLogin())
	// Rows created by checkout before registration carry no password.
	assert.False(t, (&User{}).CanLogin())
}

func TestUser_Record(t *testing.T) {
	u := &User{
		ID:       "u1",
		Email:    "a@b.c",
		Username: "Ada",
		Subscription: subscription.Subscription{
			Status: subscription.StatusActive,
		},
	}

	rec := u.Record()

	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "a@b.c", rec.Email)
	assert.Equal(t, subscription.StatusActive, rec.Subscription.Status)
}

func TestPrefixColumns(t *testing.T) {
	cols := prefixColumns(map[string]any{"status": "active", "plan_end_date": nil})

	assert.Equal(t, map[string]any{
		"subscription_status":        "active",
		"subscription_plan_end_date": nil,
	}, cols)
}
