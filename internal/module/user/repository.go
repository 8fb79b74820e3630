package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sflix/server/internal/module/subscription"
	"github.com/sflix/server/internal/utils/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const subscriptionPrefix = "subscription_"

// Repository defines the interface for user data access. It also stores the
// subscription embedded in each user document.
type Repository interface {
	subscription.Store

	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter *UserFilter, page *pagination.Pagination) ([]*User, int64, error)
	SetDisabled(ctx context.Context, id string, disabled bool) error
	UpdateUsername(ctx context.Context, id, username string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- User Operations ---

func (r *repository) Create(ctx context.Context, user *User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailAlreadyExists
		}
		return fmt.Errorf("create user: %w", result.Error)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, filter *UserFilter, page *pagination.Pagination) ([]*User, int64, error) {
	var users []*User
	var total int64

	query := r.db.WithContext(ctx).Model(&User{})
	if filter != nil {
		if filter.Email != nil {
			query = query.Where("email ILIKE ?", "%"+*filter.Email+"%")
		}
		if filter.Disabled != nil {
			query = query.Where("disabled = ?", *filter.Disabled)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	if page != nil {
		query = query.Scopes(page.Scope())
	}
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *repository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return r.updateColumns(ctx, id, map[string]any{"disabled": disabled, "updated_at": time.Now()})
}

func (r *repository) UpdateUsername(ctx context.Context, id, username string) error {
	return r.updateColumns(ctx, id, map[string]any{"username": username, "updated_at": time.Now()})
}

func (r *repository) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).UpdateColumns(cols)
	if result.Error != nil {
		return fmt.Errorf("update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// --- Subscription Store ---

func (r *repository) GetSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, subscription.ErrNotFound
		}
		return nil, err
	}
	return &user.Subscription, nil
}

// MergeSubscription updates only the subscription columns named by patch.
// A missing user row is created holding just the subscription.
func (r *repository) MergeSubscription(ctx context.Context, userID string, patch *subscription.Patch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := mergeColumns(tx, userID, patch)
		if err != nil || updated {
			return err
		}
		if patch.IfVersion != nil {
			return subscription.ErrConcurrentUpdate
		}

		user := &User{ID: userID}
		patch.Apply(&user.Subscription)
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user)
		if result.Error != nil {
			return fmt.Errorf("create user for subscription: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}

		// Created concurrently; merge into that row instead.
		if _, err := mergeColumns(tx, userID, patch); err != nil {
			return err
		}
		return nil
	})
}

func mergeColumns(tx *gorm.DB, userID string, patch *subscription.Patch) (bool, error) {
	cols := prefixColumns(patch.Columns())
	cols[subscriptionPrefix+"version"] = gorm.Expr(subscriptionPrefix + "version + 1")

	query := tx.Model(&User{}).Where("id = ?", userID)
	if patch.IfVersion != nil {
		query = query.Where(subscriptionPrefix+"version = ?", *patch.IfVersion)
	}
	result := query.UpdateColumns(cols)
	if result.Error != nil {
		return false, fmt.Errorf("merge subscription: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func prefixColumns(cols map[string]any) map[string]any {
	out := make(map[string]any, len(cols)+1)
	for k, v := range cols {
		out[subscriptionPrefix+k] = v
	}
	return out
}

func (r *repository) DemoteExpired(ctx context.Context, userID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Where(subscriptionPrefix+"status = ?", subscription.StatusActive).
		Where(subscriptionPrefix+"plan_end_date < ?", now).
		UpdateColumns(map[string]any{
			subscriptionPrefix + "status":  subscription.StatusInactive,
			subscriptionPrefix + "version": gorm.Expr(subscriptionPrefix + "version + 1"),
		})
	if result.Error != nil {
		return false, fmt.Errorf("demote expired subscription: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListActive(ctx context.Context) ([]subscription.Record, error) {
	var users []*User
	err := r.db.WithContext(ctx).
		Where(subscriptionPrefix+"status = ?", subscription.StatusActive).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list active subscriptions: %w", err)
	}
	return toRecords(users), nil
}

func (r *repository) ListSubscriptions(ctx context.Context) ([]subscription.Record, error) {
	var users []*User
	err := r.db.WithContext(ctx).
		Where(subscriptionPrefix + "status <> ''").
		Order(subscriptionPrefix + "updated_at DESC NULLS LAST").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return toRecords(users), nil
}

func (r *repository) FindBySubscriptionRef(ctx context.Context, ref string) (*subscription.Record, error) {
	var user User
	err := r.db.WithContext(ctx).
		Where(subscriptionPrefix+"subscription_ref = ?", ref).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrNotFound
		}
		return nil, fmt.Errorf("find subscription by ref: %w", err)
	}
	rec := user.Record()
	return &rec, nil
}

func toRecords(users []*User) []subscription.Record {
	records := make([]subscription.Record, len(users))
	for i, u := range users {
		records[i] = u.Record()
	}
	return records
}
