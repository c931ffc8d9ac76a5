package repository

import (
	"context"
	"fmt"

	"pressroom/internal/cache"
	"pressroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for user profile operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	EnsureExists(ctx context.Context, user *models.User) (bool, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Patch(ctx context.Context, user *models.User, fields map[string]interface{}) error
}

type userRepository struct {
	db          *gorm.DB
	afterCommit func(func())
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, afterCommit: runNow}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s", ErrDuplicate, user.ExternalID)
		}
		return err
	}
	return nil
}

// EnsureExists inserts user unless a profile with its external id already
// exists. It reports whether a row was created and never fails on a
// duplicate, so it is safe inside a transaction.
func (r *userRepository) EnsureExists(ctx context.Context, user *models.User) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, "user", cache.UserKey(externalID), &user, cache.UserTTL, func() error {
		return r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	})
	if err != nil {
		return nil, notFound(err, "User", externalID)
	}
	return &user, nil
}

func (r *userRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]*models.User, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var users []*models.User
	err := r.db.WithContext(ctx).Where("external_id IN ?", externalIDs).Find(&users).Error
	return users, err
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&users).Error
	return users, err
}

// Patch writes only the given columns and mirrors them onto user.
func (r *userRepository) Patch(ctx context.Context, user *models.User, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return err
	}
	externalID := user.ExternalID
	r.afterCommit(func() { cache.InvalidateUser(context.WithoutCancel(ctx), externalID) })
	return nil
}
