package service

import (
	"context"
	"errors"

	"pressroom/internal/identity"
	"pressroom/internal/models"
	"pressroom/internal/repository"
)

type UserService struct {
	store repository.Store
}

// SyncUserInput carries the identity provider's view of a user.
type SyncUserInput struct {
	ExternalID string
	Name       string
	Email      string
	Avatar     string
}

// UpdateProfileInput replaces the editable profile fields of ExternalID.
type UpdateProfileInput struct {
	ExternalID string
	Bio        string
	Twitter    string
	GitHub     string
	Website    string
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.store.Users().GetByExternalID(ctx, externalID)
}

// List returns every profile, newest first. Admin only.
func (s *UserService) List(ctx context.Context, caller identity.Identity) ([]*models.User, error) {
	if err := caller.RequireAdmin("list users"); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx)
}

// GetOrCreate returns the profile for in.ExternalID, creating it on first
// sight. An existing profile is patched only when the provider's name or
// avatar drifted, so repeated identical calls write nothing.
func (s *UserService) GetOrCreate(ctx context.Context, in SyncUserInput) (*models.User, error) {
	user, err := s.getOrCreate(ctx, in)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent first sight; the row exists now.
		user, err = s.getOrCreate(ctx, in)
	}
	return user, err
}

func (s *UserService) getOrCreate(ctx context.Context, in SyncUserInput) (*models.User, error) {
	var user *models.User
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Users().GetByExternalID(ctx, in.ExternalID)
		if err != nil && !models.IsNotFound(err) {
			return err
		}

		if existing == nil {
			now := utcNow()
			user = &models.User{
				ExternalID: in.ExternalID,
				Name:       in.Name,
				Email:      in.Email,
				Avatar:     in.Avatar,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			return tx.Users().Create(ctx, user)
		}

		user = existing
		if existing.Name == in.Name && existing.Avatar == in.Avatar {
			return nil
		}
		return tx.Users().Patch(ctx, existing, map[string]interface{}{
			"name":   in.Name,
			"avatar": in.Avatar,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile replaces bio and social links. The caller must own the
// profile or be an admin.
func (s *UserService) UpdateProfile(ctx context.Context, caller identity.Identity, in UpdateProfileInput) (*models.User, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Users().GetByExternalID(ctx, in.ExternalID)
		if err != nil {
			return err
		}
		if !caller.CanActFor(existing.ExternalID) {
			return models.NewUnauthorizedError("You can only edit your own profile")
		}
		user = existing
		return tx.Users().Patch(ctx, existing, map[string]interface{}{
			"bio":     in.Bio,
			"twitter": in.Twitter,
			"github":  in.GitHub,
			"website": in.Website,
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
