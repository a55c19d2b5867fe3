package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// UserWriteRepository writes profiles. The document id is the identity
// provider's uid.
type UserWriteRepository struct {
	coll store.Collection
}

func NewUserWriteRepository(s store.Store) *UserWriteRepository {
	return &UserWriteRepository{coll: s.Collection(UsersCollection)}
}

// Create fails with errs.ErrConflict when a profile already exists for the uid.
func (r *UserWriteRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	err := r.coll.Create(ctx, profile.ID, profile.ToDocument())
	if errors.Is(err, store.ErrAlreadyExists) {
		return errs.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	return nil
}

func (r *UserWriteRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	doc, err := r.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return models.ProfileFromDocument(id, doc)
}

func (r *UserWriteRepository) Merge(ctx context.Context, id string, fields map[string]any) error {
	err := r.coll.Merge(ctx, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (r *UserWriteRepository) Delete(ctx context.Context, id string) error {
	err := r.coll.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	return nil
}
