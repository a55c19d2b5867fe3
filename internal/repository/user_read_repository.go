package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// UserReadRepository handles all read operations for profiles.
// It uses the view cache first, falling back to the store on a miss.
type UserReadRepository struct {
	coll  store.Collection
	cache ViewCache[models.UserProfile]
}

func NewUserReadRepository(s store.Store, cache ViewCache[models.UserProfile]) *UserReadRepository {
	return &UserReadRepository{coll: s.Collection(UsersCollection), cache: cache}
}

func (r *UserReadRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	if r.cache != nil {
		if profile, ok := r.cache.Get(ctx, id); ok {
			return profile, nil
		}
	}

	doc, err := r.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	profile, err := models.ProfileFromDocument(id, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode user profile %s: %w", id, err)
	}

	r.Cache(ctx, profile)
	return profile, nil
}

// Cache stores or refreshes the read model for a profile.
func (r *UserReadRepository) Cache(ctx context.Context, profile *models.UserProfile) {
	if r.cache != nil {
		r.cache.Set(ctx, profile.ID, profile)
	}
}

// Invalidate removes the read model entry for a deleted profile.
func (r *UserReadRepository) Invalidate(ctx context.Context, id string) {
	if r.cache != nil {
		r.cache.Delete(ctx, id)
	}
}
