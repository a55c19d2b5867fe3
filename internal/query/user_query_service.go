package query

import (
	"context"

	"github.com/harold2001/financer-manager-api/internal/repository"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// UserQueryService reads profiles from the view cache with a store fallback.
type UserQueryService struct {
	readRepo *repository.UserReadRepository
}

func NewUserQueryService(readRepo *repository.UserReadRepository) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

func (s *UserQueryService) GetProfile(ctx context.Context, q cqrs.GetProfileQuery) (*models.UserProfile, error) {
	return s.readRepo.GetByID(ctx, q.UserID)
}
