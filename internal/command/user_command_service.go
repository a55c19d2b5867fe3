package command

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harold2001/financer-manager-api/internal/repository"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/events"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/rs/zerolog"
)

// UserCommandService writes profiles to the store and keeps the read model current.
type UserCommandService struct {
	writeRepo *repository.UserWriteRepository
	readRepo  *repository.UserReadRepository
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewUserCommandService(
	writeRepo *repository.UserWriteRepository,
	readRepo *repository.UserReadRepository,
	publisher EventPublisher,
	log zerolog.Logger,
) *UserCommandService {
	return &UserCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
		log:       log.With().Str("component", "user_commands").Logger(),
		now:       time.Now,
	}
}

// CreateProfile creates the one profile a uid may have. created_at is set here
// and never changes; a second create fails with errs.ErrConflict.
func (s *UserCommandService) CreateProfile(ctx context.Context, cmd cqrs.CreateProfileCommand) (*models.UserProfile, error) {
	if cmd.UserID == "" {
		return nil, errs.Invalid("id", "required", "This field is required")
	}
	profile := &models.UserProfile{
		ID:        cmd.UserID,
		Email:     cmd.Email,
		Name:      cmd.Name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.writeRepo.Create(ctx, profile); err != nil {
		return nil, err
	}
	s.readRepo.Cache(ctx, profile)

	publish(ctx, s.publisher, s.log, events.UserEventsStream, events.UserCreated, events.UserCreatedEvent{
		UserID: profile.ID,
		Email:  profile.Email,
		Name:   profile.Name,
	})
	return profile, nil
}

func (s *UserCommandService) UpdateProfile(ctx context.Context, cmd cqrs.UpdateProfileCommand) (*models.UserProfile, error) {
	existing, err := s.writeRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if cmd.Patch.IsEmpty() {
		return existing, nil
	}
	if strings.TrimSpace(cmd.Patch.Name.Value) == "" {
		return nil, errs.Invalid(models.FieldName, "required", "This field is required")
	}

	if err := s.writeRepo.Merge(ctx, cmd.UserID, cmd.Patch.Fields()); err != nil {
		return nil, err
	}
	updated, err := s.writeRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	s.readRepo.Cache(ctx, updated)

	publish(ctx, s.publisher, s.log, events.UserEventsStream, events.UserUpdated, events.UserUpdatedEvent{
		UserID: updated.ID,
		Name:   updated.Name,
	})
	return updated, nil
}

// DeleteProfile reports false when there was no profile to delete.
func (s *UserCommandService) DeleteProfile(ctx context.Context, cmd cqrs.DeleteProfileCommand) (bool, error) {
	err := s.writeRepo.Delete(ctx, cmd.UserID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.readRepo.Invalidate(ctx, cmd.UserID)

	publish(ctx, s.publisher, s.log, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{
		UserID: cmd.UserID,
	})
	return true, nil
}
