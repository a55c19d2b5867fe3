package command

import (
	"context"
	"fmt"

	"github.com/harold2001/financer-manager-api/internal/identity"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/events"
	"github.com/harold2001/financer-manager-api/shared/logger"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/harold2001/financer-manager-api/shared/utils"
	"github.com/rs/zerolog"
)

// AuthCommandService registers accounts: credentials with the identity
// provider, then the profile, then a session token for immediate use. It also
// deletes them again.
type AuthCommandService struct {
	provider identity.Provider
	users    *UserCommandService
	log      zerolog.Logger
}

func NewAuthCommandService(provider identity.Provider, users *UserCommandService, log zerolog.Logger) *AuthCommandService {
	return &AuthCommandService{
		provider: provider,
		users:    users,
		log:      log.With().Str("component", "auth_commands").Logger(),
	}
}

func (s *AuthCommandService) Register(ctx context.Context, cmd cqrs.RegisterCommand) (*models.AuthSession, error) {
	email := utils.NormalizeEmail(cmd.Email)
	uid, err := s.provider.Register(ctx, email, cmd.Password, cmd.Name)
	if err != nil {
		return nil, err
	}

	profile, err := s.users.CreateProfile(ctx, cqrs.CreateProfileCommand{
		UserID: uid,
		Email:  email,
		Name:   cmd.Name,
	})
	if err != nil {
		log := logger.FromContext(ctx, s.log)
		log.Error().Err(err).Str("user_id", uid).Msg("credentials created but profile creation failed")
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	token, err := s.provider.IssueSessionToken(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &models.AuthSession{Token: token, User: *profile}, nil
}

// DeleteAccount removes the credentials first so the email is free and old
// tokens stop verifying, then the profile. user.deleted is published either
// way so the caller's transactions are purged. It reports false when neither
// existed.
func (s *AuthCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) (bool, error) {
	credentialsDeleted, err := s.provider.DeleteAccount(ctx, cmd.UserID)
	if err != nil {
		return false, err
	}
	profileDeleted, err := s.users.DeleteProfile(ctx, cqrs.DeleteProfileCommand{UserID: cmd.UserID})
	if err != nil {
		return false, err
	}
	if credentialsDeleted && !profileDeleted {
		publish(ctx, s.users.publisher, s.log, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{
			UserID: cmd.UserID,
		})
	}
	return credentialsDeleted || profileDeleted, nil
}
