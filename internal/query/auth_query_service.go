package query

import (
	"context"
	"errors"

	"github.com/harold2001/financer-manager-api/internal/identity"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check names a dependency reported by Status.
type Check struct {
	Name   string
	Pinger Pinger
}

// AuthQueryService handles login and readiness. Login does not mutate
// application state, so it lives on the read side.
type AuthQueryService struct {
	provider identity.Provider
	users    *UserQueryService
	checks   []Check
}

func NewAuthQueryService(provider identity.Provider, users *UserQueryService, checks ...Check) *AuthQueryService {
	return &AuthQueryService{provider: provider, users: users, checks: checks}
}

// Login verifies the password and issues a session token. When the account
// has no profile yet, the user is built from the provider's record and has a
// zero CreatedAt.
func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (*models.AuthSession, error) {
	account, err := s.provider.Authenticate(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return nil, err
	}
	token, err := s.provider.IssueSessionToken(ctx, account.UID)
	if err != nil {
		return nil, err
	}

	profile, err := s.users.GetProfile(ctx, cqrs.GetProfileQuery{UserID: account.UID})
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		profile = &models.UserProfile{ID: account.UID, Email: account.Email, Name: account.DisplayName}
	default:
		return nil, err
	}
	return &models.AuthSession{Token: token, User: *profile}, nil
}

func (s *AuthQueryService) Status(ctx context.Context) models.StatusReport {
	report := models.StatusReport{Status: models.StatusConnected, Components: make([]models.ComponentStatus, 0, len(s.checks))}
	for _, c := range s.checks {
		cs := models.ComponentStatus{Name: c.Name, Status: models.StatusConnected}
		if err := c.Pinger.Ping(ctx); err != nil {
			cs.Status = models.StatusError
			cs.Error = err.Error()
			report.Status = models.StatusError
		}
		report.Components = append(report.Components, cs)
	}
	return report
}
