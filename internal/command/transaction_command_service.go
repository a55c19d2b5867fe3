package command

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/harold2001/financer-manager-api/internal/repository"
	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/events"
	"github.com/harold2001/financer-manager-api/shared/logger"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/rs/zerolog"
)

// TransactionCommandService owns every transaction write. Updates and deletes
// check that the record exists, then that the caller owns it.
type TransactionCommandService struct {
	writeRepo *repository.TransactionWriteRepository
	readRepo  *repository.TransactionReadRepository
	publisher EventPublisher
	log       zerolog.Logger
}

func NewTransactionCommandService(
	writeRepo *repository.TransactionWriteRepository,
	readRepo *repository.TransactionReadRepository,
	publisher EventPublisher,
	log zerolog.Logger,
) *TransactionCommandService {
	return &TransactionCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
		log:       log.With().Str("component", "transaction_commands").Logger(),
	}
}

func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.TransactionRecord, error) {
	if cmd.UserID == "" {
		return nil, errs.ErrUnauthorized
	}
	if err := cmd.Draft.Validate(); err != nil {
		return nil, err
	}

	rec := &models.TransactionRecord{
		UserID:      cmd.UserID,
		Type:        cmd.Draft.Type,
		Amount:      cmd.Draft.Amount,
		Category:    cmd.Draft.Category,
		Date:        cmd.Draft.Date.UTC(),
		Description: cmd.Draft.Description,
	}
	if err := s.writeRepo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.readRepo.Cache(ctx, rec)

	publish(ctx, s.publisher, s.log, events.TransactionEventsStream, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: rec.ID,
		UserID:        rec.UserID,
		Type:          string(rec.Type),
		Amount:        rec.Amount,
		Category:      rec.Category,
	})
	return rec, nil
}

func (s *TransactionCommandService) UpdateTransaction(ctx context.Context, cmd cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error) {
	existing, err := s.owned(ctx, cmd.TransactionID, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := cmd.Patch.Validate(); err != nil {
		return nil, err
	}
	if cmd.Patch.IsEmpty() {
		return existing, nil
	}

	patch := cmd.Patch
	if patch.Date.Set {
		patch.Date.Value = patch.Date.Value.UTC()
	}
	fields := patch.Fields()
	if err := s.writeRepo.Merge(ctx, cmd.TransactionID, fields); err != nil {
		return nil, err
	}

	updated, err := s.writeRepo.GetByID(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	s.readRepo.Cache(ctx, updated)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	publish(ctx, s.publisher, s.log, events.TransactionEventsStream, events.TransactionUpdated, events.TransactionUpdatedEvent{
		TransactionID: updated.ID,
		UserID:        updated.UserID,
		Fields:        names,
	})
	return updated, nil
}

func (s *TransactionCommandService) DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) error {
	if _, err := s.owned(ctx, cmd.TransactionID, cmd.UserID); err != nil {
		return err
	}
	if err := s.writeRepo.Delete(ctx, cmd.TransactionID); err != nil {
		return err
	}
	s.readRepo.Invalidate(ctx, cmd.TransactionID)

	publish(ctx, s.publisher, s.log, events.TransactionEventsStream, events.TransactionDeleted, events.TransactionDeletedEvent{
		TransactionID: cmd.TransactionID,
		UserID:        cmd.UserID,
	})
	return nil
}

// HandleUserEvent is the user.events subscriber handler. Deleting a profile
// removes every transaction the user owns.
func (s *TransactionCommandService) HandleUserEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.UserDeleted {
		return nil
	}
	var data events.UserDeletedEvent
	if err := event.DecodeData(&data); err != nil {
		return err
	}
	if data.UserID == "" {
		return fmt.Errorf("%s event without user id", event.Type)
	}

	n, err := s.PurgeUserTransactions(ctx, data.UserID)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx, s.log)
	log.Info().Str("user_id", data.UserID).Int("deleted", n).Msg("purged transactions of deleted user")
	return nil
}

// PurgeUserTransactions hard-deletes every transaction owned by uid and
// returns how many were removed.
func (s *TransactionCommandService) PurgeUserTransactions(ctx context.Context, uid string) (int, error) {
	records, err := s.readRepo.Find(ctx, store.Query{}.Where(models.FieldUserID, store.OpEq, uid))
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, rec := range records {
		err := s.writeRepo.Delete(ctx, rec.ID)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		s.readRepo.Invalidate(ctx, rec.ID)
		deleted++
	}
	return deleted, nil
}

// owned loads the record and checks the caller owns it. A missing record is
// reported before an ownership failure.
func (s *TransactionCommandService) owned(ctx context.Context, id, uid string) (*models.TransactionRecord, error) {
	rec, err := s.writeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.OwnedBy(uid) {
		return nil, errs.ErrForbidden
	}
	return rec, nil
}
