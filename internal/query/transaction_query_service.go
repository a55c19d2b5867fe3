package query

import (
	"context"

	"github.com/harold2001/financer-manager-api/internal/repository"
	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// TransactionQueryService serves transaction reads. Single reads check ownership
// after loading; lists are always scoped to the caller.
type TransactionQueryService struct {
	readRepo *repository.TransactionReadRepository
}

func NewTransactionQueryService(readRepo *repository.TransactionReadRepository) *TransactionQueryService {
	return &TransactionQueryService{readRepo: readRepo}
}

// GetTransaction reports errs.ErrNotFound for a missing id before it reports
// errs.ErrForbidden for someone else's record.
func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionRecord, error) {
	rec, err := s.readRepo.GetByID(ctx, q.TransactionID)
	if err != nil {
		return nil, err
	}
	if !rec.OwnedBy(q.UserID) {
		return nil, errs.ErrForbidden
	}
	return rec, nil
}

// ListTransactions returns the caller's transactions, newest first.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error) {
	sq, err := listQuery(q)
	if err != nil {
		return nil, err
	}
	return s.readRepo.Find(ctx, sq)
}

// SummarizeTransactions totals the same set ListTransactions would return.
func (s *TransactionQueryService) SummarizeTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionSummary, error) {
	records, err := s.ListTransactions(ctx, q)
	if err != nil {
		return nil, err
	}
	summary := models.Summarize(records)
	return &summary, nil
}

// listQuery always starts with the owner predicate; every other predicate is
// added only when its filter is present.
func listQuery(q cqrs.ListTransactionsQuery) (store.Query, error) {
	if q.UserID == "" {
		return store.Query{}, errs.ErrUnauthorized
	}
	if err := q.Filter.Validate(); err != nil {
		return store.Query{}, err
	}

	sq := store.Query{}.Where(models.FieldUserID, store.OpEq, q.UserID)
	if q.Filter.Type != "" {
		sq = sq.Where(models.FieldType, store.OpEq, string(q.Filter.Type))
	}
	if q.Filter.Category != "" {
		sq = sq.Where(models.FieldCategory, store.OpEq, q.Filter.Category)
	}
	if q.Filter.StartDate != nil {
		sq = sq.Where(models.FieldDate, store.OpGte, q.Filter.StartDate.UTC())
	}
	if q.Filter.EndDate != nil {
		sq = sq.Where(models.FieldDate, store.OpLte, q.Filter.EndDate.UTC())
	}
	return sq.Order(models.FieldDate, store.Descending), nil
}
