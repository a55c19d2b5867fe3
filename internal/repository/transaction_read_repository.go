package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// TransactionReadRepository handles all read operations for transactions.
// Single-record reads go through the view cache, falling back to the store on a miss.
type TransactionReadRepository struct {
	coll  store.Collection
	cache ViewCache[models.TransactionRecord]
}

func NewTransactionReadRepository(s store.Store, cache ViewCache[models.TransactionRecord]) *TransactionReadRepository {
	return &TransactionReadRepository{coll: s.Collection(TransactionsCollection), cache: cache}
}

func (r *TransactionReadRepository) GetByID(ctx context.Context, id string) (*models.TransactionRecord, error) {
	if r.cache != nil {
		if rec, ok := r.cache.Get(ctx, id); ok {
			return rec, nil
		}
	}

	doc, err := r.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	rec, err := models.TransactionFromDocument(id, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction %s: %w", id, err)
	}

	// Warm the cache
	r.Cache(ctx, rec)
	return rec, nil
}

// Find runs q against the store. List results are never cached.
func (r *TransactionReadRepository) Find(ctx context.Context, q store.Query) ([]models.TransactionRecord, error) {
	snaps, err := r.coll.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	records := make([]models.TransactionRecord, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := models.TransactionFromDocument(snap.ID, snap.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", snap.ID, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Cache stores or refreshes the read model for a transaction.
// Called by the command service after every mutation.
func (r *TransactionReadRepository) Cache(ctx context.Context, rec *models.TransactionRecord) {
	if r.cache != nil {
		r.cache.Set(ctx, rec.ID, rec)
	}
}

func (r *TransactionReadRepository) Invalidate(ctx context.Context, id string) {
	if r.cache != nil {
		r.cache.Delete(ctx, id)
	}
}
