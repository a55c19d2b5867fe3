package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/harold2001/financer-manager-api/internal/store"
	"github.com/harold2001/financer-manager-api/shared/errs"
	"github.com/harold2001/financer-manager-api/shared/models"
)

// TransactionWriteRepository handles all state-mutating operations for transactions.
// It operates directly against the document store (source of truth).
type TransactionWriteRepository struct {
	coll store.Collection
}

func NewTransactionWriteRepository(s store.Store) *TransactionWriteRepository {
	return &TransactionWriteRepository{coll: s.Collection(TransactionsCollection)}
}

// Create stores the record under a store-generated id and sets rec.ID.
func (r *TransactionWriteRepository) Create(ctx context.Context, rec *models.TransactionRecord) error {
	id, err := r.coll.Add(ctx, rec.ToDocument())
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	rec.ID = id
	return nil
}

// GetByID reads the stored record, bypassing the cache.
func (r *TransactionWriteRepository) GetByID(ctx context.Context, id string) (*models.TransactionRecord, error) {
	doc, err := r.coll.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return models.TransactionFromDocument(id, doc)
}

// Merge overwrites only the given fields.
func (r *TransactionWriteRepository) Merge(ctx context.Context, id string, fields map[string]any) error {
	err := r.coll.Merge(ctx, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (r *TransactionWriteRepository) Delete(ctx context.Context, id string) error {
	err := r.coll.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}
