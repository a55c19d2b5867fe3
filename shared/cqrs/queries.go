package cqrs

import "github.com/harold2001/financer-manager-api/shared/models"

// ---------- Profile queries ----------

// GetProfileQuery fetches the caller's own profile.
type GetProfileQuery struct {
	UserID string
}

// ---------- Transaction queries ----------

// GetTransactionQuery fetches a single transaction, subject to ownership check.
type GetTransactionQuery struct {
	TransactionID string
	UserID        string
}

// ListTransactionsQuery fetches the caller's transactions narrowed by Filter.
type ListTransactionsQuery struct {
	UserID string
	Filter models.TransactionFilter
}
