package cqrs

import "github.com/harold2001/financer-manager-api/shared/models"

// ---------- Transaction commands ----------

// CreateTransactionCommand carries the authenticated owner separately from the draft;
// the owner is never read from the request body.
type CreateTransactionCommand struct {
	UserID string
	Draft  models.TransactionDraft
}

type UpdateTransactionCommand struct {
	TransactionID string
	UserID        string
	Patch         models.TransactionPatch
}

type DeleteTransactionCommand struct {
	TransactionID string
	UserID        string
}

// ---------- Profile commands ----------

type CreateProfileCommand struct {
	UserID string
	Email  string
	Name   string
}

type UpdateProfileCommand struct {
	UserID string
	Patch  models.ProfilePatch
}

type DeleteProfileCommand struct {
	UserID string
}

// ---------- Auth commands ----------

type RegisterCommand struct {
	Email    string
	Password string
	Name     string
}

// DeleteAccountCommand removes the caller's credentials and profile.
type DeleteAccountCommand struct {
	UserID string
}

type LoginCommand struct {
	Email    string
	Password string
}
