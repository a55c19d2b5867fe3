package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/middleware"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/harold2001/financer-manager-api/shared/utils"
	"github.com/rs/zerolog"
)

// TransactionCommander defines the write-side operations used by TransactionHandler.
type TransactionCommander interface {
	CreateTransaction(context.Context, cqrs.CreateTransactionCommand) (*models.TransactionRecord, error)
	UpdateTransaction(context.Context, cqrs.UpdateTransactionCommand) (*models.TransactionRecord, error)
	DeleteTransaction(context.Context, cqrs.DeleteTransactionCommand) error
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	GetTransaction(context.Context, cqrs.GetTransactionQuery) (*models.TransactionRecord, error)
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.TransactionRecord, error)
	SummarizeTransactions(context.Context, cqrs.ListTransactionsQuery) (*models.TransactionSummary, error)
}

type TransactionHandler struct {
	commands TransactionCommander
	queries  TransactionQuerier
	log      zerolog.Logger
}

// CreateTransactionRequest ignores any user_id in the body; the owner always
// comes from the bearer token.
type CreateTransactionRequest struct {
	Type        string  `json:"type" validate:"required,oneof=income expense"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Category    string  `json:"category" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	Description string  `json:"description"`
}

// UpdateTransactionRequest distinguishes absent fields from explicit nulls.
type UpdateTransactionRequest struct {
	Type        models.Optional[string]  `json:"type"`
	Amount      models.Optional[float64] `json:"amount"`
	Category    models.Optional[string]  `json:"category"`
	Date        models.Optional[string]  `json:"date"`
	Description models.Optional[string]  `json:"description"`
}

func NewTransactionHandler(commands TransactionCommander, queries TransactionQuerier, log zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries, log: log}
}

var (
	createTransactionErrors = errorMessages{
		notFound:  "Transaction not found",
		forbidden: "You can only create your own transactions",
		fallback:  "Failed to create transaction",
	}
	getTransactionErrors = errorMessages{
		notFound:  "Transaction not found",
		forbidden: "You can only view your own transactions",
		fallback:  "Failed to get transaction",
	}
	listTransactionErrors = errorMessages{
		notFound:  "Transaction not found",
		forbidden: "You can only view your own transactions",
		fallback:  "Failed to list transactions",
	}
	updateTransactionErrors = errorMessages{
		notFound:  "Transaction not found",
		forbidden: "You can only update your own transactions",
		fallback:  "Failed to update transaction",
	}
	deleteTransactionErrors = errorMessages{
		notFound:  "Transaction not found",
		forbidden: "You can only delete your own transactions",
		fallback:  "Failed to delete transaction",
	}
)

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	date, ok := parseDateField(c, models.FieldDate, req.Date)
	if !ok {
		return
	}

	transaction, err := h.commands.CreateTransaction(c.Request.Context(), cqrs.CreateTransactionCommand{
		UserID: callerID(c),
		Draft: models.TransactionDraft{
			Type:        models.TransactionType(req.Type),
			Amount:      req.Amount,
			Category:    req.Category,
			Date:        date,
			Description: req.Description,
		},
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, createTransactionErrors)
		return
	}

	c.JSON(http.StatusCreated, transaction)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	filter, ok := bindTransactionFilter(c)
	if !ok {
		return
	}

	records, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		UserID: callerID(c),
		Filter: filter,
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, listTransactionErrors)
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}

	c.JSON(http.StatusOK, records)
}

func (h *TransactionHandler) SummarizeTransactions(c *gin.Context) {
	filter, ok := bindTransactionFilter(c)
	if !ok {
		return
	}

	summary, err := h.queries.SummarizeTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		UserID: callerID(c),
		Filter: filter,
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, listTransactionErrors)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.queries.GetTransaction(c.Request.Context(), cqrs.GetTransactionQuery{
		TransactionID: c.Param("transactionId"),
		UserID:        callerID(c),
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, getTransactionErrors)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := models.TransactionPatch{
		Type:        models.Optional[models.TransactionType]{Value: models.TransactionType(req.Type.Value), Set: req.Type.Set},
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date.Set {
		patch.Date.Set = true
		if req.Date.Value != "" {
			date, ok := parseDateField(c, models.FieldDate, req.Date.Value)
			if !ok {
				return
			}
			patch.Date.Value = date
		}
	}

	transaction, err := h.commands.UpdateTransaction(c.Request.Context(), cqrs.UpdateTransactionCommand{
		TransactionID: c.Param("transactionId"),
		UserID:        callerID(c),
		Patch:         patch,
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, updateTransactionErrors)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	err := h.commands.DeleteTransaction(c.Request.Context(), cqrs.DeleteTransactionCommand{
		TransactionID: c.Param("transactionId"),
		UserID:        callerID(c),
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, deleteTransactionErrors)
		return
	}

	c.Status(http.StatusNoContent)
}

func bindTransactionFilter(c *gin.Context) (models.TransactionFilter, bool) {
	filter := models.TransactionFilter{
		Type:     models.TransactionType(c.Query("type")),
		Category: c.Query("category"),
	}
	if v := c.Query("start_date"); v != "" {
		start, ok := parseDateField(c, "start_date", v)
		if !ok {
			return filter, false
		}
		filter.StartDate = &start
	}
	if v := c.Query("end_date"); v != "" {
		end, ok := parseDateField(c, "end_date", v)
		if !ok {
			return filter, false
		}
		filter.EndDate = &end
	}
	return filter, true
}

// parseDateField writes a 400 and returns false when value is not a timestamp.
func parseDateField(c *gin.Context, field, value string) (time.Time, bool) {
	t, err := utils.ParseTimestamp(value)
	if err != nil {
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   field,
			Message: "Invalid datetime format",
			Type:    "datetime",
		}})
		return time.Time{}, false
	}
	return t, true
}
