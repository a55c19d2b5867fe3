package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/middleware"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/rs/zerolog"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	UpdateProfile(context.Context, cqrs.UpdateProfileCommand) (*models.UserProfile, error)
}

// AccountCommander deletes the caller's whole account, credentials included.
type AccountCommander interface {
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) (bool, error)
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	GetProfile(context.Context, cqrs.GetProfileQuery) (*models.UserProfile, error)
}

// UserHandler serves the caller's own profile. There is no route to another
// user's profile.
type UserHandler struct {
	commands UserCommander
	accounts AccountCommander
	queries  UserQuerier
	log      zerolog.Logger
}

// UpdateUserRequest treats a null name like an absent one: unchanged.
type UpdateUserRequest struct {
	Name *string `json:"name"`
}

func NewUserHandler(commands UserCommander, accounts AccountCommander, queries UserQuerier, log zerolog.Logger) *UserHandler {
	return &UserHandler{commands: commands, accounts: accounts, queries: queries, log: log}
}

var (
	getUserErrors    = errorMessages{notFound: "User profile not found", fallback: "Failed to get user profile"}
	updateUserErrors = errorMessages{notFound: "User profile not found", fallback: "Failed to update user profile"}
	deleteUserErrors = errorMessages{notFound: "User not found", fallback: "Failed to delete user"}
)

func (h *UserHandler) GetUser(c *gin.Context) {
	profile, err := h.queries.GetProfile(c.Request.Context(), cqrs.GetProfileQuery{UserID: callerID(c)})
	if err != nil {
		respondWithServiceError(c, h.log, err, getUserErrors)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	var patch models.ProfilePatch
	if req.Name != nil {
		patch.Name = models.Some(*req.Name)
	}

	profile, err := h.commands.UpdateProfile(c.Request.Context(), cqrs.UpdateProfileCommand{
		UserID: callerID(c),
		Patch:  patch,
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, updateUserErrors)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	deleted, err := h.accounts.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{UserID: callerID(c)})
	if err != nil {
		respondWithServiceError(c, h.log, err, deleteUserErrors)
		return
	}
	if !deleted {
		middleware.RespondWithError(c, http.StatusNotFound, deleteUserErrors.notFound)
		return
	}

	c.Status(http.StatusNoContent)
}
