package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harold2001/financer-manager-api/shared/cqrs"
	"github.com/harold2001/financer-manager-api/shared/middleware"
	"github.com/harold2001/financer-manager-api/shared/models"
	"github.com/rs/zerolog"
)

// AuthCommander defines the write-side operations used by AuthHandler.
type AuthCommander interface {
	Register(context.Context, cqrs.RegisterCommand) (*models.AuthSession, error)
}

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(context.Context, cqrs.LoginCommand) (*models.AuthSession, error)
	Status(context.Context) models.StatusReport
}

type AuthHandler struct {
	commands AuthCommander
	queries  AuthQuerier
	log      zerolog.Logger
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the user block of auth responses. CreatedAt is null when the
// account has no profile yet.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at"`
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
	Token   string       `json:"token"`
}

type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	TokenType string       `json:"token_type"`
	Note      string       `json:"note"`
}

func NewAuthHandler(commands AuthCommander, queries AuthQuerier, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{commands: commands, queries: queries, log: log}
}

var (
	registerErrors = errorMessages{fallback: "Registration failed"}
	loginErrors    = errorMessages{notFound: "User not found", fallback: "Login failed"}
)

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	session, err := h.commands.Register(c.Request.Context(), cqrs.RegisterCommand{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, registerErrors)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		User:    toUserResponse(session.User),
		Token:   session.Token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	session, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondWithServiceError(c, h.log, err, loginErrors)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message:   "Login successful",
		Token:     session.Token,
		User:      toUserResponse(session.User),
		TokenType: "bearer",
		Note:      "Use this token in Authorization header: 'Bearer <token>'",
	})
}

// Status reports store and cache reachability; 503 when any is down.
func (h *AuthHandler) Status(c *gin.Context) {
	report := h.queries.Status(c.Request.Context())
	code := http.StatusOK
	if report.Status != models.StatusConnected {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

func toUserResponse(p models.UserProfile) UserResponse {
	resp := UserResponse{ID: p.ID, Email: p.Email, Name: p.Name}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}
