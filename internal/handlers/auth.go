package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tasktide/internal/dto"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
	"github.com/yukikurage/tasktide/internal/services"
)

// AuthHandler coordinates authentication calls.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindParams(c, &req) {
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:    result.Token,
		Username: result.Username,
	})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTooManyAttempts):
		apierrors.Respond(c, apierrors.TooManyAttempts(""))
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Respond(c, apierrors.InvalidCredentials(""))
	case errors.Is(err, services.ErrFailedToIssueToken):
		slog.Error("token issue failed", slog.Any("error", err))
		apierrors.Respond(c, apierrors.InternalError(""))
	default:
		slog.Error("login failed", slog.Any("error", err))
		apierrors.Respond(c, apierrors.StorageFailure(""))
	}
}
