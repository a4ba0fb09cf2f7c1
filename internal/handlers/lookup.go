package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/tasktide/internal/dto"
	apierrors "github.com/yukikurage/tasktide/internal/errors"
	"github.com/yukikurage/tasktide/internal/repository"
	"github.com/yukikurage/tasktide/internal/services"
)

// LookupHandler serves the status and origin label calls.
type LookupHandler struct {
	lookupService *services.LookupService
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(lookupService *services.LookupService) *LookupHandler {
	return &LookupHandler{
		lookupService: lookupService,
	}
}

// DistinctStatuses lists the status labels.
func (h *LookupHandler) DistinctStatuses(c *gin.Context) {
	h.distinct(c, repository.LookupStatus)
}

// DistinctOrigins lists the origin ("from") labels.
func (h *LookupHandler) DistinctOrigins(c *gin.Context) {
	h.distinct(c, repository.LookupOrigin)
}

// DeleteStatus removes an unused status label.
func (h *LookupHandler) DeleteStatus(c *gin.Context) {
	var req dto.DeleteStatusRequest
	if !bindParams(c, &req) {
		return
	}
	h.delete(c, repository.LookupStatus, req.StatusDesc, "Status")
}

// DeleteOrigin removes an unused origin label.
func (h *LookupHandler) DeleteOrigin(c *gin.Context) {
	var req dto.DeleteOriginRequest
	if !bindParams(c, &req) {
		return
	}
	h.delete(c, repository.LookupOrigin, req.OriginDesc, "Origin")
}

func (h *LookupHandler) distinct(c *gin.Context, kind repository.LookupKind) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.DistinctRequest
	if !bindParams(c, &req) {
		return
	}

	labels, err := h.lookupService.Distinct(kind, username, req.OnlyActive.Value)
	if err != nil {
		respondLookupError(c, err)
		return
	}
	if labels == nil {
		labels = []string{}
	}

	c.JSON(http.StatusOK, labels)
}

func (h *LookupHandler) delete(c *gin.Context, kind repository.LookupKind, label, noun string) {
	if _, ok := currentUser(c); !ok {
		return
	}

	if err := h.lookupService.Delete(kind, label); err != nil {
		respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message: fmt.Sprintf("%s '%s' deleted successfully.", noun, label),
	})
}

func respondLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLabelNotFound):
		apierrors.Respond(c, apierrors.NotFound("Label not found."))
	case errors.Is(err, services.ErrLabelInUse):
		apierrors.Respond(c, apierrors.Conflict("Label is still used by tasks or milestones."))
	default:
		slog.Error("lookup store call failed", slog.Any("error", err))
		apierrors.Respond(c, apierrors.StorageFailure(""))
	}
}
