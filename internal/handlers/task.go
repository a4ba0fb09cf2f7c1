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

// TaskHandler serves the task and milestone calls. Every call is scoped to
// the authenticated creator.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// LoadTask returns one task with its labels resolved.
func (h *TaskHandler) LoadTask(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TaskIDRequest
	if !bindParams(c, &req) {
		return
	}

	task, err := h.taskService.LoadTask(username, req.TaskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	out := dto.ToTaskDTO(*task)
	out.DescriptionHTML = h.taskService.RenderHTML(task.Description)
	out.NotesHTML = h.taskService.RenderHTML(task.Notes)
	c.JSON(http.StatusOK, out)
}

// LoadTasksSummary returns one page of the filtered task listing.
func (h *TaskHandler) LoadTasksSummary(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TasksSummaryRequest
	if !bindParams(c, &req) {
		return
	}

	filter, page, err := toTaskFilter(req.Filters, req.Pagination)
	if err != nil {
		apierrors.Respond(c, apierrors.ValidationFailure(err.Error()))
		return
	}

	summaries, err := h.taskService.ListTaskSummaries(username, filter, page)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskSummaryDTOs(summaries))
}

// SaveTask creates or replaces a task.
func (h *TaskHandler) SaveTask(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SaveTaskRequest
	if !bindParams(c, &req) {
		return
	}

	id, err := h.taskService.SaveTask(username, toTaskInput(*req.Task))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SavedResponse{
		Message: "Task saved successfully.",
		ID:      id,
	})
}

// DeleteTask deletes a task and its milestones.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TaskIDRequest
	if !bindParams(c, &req) {
		return
	}

	if err := h.taskService.DeleteTask(username, req.TaskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted successfully."})
}

// LoadMilestones returns the milestones of a task.
func (h *TaskHandler) LoadMilestones(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TaskIDRequest
	if !bindParams(c, &req) {
		return
	}

	milestones, err := h.taskService.ListMilestones(username, req.TaskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTOs(milestones))
}

// LoadMilestone returns one milestone of a task.
func (h *TaskHandler) LoadMilestone(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.MilestoneRefRequest
	if !bindParams(c, &req) {
		return
	}

	milestone, err := h.taskService.LoadMilestone(username, req.TaskID, req.MilestoneID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// SaveMilestone creates or replaces a milestone of a task.
func (h *TaskHandler) SaveMilestone(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SaveMilestoneRequest
	if !bindParams(c, &req) {
		return
	}

	id, err := h.taskService.SaveMilestone(username, req.TaskID, toMilestoneInput(*req.Milestone))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SavedResponse{
		Message: "Milestone saved successfully.",
		ID:      id,
	})
}

// DeleteMilestone deletes a milestone that no other milestone points to.
func (h *TaskHandler) DeleteMilestone(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.MilestoneRefRequest
	if !bindParams(c, &req) {
		return
	}

	if err := h.taskService.DeleteMilestone(username, req.TaskID, req.MilestoneID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Milestone deleted successfully."})
}

// DistinctCategories returns the sorted categories used by the caller.
// onlyActive is accepted for symmetry with the label calls; categories are
// always taken from the caller's tasks.
func (h *TaskHandler) DistinctCategories(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.DistinctRequest
	if !bindParams(c, &req) {
		return
	}

	categories, err := h.taskService.DistinctCategories(username)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, categories)
}

// TaskCounts returns the number of tasks per status label.
func (h *TaskHandler) TaskCounts(c *gin.Context) {
	username, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.TaskCountsRequest
	if !bindParams(c, &req) {
		return
	}

	counts, err := h.taskService.TaskCounts(username, req.Since.Ptr())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.Respond(c, apierrors.NotFound("Task not found."))
	case errors.Is(err, services.ErrMilestoneNotFound):
		apierrors.Respond(c, apierrors.NotFound("Milestone not found."))
	case errors.Is(err, services.ErrTaskAccessDenied),
		errors.Is(err, services.ErrMilestoneAccessDenied):
		apierrors.Respond(c, apierrors.AuthorizationDenied(""))
	case errors.Is(err, services.ErrMilestoneHasChildren):
		apierrors.Respond(c, apierrors.Conflict("Milestone has child milestones."))
	case errors.Is(err, services.ErrInvalidMilestone),
		errors.Is(err, services.ErrInvalidFilter),
		errors.Is(err, services.ErrInvalidSince):
		apierrors.Respond(c, apierrors.ValidationFailure(err.Error()))
	default:
		slog.Error("task store call failed", slog.Any("error", err))
		apierrors.Respond(c, apierrors.StorageFailure(""))
	}
}
