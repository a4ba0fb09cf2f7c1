package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/tasktide/internal/models"
	"github.com/yukikurage/tasktide/internal/repository"
	"github.com/yukikurage/tasktide/internal/security"
	"github.com/yukikurage/tasktide/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskAccessDenied      = errors.New("task belongs to another user")
	ErrMilestoneNotFound     = errors.New("milestone not found")
	ErrMilestoneAccessDenied = errors.New("milestone belongs to another task")
	ErrMilestoneHasChildren  = errors.New("milestone is a parent to other milestones")
	ErrInvalidMilestone      = errors.New("invalid milestone")
	ErrInvalidFilter         = errors.New("invalid filter")
	ErrInvalidSince          = errors.New("since must be a non-negative number of days")
)

// TaskService handles task and milestone business logic. Every operation
// is scoped by the authenticated creator.
type TaskService struct {
	taskRepo      repository.TaskRepository
	milestoneRepo repository.MilestoneRepository
	sanitizer     security.Sanitizer
	now           func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, milestoneRepo repository.MilestoneRepository, sanitizer security.Sanitizer) *TaskService {
	return &TaskService{
		taskRepo:      taskRepo,
		milestoneRepo: milestoneRepo,
		sanitizer:     sanitizer,
		now:           time.Now,
	}
}

// TaskInput is a task as submitted by the shell. Labels are free text and
// resolved to lookup rows on save.
type TaskInput struct {
	ID          string
	Title       *string
	From        string
	Status      string
	Priority    *string
	Deadline    *string
	FinishDate  *string
	Description *string
	Notes       *string
	Categories  []string
	Attachments []any
	CreatedAt   *string
	UpdatedAt   *string
}

// MilestoneInput is a milestone as submitted by the shell. Notes are kept
// as arbitrary JSON.
type MilestoneInput struct {
	ID         string
	Title      *string
	Deadline   *string
	FinishDate *string
	Status     string
	ParentID   *string
	Notes      any
	UpdatedAt  *string
}

// LoadTask returns a task of creator
func (s *TaskService) LoadTask(creator, id string) (*models.TaskRecord, error) {
	task, err := s.taskRepo.FindByID(id, creator)
	if err != nil {
		return nil, taskError(err)
	}
	return task, nil
}

// ListTaskSummaries runs a filtered, paginated listing of creator's tasks
func (s *TaskService) ListTaskSummaries(creator string, filter repository.TaskFilter, page utils.Pagination) ([]models.TaskSummary, error) {
	summaries, err := s.taskRepo.ListSummaries(filter, page, creator)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownGroupKey) || errors.Is(err, repository.ErrUnknownSortKey) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return summaries, nil
}

// SaveTask creates or replaces a task of creator and returns its id. A
// task without an id is given a fresh one.
func (s *TaskService) SaveTask(creator string, input TaskInput) (string, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}

	categories, err := encodeJSON(input.Categories, []string{})
	if err != nil {
		return "", fmt.Errorf("failed to encode categories: %w", err)
	}
	attachments, err := encodeJSON(input.Attachments, []any{})
	if err != nil {
		return "", fmt.Errorf("failed to encode attachments: %w", err)
	}

	task := &models.Task{
		ID:          input.ID,
		Creator:     creator,
		Title:       input.Title,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
		FinishDate:  input.FinishDate,
		Description: input.Description,
		Notes:       input.Notes,
		Categories:  &categories,
		Attachments: &attachments,
		CreatedAt:   input.CreatedAt,
		UpdatedAt:   input.UpdatedAt,
	}

	if err := s.taskRepo.Save(task, input.Status, input.From); err != nil {
		return "", taskError(err)
	}
	return task.ID, nil
}

// RenderHTML returns a stored rich-text field cleaned for display. The
// stored value itself is never rewritten.
func (s *TaskService) RenderHTML(v *string) *string {
	return security.SanitizePtr(s.sanitizer, v)
}

// DeleteTask deletes a task of creator together with its milestones
func (s *TaskService) DeleteTask(creator, id string) error {
	if err := s.taskRepo.Delete(id, creator); err != nil {
		return taskError(err)
	}
	return nil
}

// ListMilestones lists the milestones of a task of creator
func (s *TaskService) ListMilestones(creator, taskID string) ([]models.MilestoneRecord, error) {
	if err := s.ensureTaskOwner(creator, taskID); err != nil {
		return nil, err
	}
	milestones, err := s.milestoneRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// LoadMilestone returns one milestone of a task of creator
func (s *TaskService) LoadMilestone(creator, taskID, id string) (*models.MilestoneRecord, error) {
	if err := s.ensureTaskOwner(creator, taskID); err != nil {
		return nil, err
	}
	milestone, err := s.milestoneRepo.FindByID(taskID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("failed to find milestone: %w", err)
	}
	return milestone, nil
}

// SaveMilestone creates or replaces a milestone under a task of creator
// and returns its id
func (s *TaskService) SaveMilestone(creator, taskID string, input MilestoneInput) (string, error) {
	if err := s.ensureTaskOwner(creator, taskID); err != nil {
		return "", err
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}

	var notes any = ""
	if input.Notes != nil {
		notes = input.Notes
	}
	encoded, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("%w: notes: %v", ErrInvalidMilestone, err)
	}
	notesJSON := string(encoded)

	milestone := &models.Milestone{
		ID:         input.ID,
		TaskID:     taskID,
		Title:      input.Title,
		Deadline:   input.Deadline,
		FinishDate: input.FinishDate,
		ParentID:   input.ParentID,
		Notes:      &notesJSON,
		UpdatedAt:  input.UpdatedAt,
	}

	if err := s.milestoneRepo.Save(milestone, input.Status); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidParent):
			return "", fmt.Errorf("%w: %v", ErrInvalidMilestone, err)
		case errors.Is(err, repository.ErrNotOwner):
			return "", ErrMilestoneAccessDenied
		default:
			return "", fmt.Errorf("failed to save milestone: %w", err)
		}
	}
	return milestone.ID, nil
}

// DeleteMilestone deletes a milestone unless it is the parent of another
func (s *TaskService) DeleteMilestone(creator, taskID, id string) error {
	if err := s.ensureTaskOwner(creator, taskID); err != nil {
		return err
	}
	if err := s.milestoneRepo.Delete(taskID, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrMilestoneHasChildren):
			return ErrMilestoneHasChildren
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrMilestoneNotFound
		default:
			return fmt.Errorf("failed to delete milestone: %w", err)
		}
	}
	return nil
}

// DistinctCategories returns the sorted union of creator's categories.
// Rows that do not hold a JSON list are skipped.
func (s *TaskService) DistinctCategories(creator string) ([]string, error) {
	columns, err := s.taskRepo.ListCategoryColumns(creator)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	seen := make(map[string]struct{})
	for _, raw := range columns {
		for _, c := range models.ParseCategories(&raw) {
			seen[c] = struct{}{}
		}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// TaskCounts counts creator's tasks per status label. With sinceDays set,
// only tasks updated in the last sinceDays days are counted.
func (s *TaskService) TaskCounts(creator string, sinceDays *int) (map[string]int64, error) {
	var since *time.Time
	if sinceDays != nil {
		if *sinceDays < 0 {
			return nil, ErrInvalidSince
		}
		t := s.now().UTC().AddDate(0, 0, -*sinceDays)
		since = &t
	}

	counts, err := s.taskRepo.CountByStatus(creator, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	return counts, nil
}

func (s *TaskService) ensureTaskOwner(creator, taskID string) error {
	if err := s.taskRepo.CheckOwner(taskID, creator); err != nil {
		return taskError(err)
	}
	return nil
}

// taskError maps repository ownership errors to service errors.
func taskError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrTaskNotFound
	case errors.Is(err, repository.ErrNotOwner):
		return ErrTaskAccessDenied
	default:
		return fmt.Errorf("task storage: %w", err)
	}
}

// encodeJSON marshals v, substituting empty when v is a nil slice.
func encodeJSON[T any](v []T, empty []T) (string, error) {
	if v == nil {
		v = empty
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
