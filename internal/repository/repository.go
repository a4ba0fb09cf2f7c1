package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/tasktide/internal/models"
	"github.com/yukikurage/tasktide/internal/utils"
)

var (
	// ErrNotOwner is returned when a row exists but belongs to another owner.
	ErrNotOwner = errors.New("resource belongs to another owner")
	// ErrMilestoneHasChildren is returned when deleting a milestone that is
	// still the parent of another milestone.
	ErrMilestoneHasChildren = errors.New("milestone is a parent to other milestones")
	// ErrInvalidParent is returned when a milestone names itself, or a
	// milestone outside its task, as parent.
	ErrInvalidParent = errors.New("milestone parent must be another milestone of the same task")
	// ErrLookupInUse is returned when deleting a label still referenced by a task or milestone.
	ErrLookupInUse = errors.New("label is in use")
)

// TaskRepository defines the interface for task data access. Every
// method is scoped by the owning creator.
type TaskRepository interface {
	// FindByID loads a task with its status and origin labels
	FindByID(id, creator string) (*models.TaskRecord, error)

	// ListSummaries runs the filtered, paginated listing query
	ListSummaries(filter TaskFilter, page utils.Pagination, creator string) ([]models.TaskSummary, error)

	// Save upserts a task, resolving the status and origin labels
	Save(task *models.Task, status, origin string) error

	// Delete removes a task and, by cascade, its milestones
	Delete(id, creator string) error

	// CheckOwner reports whether the task exists and belongs to creator
	CheckOwner(id, creator string) error

	// ListCategoryColumns returns the raw categories column of every task of creator
	ListCategoryColumns(creator string) ([]string, error)

	// CountByStatus counts tasks per status label, optionally only those
	// updated at or after since
	CountByStatus(creator string, since *time.Time) (map[string]int64, error)
}

// MilestoneRepository defines the interface for milestone data access.
// Callers verify task ownership first.
type MilestoneRepository interface {
	ListByTask(taskID string) ([]models.MilestoneRecord, error)
	FindByID(taskID, id string) (*models.MilestoneRecord, error)

	// Save upserts a milestone under its task, resolving the status label
	Save(milestone *models.Milestone, status string) error

	// Delete removes a milestone unless another milestone names it as parent
	Delete(taskID, id string) error
}

// LookupKind names one of the label tables.
type LookupKind string

const (
	LookupStatus LookupKind = "status"
	LookupOrigin LookupKind = "origin"
)

// LookupRepository defines the interface for the status/origin label tables.
type LookupRepository interface {
	// GetOrCreate returns the id of label, inserting it if absent. An empty
	// label resolves to nil.
	GetOrCreate(kind LookupKind, label string) (*int64, error)

	// List returns labels in order; a non-empty activeFor keeps only labels
	// referenced by that creator's tasks
	List(kind LookupKind, activeFor string) ([]string, error)

	// Delete removes an unreferenced label
	Delete(kind LookupKind, label string) error

	// PruneUnused deletes every label no task or milestone references
	PruneUnused() (int64, error)
}

// UserRepository defines the interface for credential records.
type UserRepository interface {
	Create(user *models.User) error
	FindByUsername(username string) (*models.User, error)
	UpdatePassword(username, hash, salt string) error
	Delete(username string) error
	List() ([]models.User, error)
}
