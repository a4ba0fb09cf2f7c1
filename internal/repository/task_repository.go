package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/tasktide/internal/database"
	"github.com/yukikurage/tasktide/internal/models"
	"github.com/yukikurage/tasktide/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

const taskRecordSelect = `SELECT t.*, s.description AS status_label, o.description AS origin_label
FROM tasks t
LEFT JOIN status s ON t.status = s.id
LEFT JOIN origin o ON t.origin = o.id
WHERE t.id = ? AND t.creator = ?`

// FindByID loads a task owned by creator
func (r *GormTaskRepository) FindByID(id, creator string) (*models.TaskRecord, error) {
	var records []models.TaskRecord
	if err := r.db.Raw(taskRecordSelect, id, creator).Scan(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ownershipError(r.db, id)
	}
	return &records[0], nil
}

// ListSummaries retrieves tasks with filtering and pagination
func (r *GormTaskRepository) ListSummaries(filter TaskFilter, page utils.Pagination, creator string) ([]models.TaskSummary, error) {
	query, args, err := BuildTaskSummaryQuery(filter, page, creator)
	if err != nil {
		return nil, err
	}

	summaries := []models.TaskSummary{}
	if err := r.db.Raw(query, args...).Scan(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

// Save upserts the task. The ownership check, label resolution and the
// write share one transaction.
func (r *GormTaskRepository) Save(task *models.Task, status, origin string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		owner, exists, err := taskOwner(tx, task.ID)
		if err != nil {
			return err
		}
		if exists && owner != task.Creator {
			return ErrNotOwner
		}

		if task.StatusID, err = resolveLookup(tx, LookupStatus, status); err != nil {
			return err
		}
		if task.OriginID, err = resolveLookup(tx, LookupOrigin, origin); err != nil {
			return err
		}

		// ON CONFLICT DO UPDATE keeps the row (and its milestones) in
		// place; REPLACE would delete it first and cascade.
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(task).Error
	})
}

// Delete removes a task owned by creator
func (r *GormTaskRepository) Delete(id, creator string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Scopes(database.OwnedBy(creator)).Where("id = ?", id).Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ownershipError(tx, id)
		}
		return nil
	})
}

// CheckOwner returns nil when the task exists and belongs to creator
func (r *GormTaskRepository) CheckOwner(id, creator string) error {
	owner, exists, err := taskOwner(r.db, id)
	if err != nil {
		return err
	}
	if !exists {
		return gorm.ErrRecordNotFound
	}
	if owner != creator {
		return ErrNotOwner
	}
	return nil
}

// ListCategoryColumns returns the non-empty categories columns of creator's tasks
func (r *GormTaskRepository) ListCategoryColumns(creator string) ([]string, error) {
	columns := []string{}
	err := r.db.Model(&models.Task{}).
		Scopes(database.OwnedBy(creator)).
		Where("categories IS NOT NULL AND categories <> ''").
		Pluck("categories", &columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

type statusCount struct {
	Status string
	Total  int64
}

// CountByStatus counts creator's tasks per status label
func (r *GormTaskRepository) CountByStatus(creator string, since *time.Time) (map[string]int64, error) {
	query := r.db.Table("tasks t").
		Select("s.description AS status, COUNT(t.id) AS total").
		Joins("JOIN status s ON t.status = s.id").
		Where("t.creator = ?", creator)
	if since != nil {
		query = query.Where("t.updatedAt >= ?", since.UTC().Format("2006-01-02T15:04:05"))
	}

	var rows []statusCount
	if err := query.Group("s.description").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func taskOwner(tx *gorm.DB, id string) (string, bool, error) {
	var owners []string
	if err := tx.Raw("SELECT creator FROM tasks WHERE id = ?", id).Scan(&owners).Error; err != nil {
		return "", false, fmt.Errorf("failed to check task owner: %w", err)
	}
	if len(owners) == 0 {
		return "", false, nil
	}
	return owners[0], true, nil
}

// ownershipError tells a missing task from one owned by someone else.
func ownershipError(tx *gorm.DB, id string) error {
	_, exists, err := taskOwner(tx, id)
	switch {
	case err != nil:
		return err
	case exists:
		return ErrNotOwner
	default:
		return gorm.ErrRecordNotFound
	}
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
