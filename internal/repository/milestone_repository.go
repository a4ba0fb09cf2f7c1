package repository

import (
	"fmt"

	"github.com/yukikurage/tasktide/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMilestoneRepository is a GORM implementation of MilestoneRepository
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

const milestoneRecordSelect = `SELECT m.*, s.description AS status_label
FROM milestones m
LEFT JOIN status s ON m.status = s.id
WHERE m.taskId = ?`

// ListByTask lists the milestones of a task
func (r *GormMilestoneRepository) ListByTask(taskID string) ([]models.MilestoneRecord, error) {
	records := []models.MilestoneRecord{}
	if err := r.db.Raw(milestoneRecordSelect+" ORDER BY m.rowid", taskID).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByID finds a milestone of a task
func (r *GormMilestoneRepository) FindByID(taskID, id string) (*models.MilestoneRecord, error) {
	var records []models.MilestoneRecord
	if err := r.db.Raw(milestoneRecordSelect+" AND m.id = ?", taskID, id).Scan(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &records[0], nil
}

// Save upserts a milestone. An id already used under another task is
// refused, and a parent must be another milestone of the same task.
func (r *GormMilestoneRepository) Save(milestone *models.Milestone, status string) error {
	parentID := ""
	if milestone.ParentID != nil {
		parentID = *milestone.ParentID
	}
	if parentID != "" && parentID == milestone.ID {
		return ErrInvalidParent
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var taskIDs []string
		if err := tx.Raw("SELECT taskId FROM milestones WHERE id = ?", milestone.ID).Scan(&taskIDs).Error; err != nil {
			return fmt.Errorf("failed to check milestone owner: %w", err)
		}
		if len(taskIDs) > 0 && taskIDs[0] != milestone.TaskID {
			return ErrNotOwner
		}

		if parentID != "" {
			exists, err := milestoneExists(tx, milestone.TaskID, parentID)
			if err != nil {
				return fmt.Errorf("failed to check milestone parent: %w", err)
			}
			if !exists {
				return ErrInvalidParent
			}
		}

		var err error
		if milestone.StatusID, err = resolveLookup(tx, LookupStatus, status); err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(milestone).Error
	})
}

// Delete removes a milestone of a task. The child check and the delete
// share a transaction so a child cannot appear in between.
func (r *GormMilestoneRepository) Delete(taskID, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		exists, err := milestoneExists(tx, taskID, id)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}

		var children int64
		if err := tx.Model(&models.Milestone{}).Where("taskId = ? AND parentId = ?", taskID, id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return ErrMilestoneHasChildren
		}

		return tx.Where("id = ? AND taskId = ?", id, taskID).Delete(&models.Milestone{}).Error
	})
}

func milestoneExists(tx *gorm.DB, taskID, id string) (bool, error) {
	var count int64
	if err := tx.Model(&models.Milestone{}).Where("id = ? AND taskId = ?", id, taskID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
