package models

// Milestone is a row of the milestones table. Notes hold arbitrary JSON.
type Milestone struct {
	ID         string  `gorm:"column:id;primaryKey"`
	TaskID     string  `gorm:"column:taskId;not null"`
	Title      *string `gorm:"column:title"`
	Deadline   *string `gorm:"column:deadline"`
	FinishDate *string `gorm:"column:finishDate"`
	StatusID   *int64  `gorm:"column:status"`
	ParentID   *string `gorm:"column:parentId"`
	Notes      *string `gorm:"column:notes"`
	UpdatedAt  *string `gorm:"column:updatedAt"`
}

func (Milestone) TableName() string {
	return "milestones"
}

// MilestoneRecord is a milestone joined with its status label.
type MilestoneRecord struct {
	Milestone
	StatusLabel *string `gorm:"column:status_label"`
}
