package models

import "encoding/json"

// Task is a row of the tasks table. Nullable TEXT columns are pointers
// so rows written by older clients scan cleanly. Priority is kept as
// text: the column has INTEGER affinity, so numeric values round-trip
// as numbers and anything else is preserved verbatim.
type Task struct {
	ID          string  `gorm:"column:id;primaryKey"`
	Creator     string  `gorm:"column:creator;not null"`
	Title       *string `gorm:"column:title"`
	OriginID    *int64  `gorm:"column:origin"`
	Priority    *string `gorm:"column:priority"`
	Deadline    *string `gorm:"column:deadline"`
	FinishDate  *string `gorm:"column:finishDate"`
	StatusID    *int64  `gorm:"column:status"`
	Description *string `gorm:"column:description"`
	Notes       *string `gorm:"column:notes"`
	Categories  *string `gorm:"column:categories"`
	Attachments *string `gorm:"column:attachments"`
	CreatedAt   *string `gorm:"column:createdAt"`
	UpdatedAt   *string `gorm:"column:updatedAt"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskRecord is a task joined with its status and origin labels.
type TaskRecord struct {
	Task
	StatusLabel *string `gorm:"column:status_label"`
	OriginLabel *string `gorm:"column:origin_label"`
}

// TaskSummary is one row of a filtered task listing.
type TaskSummary struct {
	ID         string  `gorm:"column:id"`
	Creator    string  `gorm:"column:creator"`
	Title      *string `gorm:"column:title"`
	From       *string `gorm:"column:from"`
	FromID     *int64  `gorm:"column:fromId"`
	Priority   *string `gorm:"column:priority"`
	Deadline   *string `gorm:"column:deadline"`
	FinishDate *string `gorm:"column:finishDate"`
	Status     *string `gorm:"column:status"`
	Categories *string `gorm:"column:categories"`
	CreatedAt  *string `gorm:"column:createdAt"`
	UpdatedAt  *string `gorm:"column:updatedAt"`
}

// ParseCategories decodes a stored categories column. Absent, malformed
// or non-list values yield an empty list.
func ParseCategories(raw *string) []string {
	categories := []string{}
	if raw == nil || *raw == "" {
		return categories
	}
	var decoded []any
	if err := json.Unmarshal([]byte(*raw), &decoded); err != nil {
		return categories
	}
	for _, v := range decoded {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories
}

// ParseAttachments decodes a stored attachments column. Attachments are
// opaque structured references; malformed data yields an empty list.
func ParseAttachments(raw *string) []any {
	attachments := []any{}
	if raw == nil || *raw == "" {
		return attachments
	}
	if err := json.Unmarshal([]byte(*raw), &attachments); err != nil || attachments == nil {
		return []any{}
	}
	return attachments
}
