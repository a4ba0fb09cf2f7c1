package models

// Status is a shared label for task and milestone states.
type Status struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Description string `gorm:"column:description;not null;uniqueIndex"`
}

func (Status) TableName() string {
	return "status"
}

// Origin is a shared label for where a task came from. The shell calls
// it "from".
type Origin struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Description string `gorm:"column:description;not null;uniqueIndex"`
}

func (Origin) TableName() string {
	return "origin"
}
