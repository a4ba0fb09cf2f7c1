package database

import "gorm.io/gorm"

// OwnedBy restricts a tasks query to rows created by username.
func OwnedBy(username string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.creator = ?", username)
	}
}
