package database

import (
	"gorm.io/gorm"
)

// OwnedBy restricts a task query to a single owner
func OwnedBy(userID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", userID)
	}
}

// ByDueDate orders tasks by due date, oldest first, ties by insertion order
func ByDueDate(db *gorm.DB) *gorm.DB {
	return db.Order("due_date ASC").Order("id ASC")
}
