package models

import (
	"time"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusCompleted TaskStatus = "Completed"
)

type Task struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Status    TaskStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	DueDate   time.Time  `json:"due_date"`
	OwnerID   uint64     `gorm:"not null" json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsCompleted reports whether the task reached its final status.
func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}
