package repository

import (
	"context"
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user. A duplicate email surfaces as gorm.ErrDuplicatedKey.
	Create(ctx context.Context, user *models.User) error

	// FindByEmail finds a user by exact email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// ListByOwner lists all tasks of an owner ordered by due date
	ListByOwner(ctx context.Context, ownerID uint64) ([]models.Task, error)

	// UpdateStatus sets the status of a task
	UpdateStatus(ctx context.Context, id uint64, status models.TaskStatus) error

	// Delete deletes a task
	Delete(ctx context.Context, id uint64) error
}

// OTPRepository defines the interface for one-time password data access
type OTPRepository interface {
	// Replace stores the code as the only one for its email
	Replace(ctx context.Context, otp *models.OTPCode) error

	// FindByEmail finds the code issued to an email
	FindByEmail(ctx context.Context, email string) (*models.OTPCode, error)

	// Delete deletes a code by ID
	Delete(ctx context.Context, id uint64) error

	// DeleteExpired deletes every code that expired before now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
