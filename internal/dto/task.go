package dto

import (
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/services"
)

// TaskView represents a task row on the dashboard
type TaskView struct {
	ID        uint64
	Title     string
	Status    models.TaskStatus
	DueDate   string
	Completed bool
}

// StatsView represents the dashboard counters
type StatsView struct {
	Total          int
	Pending        int
	Completed      int
	CompletionRate int
}

// DashboardView is the data rendered by dashboard.html
type DashboardView struct {
	Email     string
	Tasks     []TaskView
	Stats     StatsView
	Error     string
	AIEnabled bool
}

// Conversion functions

// ToTaskView converts a Task model to TaskView
func ToTaskView(task models.Task) TaskView {
	return TaskView{
		ID:        task.ID,
		Title:     task.Title,
		Status:    task.Status,
		DueDate:   task.DueDate.UTC().Format(constants.DueDateLayout),
		Completed: task.IsCompleted(),
	}
}

// ToTaskViews converts a slice of Task models
func ToTaskViews(tasks []models.Task) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, ToTaskView(task))
	}
	return views
}

// ToStatsView converts task statistics
func ToStatsView(stats services.TaskStats) StatsView {
	return StatsView{
		Total:          stats.Total,
		Pending:        stats.Pending,
		Completed:      stats.Completed,
		CompletionRate: stats.CompletionRate,
	}
}
