package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/metrics"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleTooLong           = errors.New("title is too long")
	ErrInvalidDueDate         = errors.New("invalid due date")
	ErrTextRequired           = errors.New("text is required")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
	ErrTaskGeneration         = errors.New("failed to generate tasks")
)

// Task operation labels
const (
	opAdd      = "add"
	opComplete = "complete"
	opDelete   = "delete"
	opGenerate = "generate"
)

// TaskStats summarises a user's task list.
type TaskStats struct {
	Total     int
	Pending   int
	Completed int
	// CompletionRate is the floored percentage of completed tasks.
	CompletionRate int
}

// TaskService handles task business logic. Every operation is scoped to
// the owner; a task owned by someone else behaves as if it did not exist.
type TaskService struct {
	taskRepo      repository.TaskRepository
	extractor     TaskExtractor
	dueDatePolicy string
	now           func() time.Time
}

// NewTaskService creates a new TaskService. extractor may be nil when AI
// quick-add is not configured.
func NewTaskService(taskRepo repository.TaskRepository, extractor TaskExtractor, dueDatePolicy string) *TaskService {
	return &TaskService{
		taskRepo:      taskRepo,
		extractor:     extractor,
		dueDatePolicy: dueDatePolicy,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// AddTaskInput represents input for adding a task
type AddTaskInput struct {
	OwnerID uint64
	Title   string
	DueDate string
}

// AIEnabled reports whether tasks can be generated from text.
func (s *TaskService) AIEnabled() bool {
	return s.extractor != nil
}

// ListTasks returns the owner's tasks, soonest due first, with statistics.
func (s *TaskService) ListTasks(ctx context.Context, ownerID uint64) ([]models.Task, TaskStats, error) {
	tasks, err := s.taskRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, TaskStats{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, ComputeStats(tasks), nil
}

// ComputeStats counts tasks by status.
func ComputeStats(tasks []models.Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		if t.IsCompleted() {
			stats.Completed++
		} else {
			stats.Pending++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRate = stats.Completed * 100 / stats.Total
	}
	return stats
}

// AddTask creates a pending task. An unparseable due date is replaced by
// the current time unless the reject policy is configured.
func (s *TaskService) AddTask(ctx context.Context, input AddTaskInput) (task *models.Task, err error) {
	defer func() {
		metrics.TaskOperationsTotal.WithLabelValues(opAdd, metrics.Outcome(err)).Inc()
	}()

	title, err := normalizeTitle(input.Title)
	if err != nil {
		return nil, err
	}

	dueDate, err := utils.ParseDueDate(input.DueDate)
	if err != nil {
		if s.dueDatePolicy == constants.DueDatePolicyReject {
			return nil, ErrInvalidDueDate
		}
		zap.L().Debug("Unparseable due date, using current time",
			zap.String("due_date", input.DueDate),
		)
		dueDate = s.now()
	}

	task = &models.Task{
		Title:   title,
		Status:  models.TaskStatusPending,
		DueDate: dueDate,
		OwnerID: input.OwnerID,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// CompleteTask marks the owner's task as completed. Completing a task
// twice is not an error.
func (s *TaskService) CompleteTask(ctx context.Context, ownerID, taskID uint64) (err error) {
	defer func() {
		metrics.TaskOperationsTotal.WithLabelValues(opComplete, metrics.Outcome(err)).Inc()
	}()

	task, err := s.findOwnedTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if task.IsCompleted() {
		return nil
	}

	if err := s.taskRepo.UpdateStatus(ctx, task.ID, models.TaskStatusCompleted); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	return nil
}

// DeleteTask deletes the owner's task.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID uint64) (err error) {
	defer func() {
		metrics.TaskOperationsTotal.WithLabelValues(opDelete, metrics.Outcome(err)).Inc()
	}()

	task, err := s.findOwnedTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// GenerateTasks extracts tasks from free text and adds them for the owner.
// Suggestions without a usable title are skipped, a missing or invalid
// due date falls back to the current time.
func (s *TaskService) GenerateTasks(ctx context.Context, ownerID uint64, text string) (created []models.Task, err error) {
	defer func() {
		metrics.TaskOperationsTotal.WithLabelValues(opGenerate, metrics.Outcome(err)).Inc()
	}()

	if s.extractor == nil {
		return nil, ErrAIServiceNotConfigured
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrTextRequired
	}

	now := s.now()
	suggestions, err := s.extractor.ExtractTasks(ctx, text, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskGeneration, err)
	}
	if len(suggestions) > constants.MaxAIGeneratedTasks {
		suggestions = suggestions[:constants.MaxAIGeneratedTasks]
	}

	created = make([]models.Task, 0, len(suggestions))
	for _, suggestion := range suggestions {
		title, err := normalizeTitle(suggestion.Title)
		if err != nil {
			continue
		}

		dueDate, err := utils.ParseDueDate(suggestion.DueDate)
		if err != nil {
			dueDate = now
		}

		task := models.Task{
			Title:   title,
			Status:  models.TaskStatusPending,
			DueDate: dueDate,
			OwnerID: ownerID,
		}
		if err := s.taskRepo.Create(ctx, &task); err != nil {
			return created, fmt.Errorf("failed to create task: %w", err)
		}
		created = append(created, task)
	}

	if len(created) == 0 {
		return nil, ErrAINoValidTasks
	}

	return created, nil
}

// findOwnedTask loads a task and hides tasks of other owners
func (s *TaskService) findOwnedTask(ctx context.Context, ownerID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.OwnerID != ownerID {
		return nil, ErrTaskNotFound
	}

	return task, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTaskTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}
