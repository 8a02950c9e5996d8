package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/dto"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/services"
	"go.uber.org/zap"
)

const dashboardPath = "/dashboard"

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

type addTaskForm struct {
	Title   string `form:"title"`
	DueDate string `form:"due_date"`
}

type generateTasksForm struct {
	Text string `form:"text"`
}

// Dashboard renders the user's tasks and statistics
func (h *TaskHandler) Dashboard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	tasks, stats, err := h.taskService.ListTasks(c.Request.Context(), userID)
	if err != nil {
		apierrors.InternalError(c, err)
		return
	}

	c.HTML(http.StatusOK, "dashboard.html", dto.DashboardView{
		Email:     middleware.GetUserEmail(c),
		Tasks:     dto.ToTaskViews(tasks),
		Stats:     dto.ToStatsView(stats),
		Error:     c.Query("error"),
		AIEnabled: h.taskService.AIEnabled(),
	})
}

// AddTask creates a task from the dashboard form
func (h *TaskHandler) AddTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var form addTaskForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgTitleRequired)
		return
	}

	_, err := h.taskService.AddTask(c.Request.Context(), services.AddTaskInput{
		OwnerID: userID,
		Title:   form.Title,
		DueDate: form.DueDate,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, dashboardPath)
}

// GenerateTasks adds the tasks found in free text
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var form generateTasksForm
	if err := c.ShouldBind(&form); err != nil {
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgTextRequired)
		return
	}

	created, err := h.taskService.GenerateTasks(c.Request.Context(), userID, form.Text)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	zap.L().Info("Generated tasks", zap.Uint64("user_id", userID), zap.Int("count", len(created)))
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

// CompleteTask marks a task as completed
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	h.mutateTask(c, h.taskService.CompleteTask)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	h.mutateTask(c, h.taskService.DeleteTask)
}

// mutateTask runs op on the :task_id of the route. Ids that are not
// numbers are reported like missing tasks.
func (h *TaskHandler) mutateTask(c *gin.Context, op func(ctx context.Context, ownerID, taskID uint64) error) {
	userID, _ := middleware.GetUserID(c)

	taskID, err := strconv.ParseUint(c.Param("task_id"), 10, 64)
	if err != nil {
		respondTaskError(c, services.ErrTaskNotFound)
		return
	}

	if err := op(c.Request.Context(), userID, taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgTaskNotFound)
	case errors.Is(err, services.ErrTitleRequired):
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgTitleRequired)
	case errors.Is(err, services.ErrTitleTooLong):
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgTitleTooLong)
	case errors.Is(err, services.ErrInvalidDueDate):
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgInvalidDueDate)
	case errors.Is(err, services.ErrTextRequired):
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgTextRequired)
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgAIUnavailable)
	case errors.Is(err, services.ErrAINoValidTasks),
		errors.Is(err, services.ErrTaskGeneration):
		zap.L().Warn("Task generation failed", zap.Error(err))
		apierrors.RedirectWithError(c, dashboardPath, constants.MsgAIFailed)
	default:
		apierrors.InternalError(c, err)
	}
}
