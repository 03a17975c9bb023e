package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/models"
	"ops-dashboard-api/internal/notify"
	"ops-dashboard-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatusNotifier is told about task status changes. *notify.Discord
// implements it.
type StatusNotifier interface {
	StatusChanged(ctx context.Context, change notify.StatusChange) error
}

var statusNotifier StatusNotifier

// SetStatusNotifier installs the notifier used by status changes. nil
// disables notifications.
func SetStatusNotifier(n StatusNotifier) {
	statusNotifier = n
}

const notifyTimeout = 10 * time.Second

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title           string            `json:"title" binding:"required"`
	Description     string            `json:"description"`
	Status          models.TaskStatus `json:"status"`
	Priority        models.Priority   `json:"priority"`
	AssignedAgentID string            `json:"assigned_agent_id"`
	DueDate         string            `json:"due_date"`
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	Status          *models.TaskStatus `json:"status"`
	Priority        *models.Priority   `json:"priority"`
	AssignedAgentID *string            `json:"assigned_agent_id"`
	DueDate         *string            `json:"due_date"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

/*
*
GetTasks handles GET /api/tasks
Optional query params: status, agent_id, page (default 1), limit (default 50,
max 200), sort (asc|desc on created_at, default desc).
*/
func GetTasks(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	sortParam := strings.ToLower(c.DefaultQuery("sort", "desc"))
	order := "created_at desc"
	if sortParam == "asc" {
		order = "created_at asc"
	}

	query := database.GetDB().Model(&models.Task{})
	if status := c.Query("status"); status != "" {
		if !models.TaskStatus(status).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		query = query.Where("status = ?", status)
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("assigned_agent_id = ?", agentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tasks"})
		return
	}

	tasks := []models.Task{}
	result := query.Session(&gorm.Session{}).Order(order).Limit(limit).Offset(offset).Find(&tasks)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks), // number of items in this page
		"total": total,      // total tasks (all pages) for current filter
		"page":  page,
		"limit": limit,
		"sort":  sortParam,
	})
}

// GetTaskByID handles GET /api/tasks/:id
func GetTaskByID(c *gin.Context) {
	task, ok := findTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

/*
*
CreateTask handles POST /api/tasks
New tasks land in the inbox with normal priority unless told otherwise.
*/
func CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := req.Status
	if status == "" {
		status = models.StatusInbox
	}
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}

	task := models.Task{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Status:          status,
		Priority:        priority,
		AssignedAgentID: req.AssignedAgentID,
		DueDate:         req.DueDate,
	}
	if task.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	if err := database.GetDB().Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	recordActivity(c.Request.Context(), "task_created", task.AssignedAgentID, task.ID,
		fmt.Sprintf("Task created: %s", task.Title))
	realtime.GetHub().Publish("task", "created", gin.H{"taskId": task.ID, "title": task.Title, "status": task.Status})

	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PATCH /api/tasks/:id
// Only the fields present in the body change.
func UpdateTask(c *gin.Context) {
	existingTask, ok := findTask(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldStatus := existingTask.Status
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title cannot be empty"})
			return
		}
		existingTask.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		existingTask.Description = *req.Description
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		existingTask.Status = *req.Status
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return
		}
		existingTask.Priority = *req.Priority
	}
	if req.AssignedAgentID != nil {
		existingTask.AssignedAgentID = *req.AssignedAgentID
	}
	if req.DueDate != nil {
		existingTask.DueDate = *req.DueDate
	}

	if err := database.GetDB().Save(&existingTask).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	if existingTask.Status != oldStatus {
		statusChanged(c.Request.Context(), existingTask, oldStatus)
	} else {
		realtime.GetHub().Publish("task", "updated", gin.H{"taskId": existingTask.ID})
	}

	c.JSON(http.StatusOK, existingTask)
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
// Updates only the status column.
func UpdateTaskStatus(c *gin.Context) {
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	task, ok := findTask(c)
	if !ok {
		return
	}

	oldStatus := task.Status
	if err := database.GetDB().Model(&task).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	task.Status = req.Status

	if oldStatus != task.Status {
		statusChanged(c.Request.Context(), task, oldStatus)
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
// Its checklist items and comments go with it.
func DeleteTask(c *gin.Context) {
	task, ok := findTask(c)
	if !ok {
		return
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.ChecklistItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	realtime.GetHub().Publish("task", "deleted", gin.H{"taskId": task.ID})

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"id":      task.ID,
	})
}

// GetTaskStats handles GET /api/tasks/stats
// Returns task counts per status, optionally for one agent.
func GetTaskStats(c *gin.Context) {
	type row struct {
		Status string
		Count  int64
	}

	query := database.GetDB().Model(&models.Task{}).Select("status, COUNT(*) as count")
	if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("assigned_agent_id = ?", agentID)
	}
	var rows []row
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}

	counts := make(gin.H, len(models.TaskStatuses)+1)
	for _, s := range models.TaskStatuses {
		counts[string(s)] = int64(0)
	}
	var total int64
	for _, r := range rows {
		counts[r.Status] = r.Count
		total += r.Count
	}
	counts["total"] = total

	c.JSON(http.StatusOK, counts)
}

// findTask loads the task named by the :id path param, writing the 404 or
// 500 response itself when it cannot.
func findTask(c *gin.Context) (models.Task, bool) {
	var task models.Task
	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task ID is required"})
		return task, false
	}

	if err := database.GetDB().Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return task, false
	}
	return task, true
}

// statusChanged fans a status transition out to the activity feed, the event
// hub and the notifier.
func statusChanged(ctx context.Context, task models.Task, oldStatus models.TaskStatus) {
	recordActivity(ctx, "task_status_changed", task.AssignedAgentID, task.ID,
		fmt.Sprintf("%s: %s → %s", task.Title, oldStatus, task.Status))

	realtime.GetHub().Publish("task.status_changed", string(task.Status), gin.H{
		"taskId":    task.ID,
		"title":     task.Title,
		"oldStatus": oldStatus,
		"newStatus": task.Status,
	})

	if statusNotifier == nil {
		return
	}
	change := notify.StatusChange{
		TaskID:    task.ID,
		TaskTitle: task.Title,
		OldStatus: string(oldStatus),
		NewStatus: string(task.Status),
		AgentName: agentName(task.AssignedAgentID),
	}
	n := statusNotifier
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := n.StatusChanged(ctx, change); err != nil {
			logrus.WithError(err).WithField("task_id", change.TaskID).Warn("status notification failed")
		}
	}()
}

func agentName(agentID string) string {
	if agentID == "" {
		return ""
	}
	var agent models.Agent
	if err := database.GetDB().Where("id = ?", agentID).First(&agent).Error; err != nil {
		return ""
	}
	return agent.Name
}

// recordActivity appends to the activity feed. A failure is logged and
// otherwise ignored.
func recordActivity(ctx context.Context, eventType, agentID, taskID, message string) {
	evt := models.ActivityEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		AgentID: agentID,
		TaskID:  taskID,
		Message: message,
	}
	if err := database.GetDB().WithContext(ctx).Create(&evt).Error; err != nil {
		logrus.WithError(err).WithField("type", eventType).Warn("failed to record activity")
	}
}
