package handlers

import (
	"net/http"
	"strings"

	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateCommentRequest struct {
	Author  string `json:"author" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// GetComments handles GET /api/tasks/:id/comments
// Oldest first.
func GetComments(c *gin.Context) {
	comments := []models.Comment{}
	if err := database.GetDB().Where("task_id = ?", c.Param("id")).Order("created_at asc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// CreateComment handles POST /api/tasks/:id/comments
func CreateComment(c *gin.Context) {
	task, ok := findTask(c)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	comment := models.Comment{
		ID:      uuid.NewString(),
		TaskID:  task.ID,
		Author:  strings.TrimSpace(req.Author),
		Content: req.Content,
	}
	if err := database.GetDB().Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	c.JSON(http.StatusCreated, comment)
}
