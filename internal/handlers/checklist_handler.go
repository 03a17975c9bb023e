package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateChecklistItemRequest struct {
	Content string `json:"content" binding:"required"`
}

type ToggleChecklistItemRequest struct {
	IsChecked *bool `json:"is_checked" binding:"required"`
}

// GetChecklist handles GET /api/tasks/:id/checklist
func GetChecklist(c *gin.Context) {
	items := []models.ChecklistItem{}
	err := database.GetDB().
		Where("task_id = ?", c.Param("id")).
		Order("position asc, created_at asc").
		Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch checklist"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateChecklistItem handles POST /api/tasks/:id/checklist
// The item is appended after the current last position.
func CreateChecklistItem(c *gin.Context) {
	task, ok := findTask(c)
	if !ok {
		return
	}

	var req CreateChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	item := models.ChecklistItem{ID: uuid.NewString(), TaskID: task.ID, Content: content}
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var maxPos sql.NullInt64
		if err := tx.Model(&models.ChecklistItem{}).
			Where("task_id = ?", task.ID).
			Select("MAX(position)").
			Row().Scan(&maxPos); err != nil {
			return err
		}
		item.Position = int(maxPos.Int64) + 1
		return tx.Create(&item).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checklist item"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// ToggleChecklistItem handles PATCH /api/tasks/:id/checklist/:itemId
func ToggleChecklistItem(c *gin.Context) {
	var req ToggleChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, ok := findChecklistItem(c)
	if !ok {
		return
	}
	if err := database.GetDB().Model(&item).Update("is_checked", *req.IsChecked).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update checklist item"})
		return
	}
	item.IsChecked = *req.IsChecked
	c.JSON(http.StatusOK, item)
}

// DeleteChecklistItem handles DELETE /api/tasks/:id/checklist/:itemId
func DeleteChecklistItem(c *gin.Context) {
	item, ok := findChecklistItem(c)
	if !ok {
		return
	}
	if err := database.GetDB().Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete checklist item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func findChecklistItem(c *gin.Context) (models.ChecklistItem, bool) {
	var item models.ChecklistItem
	err := database.GetDB().
		Where("id = ? AND task_id = ?", c.Param("itemId"), c.Param("id")).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Checklist item not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch checklist item"})
		}
		return item, false
	}
	return item, true
}
