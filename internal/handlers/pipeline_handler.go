package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreatePipelineItemRequest struct {
	Name            string               `json:"name"`
	Stage           models.PipelineStage `json:"stage"`
	Owner           string               `json:"owner"`
	ExpectedRevenue float64              `json:"expected_revenue"`
	Notes           string               `json:"notes"`
	Priority        models.Priority      `json:"priority"`
}

// GetPipelineItems handles GET /api/pipeline
func GetPipelineItems(c *gin.Context) {
	items := []models.PipelineItem{}
	if err := database.GetDB().Order("stage, priority desc, created_at desc").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pipeline"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreatePipelineItem handles POST /api/pipeline
func CreatePipelineItem(c *gin.Context) {
	var req CreatePipelineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.Stage == "" {
		req.Stage = models.StageDiscovery
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	if !req.Stage.Valid() || !req.Priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stage or priority"})
		return
	}

	item := models.PipelineItem{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Stage:           req.Stage,
		Owner:           req.Owner,
		ExpectedRevenue: req.ExpectedRevenue,
		Notes:           req.Notes,
		Priority:        req.Priority,
	}
	if err := database.GetDB().Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// pipelineColumns are the columns a PATCH may set, in SET-clause order.
var pipelineColumns = []string{"name", "stage", "owner", "expected_revenue", "actual_revenue", "notes", "priority"}

// UpdatePipelineItem handles PATCH /api/pipeline/:id
// Unknown fields are ignored; a body with no known field is rejected.
func UpdatePipelineItem(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sets []string
	var values []any
	for _, col := range pipelineColumns {
		v, ok := body[col]
		if !ok {
			continue
		}
		if err := validatePipelineField(col, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sets = append(sets, col+" = ?")
		values = append(values, v)
	}
	if len(sets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields"})
		return
	}

	id := c.Param("id")
	sets = append(sets, "updated_at = ?")
	values = append(values, time.Now().UTC(), id)

	stmt := fmt.Sprintf("UPDATE pipeline SET %s WHERE id = ?", strings.Join(sets, ", "))
	if err := database.GetStore().Exec(c.Request.Context(), stmt, values...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update"})
		return
	}

	var item models.PipelineItem
	if err := database.GetDB().Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline item not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pipeline item"})
		}
		return
	}
	c.JSON(http.StatusOK, item)
}

func validatePipelineField(col string, v any) error {
	switch col {
	case "expected_revenue", "actual_revenue":
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("%s must be a number", col)
		}
		return nil
	}

	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", col)
	}
	switch col {
	case "name":
		if strings.TrimSpace(s) == "" {
			return errors.New("name cannot be empty")
		}
	case "stage":
		if !models.PipelineStage(s).Valid() {
			return errors.New("invalid stage")
		}
	case "priority":
		if !models.Priority(s).Valid() {
			return errors.New("invalid priority")
		}
	}
	return nil
}

// DeletePipelineItem handles DELETE /api/pipeline/:id
func DeletePipelineItem(c *gin.Context) {
	if err := database.GetDB().Where("id = ?", c.Param("id")).Delete(&models.PipelineItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
