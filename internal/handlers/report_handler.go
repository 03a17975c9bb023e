package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateReportRequest struct {
	Date      string `json:"date"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Content   string `json:"content"`
	Summary   string `json:"summary"`
}

// GetReports handles GET /api/reports
// Optional query params: date, agent_id, limit (default 30).
func GetReports(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if err != nil || limit < 1 {
		limit = 30
	}

	query := database.GetDB().Model(&models.DailyReport{})
	if date := c.Query("date"); date != "" {
		query = query.Where("date = ?", date)
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("agent_id = ?", agentID)
	}

	reports := []models.DailyReport{}
	if err := query.Order("date desc, submitted_at desc").Limit(limit).Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// CreateReport handles POST /api/reports
func CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date and content required"})
		return
	}

	report := models.DailyReport{
		ID:        uuid.NewString(),
		Date:      req.Date,
		AgentID:   req.AgentID,
		AgentName: req.AgentName,
		Content:   req.Content,
		Summary:   req.Summary,
	}
	if err := database.GetDB().Create(&report).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create"})
		return
	}
	c.JSON(http.StatusCreated, report)
}
