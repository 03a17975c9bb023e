package handlers

import (
	"net/http"
	"strings"

	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateBlogPostRequest struct {
	Title       string  `json:"title" binding:"required"`
	Keyword     string  `json:"keyword"`
	Category    string  `json:"category"`
	Platform    string  `json:"platform"`
	URL         string  `json:"url"`
	Status      string  `json:"status"`
	Views       int     `json:"views"`
	Clicks      int     `json:"clicks"`
	Revenue     float64 `json:"revenue"`
	PublishedAt string  `json:"published_at"`
}

type CreateRevenueRequest struct {
	Source      string  `json:"source" binding:"required"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Date        string  `json:"date" binding:"required"`
}

// GetBlogPosts handles GET /api/blog
// Newest first.
func GetBlogPosts(c *gin.Context) {
	posts := []models.BlogPost{}
	if err := database.GetDB().Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

// CreateBlogPost handles POST /api/blog
func CreateBlogPost(c *gin.Context) {
	var req CreateBlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.BlogPost{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Keyword:     req.Keyword,
		Category:    req.Category,
		Platform:    req.Platform,
		URL:         req.URL,
		Status:      req.Status,
		Views:       req.Views,
		Clicks:      req.Clicks,
		Revenue:     req.Revenue,
		PublishedAt: req.PublishedAt,
	}
	if post.Platform == "" {
		post.Platform = "blog"
	}
	if post.Status == "" {
		post.Status = "draft"
	}
	if err := database.GetDB().Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create blog post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetRevenues handles GET /api/revenue
// Most recent date first.
func GetRevenues(c *gin.Context) {
	revenues := []models.Revenue{}
	if err := database.GetDB().Order("date desc").Find(&revenues).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch revenues"})
		return
	}
	c.JSON(http.StatusOK, revenues)
}

// CreateRevenue handles POST /api/revenue
func CreateRevenue(c *gin.Context) {
	var req CreateRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	revenue := models.Revenue{
		ID:          uuid.NewString(),
		Source:      req.Source,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Date:        req.Date,
	}
	if revenue.Currency == "" {
		revenue.Currency = "KRW"
	}
	if err := database.GetDB().Create(&revenue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create revenue"})
		return
	}
	c.JSON(http.StatusCreated, revenue)
}
