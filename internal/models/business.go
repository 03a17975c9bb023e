package models

import (
	"time"
)

// PipelineStage is the phase of a deal in the local pipeline tracker.
type PipelineStage string

const (
	StageDiscovery PipelineStage = "discovery"
	StageAnalysis  PipelineStage = "analysis"
	StageExecution PipelineStage = "execution"
	StageDone      PipelineStage = "done"
)

// Valid reports whether s is a known stage.
func (s PipelineStage) Valid() bool {
	switch s {
	case StageDiscovery, StageAnalysis, StageExecution, StageDone:
		return true
	}
	return false
}

// PipelineItem is a deal or initiative tracked locally.
type PipelineItem struct {
	ID              string        `json:"id" gorm:"primaryKey"`
	Name            string        `json:"name" gorm:"not null"`
	Stage           PipelineStage `json:"stage" gorm:"default:'discovery';index"`
	Owner           string        `json:"owner"`
	ExpectedRevenue float64       `json:"expected_revenue" gorm:"default:0"`
	ActualRevenue   float64       `json:"actual_revenue" gorm:"default:0"`
	Notes           string        `json:"notes"`
	Priority        Priority      `json:"priority" gorm:"default:'normal'"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (PipelineItem) TableName() string {
	return "pipeline"
}

// DailyReport is an agent's end-of-day write-up.
type DailyReport struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Date        string    `json:"date" gorm:"not null;index"`
	AgentID     string    `json:"agent_id" gorm:"index"`
	AgentName   string    `json:"agent_name"`
	Content     string    `json:"content" gorm:"not null"`
	Summary     string    `json:"summary"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"autoCreateTime"`
}

func (DailyReport) TableName() string {
	return "daily_reports"
}

type BlogPost struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Keyword     string    `json:"keyword"`
	Category    string    `json:"category"`
	Platform    string    `json:"platform" gorm:"default:'blog'"`
	URL         string    `json:"url"`
	Status      string    `json:"status" gorm:"default:'draft'"`
	Views       int       `json:"views"`
	Clicks      int       `json:"clicks"`
	Revenue     float64   `json:"revenue"`
	PublishedAt string    `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}

type Revenue struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Source      string    `json:"source" gorm:"not null"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency" gorm:"default:'KRW'"`
	Description string    `json:"description"`
	Date        string    `json:"date" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Revenue) TableName() string {
	return "revenues"
}

// All lists every model for migrations.
func All() []any {
	return []any{
		&Agent{}, &Task{}, &ChecklistItem{}, &Comment{}, &ActivityEvent{},
		&PipelineItem{}, &DailyReport{}, &BlogPost{}, &Revenue{},
	}
}
