package models

import (
	"time"
)

// TaskStatus is the column a task sits in on the mission board.
type TaskStatus string

const (
	StatusPlanning   TaskStatus = "planning"
	StatusInbox      TaskStatus = "inbox"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusTesting    TaskStatus = "testing"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in board order.
var TaskStatuses = []TaskStatus{
	StatusPlanning, StatusInbox, StatusAssigned, StatusInProgress,
	StatusTesting, StatusReview, StatusDone,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Priority is shared by tasks and pipeline deals.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a unit of work assigned to an agent
type Task struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"not null"`
	Description     string     `json:"description"`
	Status          TaskStatus `json:"status" gorm:"not null;default:'inbox';index"`
	Priority        Priority   `json:"priority" gorm:"default:'normal'"`
	AssignedAgentID string     `json:"assigned_agent_id" gorm:"column:assigned_agent_id;index"`
	DueDate         string     `json:"due_date" gorm:"column:due_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// ChecklistItem is one step of a task's checklist.
type ChecklistItem struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"not null;index:idx_checklist_task,priority:1"`
	Content   string    `json:"content" gorm:"not null"`
	IsChecked bool      `json:"is_checked" gorm:"default:false"`
	Position  int       `json:"position" gorm:"default:0;index:idx_checklist_task,priority:2"`
	CreatedAt time.Time `json:"created_at"`
}

func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// Comment is a note left on a task.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	TaskID    string    `json:"task_id" gorm:"not null;index:idx_comments_task,priority:1"`
	Author    string    `json:"author" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comments_task,priority:2"`
}

func (Comment) TableName() string {
	return "task_comments"
}
