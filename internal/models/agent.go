package models

import (
	"time"
)

// Agent is a team member, human or automated, that tasks are assigned to.
type Agent struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Role      string    `json:"role"`
	Avatar    string    `json:"avatar"`
	IsMaster  bool      `json:"is_master" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Agent Model
func (Agent) TableName() string {
	return "agents"
}

// ActivityEvent is an entry in the team activity feed.
type ActivityEvent struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Type      string    `json:"type" gorm:"not null"`
	AgentID   string    `json:"agent_id" gorm:"index"`
	TaskID    string    `json:"task_id"`
	Message   string    `json:"message" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (ActivityEvent) TableName() string {
	return "events"
}
