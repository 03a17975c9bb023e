package handlers

import (
	"net/http"

	"ops-dashboard-api/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const teamQuery = `
SELECT a.*,
  (SELECT COUNT(*) FROM tasks t WHERE t.assigned_agent_id = a.id AND t.status = 'in_progress') AS active_tasks,
  (SELECT COUNT(*) FROM tasks t WHERE t.assigned_agent_id = a.id AND t.status = 'done') AS completed_tasks,
  (SELECT message FROM events e WHERE e.agent_id = a.id ORDER BY e.created_at DESC LIMIT 1) AS last_activity,
  (SELECT created_at FROM events e WHERE e.agent_id = a.id ORDER BY e.created_at DESC LIMIT 1) AS last_activity_at
FROM agents a
ORDER BY a.is_master DESC, a.name`

// GetTeam handles GET /api/team
// Each agent comes with active/completed task counts and its latest activity.
func GetTeam(c *gin.Context) {
	agents, err := database.GetStore().Query(c.Request.Context(), teamQuery)
	if err != nil {
		logrus.WithError(err).Error("team query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch team"})
		return
	}
	c.JSON(http.StatusOK, agents)
}
