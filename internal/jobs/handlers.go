package jobs

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// StatusHandler returns the handler for GET /api/admin/jobs/:id.
func StatusHandler(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := strings.TrimSpace(c.Param("id"))
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "Ongeldig job-id.",
			})
			return
		}

		record, err := m.GetRecord(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Er is een interne fout opgetreden.",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "NOT_FOUND",
				"message": "Job niet gevonden of verlopen.",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": record})
	}
}
