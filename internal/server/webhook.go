package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// IngestWebhook receives gateway notifications. The raw body is passed
// through untouched because signature schemes hash the exact payload bytes.
func (s *Server) IngestWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))

	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.webhookSvc.Ingest(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(provider, "", "rejected")
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordWebhookEvent(provider, result.EventType, result.Status)
	c.JSON(http.StatusOK, gin.H{"data": result})
}
