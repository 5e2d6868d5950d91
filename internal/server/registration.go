package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	registrationdomain "memberd/internal/registration/domain"
)

func (s *Server) PreviewRegistration(c *gin.Context) {
	var req registrationdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.registrationSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordRegistrationPreview(string(resp.Type))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
