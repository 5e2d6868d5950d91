package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	membershipdomain "memberd/internal/membership/domain"
)

func (s *Server) CreateMembership(c *gin.Context) {
	var req membershipdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMemberships(c *gin.Context) {
	var query membershipdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMembership(c *gin.Context) {
	resp, err := s.membershipSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetMembershipByKey looks a membership up by its opaque subscription key,
// used by gateway return URLs that carry no membership id.
func (s *Server) GetMembershipByKey(c *gin.Context) {
	resp, err := s.membershipSvc.GetBySubscriptionKey(c.Request.Context(), strings.TrimSpace(c.Param("key")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ActivateMembership(c *gin.Context) {
	resp, err := s.membershipSvc.Activate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordTransition("active")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenewMembership(c *gin.Context) {
	var req membershipdomain.RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.membershipSvc.Renew(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordTransition("renewed")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelMembership(c *gin.Context) {
	resp, err := s.membershipSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordTransition("cancelled")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelMembershipAtGateway(c *gin.Context) {
	resp, err := s.membershipSvc.CancelAtGateway(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordTransition("cancelled")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExpireMembership(c *gin.Context) {
	resp, err := s.membershipSvc.Expire(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordTransition("expired")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DisableMembership(c *gin.Context) {
	if err := s.membershipSvc.Disable(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "disabled"})
}

func (s *Server) EnableMembership(c *gin.Context) {
	if err := s.membershipSvc.Enable(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "enabled"})
}

func (s *Server) AddMembershipNote(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Note) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.membershipSvc.AddNote(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Note)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "added"})
}
