package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	restrictiondomain "memberd/internal/restriction/domain"
)

func (s *Server) SetContentRestriction(c *gin.Context) {
	var req restrictiondomain.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ContentID = strings.TrimSpace(c.Param("content_id"))

	resp, err := s.restrictionSvc.SetContentRestriction(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContentRestriction(c *gin.Context) {
	resp, err := s.restrictionSvc.GetContentRestriction(c.Request.Context(), strings.TrimSpace(c.Param("content_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveContentRestriction(c *gin.Context) {
	if err := s.restrictionSvc.RemoveContentRestriction(c.Request.Context(), strings.TrimSpace(c.Param("content_id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) SetTermRestriction(c *gin.Context) {
	var req restrictiondomain.TermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TermID = strings.TrimSpace(c.Param("term_id"))

	resp, err := s.restrictionSvc.SetTermRestriction(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveTermRestriction(c *gin.Context) {
	if err := s.restrictionSvc.RemoveTermRestriction(c.Request.Context(), strings.TrimSpace(c.Param("term_id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) AssignTerm(c *gin.Context) {
	err := s.restrictionSvc.AssignTerm(
		c.Request.Context(),
		strings.TrimSpace(c.Param("content_id")),
		strings.TrimSpace(c.Param("term_id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

func (s *Server) UnassignTerm(c *gin.Context) {
	err := s.restrictionSvc.UnassignTerm(
		c.Request.Context(),
		strings.TrimSpace(c.Param("content_id")),
		strings.TrimSpace(c.Param("term_id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unassigned"})
}

func (s *Server) CheckAccess(c *gin.Context) {
	customerID := strings.TrimSpace(c.Query("customer_id"))
	contentID := strings.TrimSpace(c.Query("content_id"))
	if customerID == "" || contentID == "" {
		AbortWithError(c, newValidationError("request", "invalid_request", "customer_id and content_id are required"))
		return
	}

	resp, err := s.restrictionSvc.CanAccess(c.Request.Context(), customerID, contentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
