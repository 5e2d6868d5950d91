package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "memberd/internal/customer/domain"
)

type createCustomerRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	EmailVerification string `json:"email_verification"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateRequest{
		Email:             strings.TrimSpace(req.Email),
		Name:              strings.TrimSpace(req.Name),
		EmailVerification: strings.TrimSpace(req.EmailVerification),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCustomers(c *gin.Context) {
	var query customerdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomer(c *gin.Context) {
	resp, err := s.customerSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifyCustomerEmail(c *gin.Context) {
	if err := s.customerSvc.VerifyEmail(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (s *Server) RecordCustomerLogin(c *gin.Context) {
	var req struct {
		IP string `json:"ip"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		ip = c.ClientIP()
	}

	if err := s.customerSvc.RecordLogin(c.Request.Context(), strings.TrimSpace(c.Param("id")), ip); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (s *Server) AddCustomerNote(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Note) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.customerSvc.AddNote(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Note)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "added"})
}
