package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invoicedomain.ErrEmptyItems)
		return
	}

	inv, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invoice": inv})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invoicedomain.ErrInvalidInvoiceType)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

func (s *Server) UpdateDraftInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	var req invoicedomain.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invoicedomain.ErrEmptyItems)
		return
	}

	inv, err := s.invoiceSvc.UpdateDraft(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

func (s *Server) RemoveInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	if err := s.invoiceSvc.Remove(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) EmitInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.Emit(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	id, ok := invoiceIDParam(c)
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

func invoiceIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, invoicedomain.ErrInvalidInvoiceID)
		return "", false
	}
	return id, true
}
