package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/models"
)

// displayPlaces is the precision of the rounded totals returned next to the
// raw ones.
const displayPlaces = 2

type sendInvoiceRequest struct {
	To string `json:"to"`
}

type previewRequest struct {
	Kind models.DocumentKind `json:"kind"`
	models.DocumentRequest
}

// CreateDocument handles POST /api/v1/{invoices,order-forms,purchase-orders}
func (h *Handlers) CreateDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Failed to bind request", logging.Fields{"error": err.Error()})
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		doc, err := h.documentService.CreateDocument(c.Request.Context(), middleware.TenantID(c), kind, &req)
		if err != nil {
			handleError(c, err)
			return
		}

		c.JSON(http.StatusCreated, doc)
	}
}

// GetDocument handles GET /api/v1/{kind}/:id
func (h *Handlers) GetDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := h.documentService.GetDocument(c.Request.Context(), middleware.TenantID(c), kind, c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// UpdateDocument handles PUT /api/v1/{kind}/:id
func (h *Handlers) UpdateDocument(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		doc, err := h.documentService.UpdateDocument(c.Request.Context(), middleware.TenantID(c), kind, c.Param("id"), &req)
		if err != nil {
			handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, doc)
	}
}

// ListDocuments handles GET /api/v1/{kind}
func (h *Handlers) ListDocuments(kind models.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := &models.DocumentListFilter{
			TenantID: middleware.TenantID(c),
			Kind:     kind,
		}

		if limitStr := c.Query("limit"); limitStr != "" {
			if limit, err := strconv.Atoi(limitStr); err == nil {
				filter.Limit = limit
			}
		}

		if offsetStr := c.Query("offset"); offsetStr != "" {
			if offset, err := strconv.Atoi(offsetStr); err == nil {
				filter.Offset = offset
			}
		}

		docs, total, err := h.documentService.ListDocuments(c.Request.Context(), filter)
		if err != nil {
			handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": docs,
			"total":     total,
			"limit":     filter.Limit,
			"offset":    filter.Offset,
		})
	}
}

// SendInvoice handles POST /api/v1/invoices/:id/send
func (h *Handlers) SendInvoice(c *gin.Context) {
	var req sendInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	doc, err := h.documentService.SendInvoice(c.Request.Context(), middleware.TenantID(c), c.Param("id"), req.To)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// PreviewTotals handles POST /api/v1/totals/preview
func (h *Handlers) PreviewTotals(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.documentService.PreviewTotals(req.Kind, &req.DocumentRequest)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totals":  result,
		"display": result.Display(displayPlaces),
	})
}
