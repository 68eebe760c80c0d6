// internal/interfaces/http/handlers/sale.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/backoffice-backend/internal/config"
	"github.com/your-org/backoffice-backend/internal/domain/audit"
	"github.com/your-org/backoffice-backend/internal/domain/sale"
	"github.com/your-org/backoffice-backend/internal/domain/stock"
	"github.com/your-org/backoffice-backend/internal/interfaces/http/middleware"
	"github.com/your-org/backoffice-backend/internal/pkg/actor"
	"github.com/your-org/backoffice-backend/internal/pkg/logger"
	"github.com/your-org/backoffice-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// SaleHandler handles sale lifecycle endpoints
type SaleHandler struct {
	saleService *sale.Service
	pdfService  *pdf.Service
	config      *config.Config
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(db *gorm.DB, cfg *config.Config) *SaleHandler {
	manager := stock.NewReservationManager(stock.NewLedger())
	return &SaleHandler{
		saleService: sale.NewService(db, manager, audit.NewRecorder(), logger.New(cfg)),
		pdfService:  pdf.NewService(cfg),
		config:      cfg,
	}
}

// Create handles POST /sales
func (h *SaleHandler) Create(c *gin.Context) {
	act, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req sale.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.saleService.Create(act, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale created successfully",
		"data":    created,
	})
}

// List handles GET /sales
func (h *SaleHandler) List(c *gin.Context) {
	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req sale.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	sales, total, err := h.saleService.List(organizationID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sales,
		"pagination": gin.H{
			"page":  req.Page,
			"limit": req.Limit,
			"total": total,
		},
	})
}

// Get handles GET /sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := h.saleService.Get(organizationID, saleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": record,
	})
}

// Update handles PUT /sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	act, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req sale.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.saleService.Update(act, saleID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale updated successfully",
		"data":    updated,
	})
}

// Pay handles POST /sales/:id/pay
func (h *SaleHandler) Pay(c *gin.Context) {
	h.transition(c, h.saleService.Pay, "Sale paid successfully")
}

// Cancel handles POST /sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	h.transition(c, h.saleService.Cancel, "Sale cancelled successfully")
}

// Ship handles POST /sales/:id/ship
func (h *SaleHandler) Ship(c *gin.Context) {
	h.transition(c, h.saleService.Ship, "Sale shipped successfully")
}

// Deliver handles POST /sales/:id/deliver
func (h *SaleHandler) Deliver(c *gin.Context) {
	h.transition(c, h.saleService.Deliver, "Sale delivered successfully")
}

// Delete handles DELETE /sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	act, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.saleService.Delete(act, saleID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale deleted successfully",
	})
}

// Restore handles POST /admin/sales/:id/restore
func (h *SaleHandler) Restore(c *gin.Context) {
	h.transition(c, h.saleService.Restore, "Sale restored successfully")
}

// Invoice handles GET /sales/:id/invoice
func (h *SaleHandler) Invoice(c *gin.Context) {
	organizationID, ok := middleware.GetOrganizationIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := h.saleService.Get(organizationID, saleID)
	if err != nil {
		respondError(c, err)
		return
	}

	buf, err := h.pdfService.GenerateInvoice(record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate invoice",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", record.Number))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *SaleHandler) transition(c *gin.Context, fn func(act actor.Actor, saleID uint) (*sale.Sale, error), message string) {
	act, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	saleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	updated, err := fn(act, saleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    updated,
	})
}
