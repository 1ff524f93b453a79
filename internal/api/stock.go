package api

import (
	"net/http"

	"tienda-service/internal/service"

	"github.com/gin-gonic/gin"
)

// receiveStock handles stock intake
func (h *Handler) receiveStock(c *gin.Context) {
	var req service.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	entry, err := h.svc.Inventory.ReceiveStock(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) listStockEntries(c *gin.Context) {
	entries, err := h.svc.Inventory.ListStockEntries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) deleteStockEntry(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.Inventory.DeleteStockEntry(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// createSale records a sale. A repeated Idempotency-Key returns the
// original sale with 200.
func (h *Handler) createSale(c *gin.Context) {
	var req service.SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)

	sale, created, err := h.svc.Sales.Sell(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, sale)
}

func (h *Handler) listSales(c *gin.Context) {
	sales, err := h.svc.Sales.ListSales(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) getSale(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sale, err := h.svc.Sales.GetSale(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *Handler) deleteSale(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.svc.Sales.DeleteSale(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// dashboard always answers 200; aggregation failures show as zeros
func (h *Handler) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Dashboard.Build(c.Request.Context()))
}
