// internal/interfaces/http/handlers/order.go
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/order"
)

// OrderFinder looks up recorded orders
type OrderFinder interface {
	FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error)
}

// ReceiptRenderer turns an order into a PDF
type ReceiptRenderer interface {
	GenerateReceipt(o *order.Order) (*bytes.Buffer, error)
}

// OrderHandler serves the shopper's placed orders
type OrderHandler struct {
	sessions *checkout.Manager
	orders   OrderFinder
	receipts ReceiptRenderer
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(sessions *checkout.Manager, orders OrderFinder, receipts ReceiptRenderer) *OrderHandler {
	return &OrderHandler{
		sessions: sessions,
		orders:   orders,
		receipts: receipts,
	}
}

// GetOrder handles GET /orders/:number
func (h *OrderHandler) GetOrder(c *gin.Context) {
	o, ok := h.findOwnOrder(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data": gin.H{
			"order":         o,
			"payment_label": o.PaymentLabel(),
		},
	})
}

// GetReceipt handles GET /orders/:number/receipt
func (h *OrderHandler) GetReceipt(c *gin.Context) {
	o, ok := h.findOwnOrder(c)
	if !ok {
		return
	}

	pdfBuffer, err := h.receipts.GenerateReceipt(o)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate receipt",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=pedido-%s.pdf", o.OrderNumber))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}

// findOwnOrder loads the order only when it is the session's last placed order
func (h *OrderHandler) findOwnOrder(c *gin.Context) (*order.Order, bool) {
	s, ok := loadSession(c, h.sessions)
	if !ok {
		return nil, false
	}

	number := c.Param("number")
	last := s.Snapshot().LastOrder
	if last == nil || last.OrderNumber != number {
		respondError(c, order.ErrOrderNotFound, nil)
		return nil, false
	}

	o, err := h.orders.FindByNumber(c.Request.Context(), number)
	if err != nil {
		respondError(c, err, nil)
		return nil, false
	}
	return o, true
}
