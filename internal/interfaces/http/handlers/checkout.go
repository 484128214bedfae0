// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
	"github.com/your-org/fitfood-checkout/internal/domain/customer"
	"github.com/your-org/fitfood-checkout/internal/interfaces/http/middleware"
)

type ChoosePaymentMethodRequest struct {
	Method string `json:"method" binding:"required,oneof=card pix"`
}

type SubmitCardRequest struct {
	Installments    int    `json:"installments" binding:"required,min=1"`
	PaymentMethodID string `json:"payment_method_id"`
}

// CheckoutHandler drives the checkout state machine
type CheckoutHandler struct {
	sessions     *checkout.Manager
	logger       *logrus.Logger
	cookieSecure bool
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(sessions *checkout.Manager, logger *logrus.Logger, cookieSecure bool) *CheckoutHandler {
	return &CheckoutHandler{
		sessions:     sessions,
		logger:       logger,
		cookieSecure: cookieSecure,
	}
}

// GetCheckout handles GET /checkout
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	respondSnapshot(c, "Checkout retrieved successfully", s)
}

// OpenCart handles POST /checkout/open
func (h *CheckoutHandler) OpenCart(c *gin.Context) {
	h.transition(c, "Cart opened", func(s *checkout.Session) error {
		return s.OpenCart()
	})
}

// CloseCart handles POST /checkout/close
func (h *CheckoutHandler) CloseCart(c *gin.Context) {
	h.transition(c, "Cart closed", func(s *checkout.Session) error {
		return s.CloseCart()
	})
}

// BeginCheckout handles POST /checkout/begin
func (h *CheckoutHandler) BeginCheckout(c *gin.Context) {
	h.transition(c, "Checkout started", func(s *checkout.Session) error {
		return s.BeginCheckout(c.Request.Context())
	})
}

// SubmitAddress handles POST /checkout/address
func (h *CheckoutHandler) SubmitAddress(c *gin.Context) {
	var info customer.Info
	if err := c.ShouldBindJSON(&info); err != nil {
		respondBindError(c, err)
		return
	}

	h.transition(c, "Address saved", func(s *checkout.Session) error {
		return s.SubmitAddress(c.Request.Context(), info)
	})
}

// BackToCart handles POST /checkout/back
func (h *CheckoutHandler) BackToCart(c *gin.Context) {
	h.transition(c, "Back to cart", func(s *checkout.Session) error {
		return s.BackToCart()
	})
}

// EditAddress handles POST /checkout/edit-address
func (h *CheckoutHandler) EditAddress(c *gin.Context) {
	h.transition(c, "Editing address", func(s *checkout.Session) error {
		return s.EditAddress()
	})
}

// ChoosePaymentMethod handles POST /checkout/payment-method
func (h *CheckoutHandler) ChoosePaymentMethod(c *gin.Context) {
	var req ChoosePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	method, ok := checkout.ParsePaymentMethod(req.Method)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid payment method",
		})
		return
	}

	h.transition(c, "Payment method selected", func(s *checkout.Session) error {
		return s.ChoosePaymentMethod(c.Request.Context(), method)
	})
}

// SubmitCard handles POST /checkout/card
func (h *CheckoutHandler) SubmitCard(c *gin.Context) {
	var req SubmitCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}

	receipt, err := s.SubmitCard(c.Request.Context(), checkout.CardSubmission{
		Installments:    req.Installments,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		respondError(c, err, s)
		return
	}

	h.respondReceipt(c, s, receipt)
}

// RequestPixCharge handles POST /checkout/pix/charge
func (h *CheckoutHandler) RequestPixCharge(c *gin.Context) {
	h.transition(c, "PIX charge created", func(s *checkout.Session) error {
		return s.RequestPixCharge(c.Request.Context())
	})
}

// ConfirmPix handles POST /checkout/pix/confirm
func (h *CheckoutHandler) ConfirmPix(c *gin.Context) {
	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}

	receipt, err := s.ConfirmPixManually(c.Request.Context())
	if err != nil {
		respondError(c, err, s)
		return
	}

	h.respondReceipt(c, s, receipt)
}

// Cancel handles POST /checkout/cancel
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	h.transition(c, "Payment cancelled", func(s *checkout.Session) error {
		return s.Cancel()
	})
}

// EndSession handles DELETE /checkout/session
func (h *CheckoutHandler) EndSession(c *gin.Context) {
	sessionID, ok := middleware.GetSessionIDFromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing session",
		})
		return
	}

	if err := h.sessions.End(c.Request.Context(), sessionID); err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to end checkout session")
	}

	middleware.ClearSessionCookie(c, h.cookieSecure)
	c.JSON(http.StatusOK, gin.H{
		"message": "Session ended",
	})
}

func (h *CheckoutHandler) transition(c *gin.Context, message string, fn func(*checkout.Session) error) {
	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}

	if err := fn(s); err != nil {
		respondError(c, err, s)
		return
	}

	respondSnapshot(c, message, s)
}

func (h *CheckoutHandler) respondReceipt(c *gin.Context, s *checkout.Session, receipt *checkout.Receipt) {
	h.logger.WithFields(logrus.Fields{
		"session_id":        s.ID(),
		"order_number":      receipt.OrderNumber,
		"confirmation_kind": receipt.ConfirmationKind,
	}).Info("Order placed")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    s.Snapshot(),
		"receipt": receipt,
	})
}
