// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/fitfood-checkout/internal/interfaces/http/handlers"
)

// Handlers groups the API handlers
type Handlers struct {
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Orders   *handlers.OrderHandler
}

// SetupCartRoutes sets up cart related routes
func SetupCartRoutes(rg *gin.RouterGroup, h *handlers.CartHandler) {
	cart := rg.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddToCart)
		cart.PUT("/items/:id", h.UpdateCartItem)
		cart.POST("/items/:id/increment", h.IncrementItem)
		cart.POST("/items/:id/decrement", h.DecrementItem)
		cart.DELETE("/items/:id", h.RemoveFromCart)
	}
}

// SetupCheckoutRoutes sets up checkout state machine routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *handlers.CheckoutHandler) {
	checkout := rg.Group("/checkout")
	{
		checkout.GET("", h.GetCheckout)
		checkout.POST("/open", h.OpenCart)
		checkout.POST("/close", h.CloseCart)
		checkout.POST("/begin", h.BeginCheckout)
		checkout.POST("/address", h.SubmitAddress)
		checkout.POST("/back", h.BackToCart)
		checkout.POST("/edit-address", h.EditAddress)
		checkout.POST("/payment-method", h.ChoosePaymentMethod)
		checkout.POST("/card", h.SubmitCard)
		checkout.POST("/cancel", h.Cancel)
		checkout.DELETE("/session", h.EndSession)

		pix := checkout.Group("/pix")
		{
			pix.POST("/charge", h.RequestPixCharge)
			pix.POST("/confirm", h.ConfirmPix)
		}
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *handlers.OrderHandler) {
	orders := rg.Group("/orders")
	{
		orders.GET("/:number", h.GetOrder)
		orders.GET("/:number/receipt", h.GetReceipt)
	}
}

// SetupRoutes registers every API route
func SetupRoutes(rg *gin.RouterGroup, h Handlers) {
	SetupCartRoutes(rg, h.Cart)
	SetupCheckoutRoutes(rg, h.Checkout)
	SetupOrderRoutes(rg, h.Orders)
}
