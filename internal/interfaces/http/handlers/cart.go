// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fitfood-checkout/internal/domain/cart"
	"github.com/your-org/fitfood-checkout/internal/domain/catalog"
	"github.com/your-org/fitfood-checkout/internal/domain/checkout"
)

var errItemNotInCart = errors.New("item not in cart")

type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required,max=64"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=99"`
}

// CartHandler handles cart endpoints
type CartHandler struct {
	sessions *checkout.Manager
	products catalog.Repository
	now      func() time.Time
}

// NewCartHandler creates a new cart handler
func NewCartHandler(sessions *checkout.Manager, products catalog.Repository) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		products: products,
		now:      time.Now,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}
	respondSnapshot(c, "Cart retrieved successfully", s)
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}

	product, err := h.products.FindProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		respondError(c, err, s)
		return
	}

	item := product.ToCartItem(h.now())
	if err := s.UpdateCart(func(cc *cart.Cart) { cc.AddItem(item) }); err != nil {
		respondError(c, err, s)
		return
	}

	respondSnapshot(c, "Item added to cart successfully", s)
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	h.mutateItem(c, "Cart item updated successfully", func(cc *cart.Cart, id string) {
		cc.SetQuantity(id, *req.Quantity)
	})
}

// IncrementItem handles POST /cart/items/:id/increment
func (h *CartHandler) IncrementItem(c *gin.Context) {
	h.mutateItem(c, "Cart item updated successfully", (*cart.Cart).Increment)
}

// DecrementItem handles POST /cart/items/:id/decrement
func (h *CartHandler) DecrementItem(c *gin.Context) {
	h.mutateItem(c, "Cart item updated successfully", (*cart.Cart).Decrement)
}

// RemoveFromCart handles DELETE /cart/items/:id
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	h.mutateItem(c, "Item removed from cart successfully", (*cart.Cart).RemoveItem)
}

func (h *CartHandler) mutateItem(c *gin.Context, message string, fn func(*cart.Cart, string)) {
	s, ok := loadSession(c, h.sessions)
	if !ok {
		return
	}

	id := c.Param("id")
	if _, found := s.Cart().Get(id); !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error": errItemNotInCart.Error(),
			"data":  s.Snapshot(),
		})
		return
	}

	if err := s.UpdateCart(func(cc *cart.Cart) { fn(cc, id) }); err != nil {
		respondError(c, err, s)
		return
	}

	respondSnapshot(c, message, s)
}
