// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/your-org/fitfood-checkout/internal/domain/cart"
)

// Product is the read-only view of a sellable catalog record
type Product struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	Name           string     `gorm:"not null;size:255" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	ImageURL       string     `gorm:"size:512" json:"image_url"`
	Price          int64      `gorm:"not null" json:"price"` // In centavos
	DiscountPrice  *int64     `json:"discount_price,omitempty"`
	DiscountEndsAt *time.Time `json:"discount_ends_at,omitempty"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}

// DiscountActive reports whether the discounted price applies at the given time
func (p Product) DiscountActive(now time.Time) bool {
	if p.DiscountPrice == nil || *p.DiscountPrice <= 0 || *p.DiscountPrice >= p.Price {
		return false
	}
	return p.DiscountEndsAt == nil || now.Before(*p.DiscountEndsAt)
}

// ToCartItem converts the product into a cart line priced at the time given
func (p Product) ToCartItem(now time.Time) cart.CartItem {
	item := cart.CartItem{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		UnitPrice:   p.Price,
		Quantity:    1,
	}

	if p.DiscountActive(now) {
		original := p.Price
		item.UnitPrice = *p.DiscountPrice
		item.OriginalPrice = &original
	}

	return item
}
