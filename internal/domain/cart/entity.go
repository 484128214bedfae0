// internal/domain/cart/entity.go
package cart

// CartItem represents one catalog entry selected by the shopper
type CartItem struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
	UnitPrice     int64  `json:"unit_price"`               // Price to charge, in centavos
	OriginalPrice *int64 `json:"original_price,omitempty"` // Pre-discount price, display only
	Quantity      int    `json:"quantity"`
}

// Subtotal returns unit price times quantity
func (i CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// HasDiscount reports whether the item carries a higher pre-discount price
func (i CartItem) HasDiscount() bool {
	return i.OriginalPrice != nil && *i.OriginalPrice > i.UnitPrice
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique items
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	SubTotal      int64 `json:"sub_total"`
	ShippingCost  int64 `json:"shipping_cost"`
	TotalAmount   int64 `json:"total_amount"`
}

// IsEmpty reports whether the totals describe an empty cart
func (t CartTotals) IsEmpty() bool {
	return t.ItemCount == 0
}
